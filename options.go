package capture

import (
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/capture/encode"
	"github.com/gogpu/capture/recorder"
	"github.com/gogpu/capture/sink"
	"github.com/gogpu/capture/task"
)

// Option configures a Capture during creation.
//
// Example:
//
//	c, err := capture.New(cfg, host,
//	    capture.WithLogger(logger),
//	    capture.WithSink(sink.FSSink{FS: fs}),
//	)
type Option func(*options)

// options holds optional configuration for Capture creation.
type options struct {
	logger   *slog.Logger
	sink     sink.Sink
	pool     *task.Pool
	now      func() time.Time
	encoders []encode.Encoder
	format   gputypes.TextureFormat
}

// defaultOptions returns the default options.
func defaultOptions() options {
	return options{
		logger: nil, // Logger() at creation time
		sink:   nil, // FileSink in Config.OutputDir
		pool:   nil, // owned pool of Config.Workers
		now:    time.Now,
		format: recorder.DefaultFormat,
	}
}

// WithLogger sets the logger of this Capture instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSink sets where encoded files are delivered.
//
// Example:
//
//	// Browser build: offer files as downloads.
//	capture.WithSink(sink.DownloadSink{Deliver: download})
func WithSink(s sink.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithPool runs jobs on a pool owned by the caller. Close waits for the
// Capture's jobs but does not close the pool.
func WithPool(p *task.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithClock sets the clock used to name outputs without a path.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEncoder makes enc available under enc.Name(), replacing a built-in
// or registered format of the same name.
func WithEncoder(enc encode.Encoder) Option {
	return func(o *options) {
		if enc != nil {
			o.encoders = append(o.encoders, enc)
		}
	}
}

// WithTargetFormat sets the pixel format of recorder targets.
func WithTargetFormat(format gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = format
	}
}
