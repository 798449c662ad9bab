// Package png encodes still captures as PNG files.
//
// Importing the package registers the "png" format with the encode
// registry.
package png

import (
	"fmt"
	stdpng "image/png"
	"io"
	"strings"
	"sync"

	"github.com/gogpu/capture/encode"
)

// Name is the registry name of the format.
const Name = "png"

func init() {
	encode.Register(Name, func() encode.Encoder { return New(Options{}) })
}

// Options configures the encoder.
type Options struct {
	Compression stdpng.CompressionLevel
}

// ParseCompression maps a configuration name ("default", "none", "speed",
// "best") to a compression level. The empty string selects the default.
func ParseCompression(s string) (stdpng.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return stdpng.DefaultCompression, nil
	case "none":
		return stdpng.NoCompression, nil
	case "speed", "fast":
		return stdpng.BestSpeed, nil
	case "best":
		return stdpng.BestCompression, nil
	default:
		return stdpng.DefaultCompression, fmt.Errorf("png: unknown compression %q", s)
	}
}

// Encoder writes the newest frame of its input as a PNG image.
type Encoder struct {
	enc *stdpng.Encoder
}

// New creates an encoder.
func New(opts Options) *Encoder {
	return &Encoder{enc: &stdpng.Encoder{
		CompressionLevel: opts.Compression,
		BufferPool:       &bufferPool{},
	}}
}

// Name implements encode.Encoder.
func (e *Encoder) Name() string { return Name }

// Extension implements encode.Encoder.
func (e *Encoder) Extension() string { return "png" }

// Encode implements encode.Encoder. Inputs carrying a watermark are
// rejected with encode.ErrWatermarkUnsupported.
func (e *Encoder) Encode(w io.Writer, in encode.Input) error {
	if in.Watermark != nil {
		return fmt.Errorf("png: %w", encode.ErrWatermarkUnsupported)
	}
	f, err := in.Newest()
	if err != nil {
		return fmt.Errorf("png: %w", err)
	}
	img, err := encode.ToImage(f, in.Width, in.Height)
	if err != nil {
		return fmt.Errorf("png: %w", err)
	}
	if err := e.enc.Encode(w, img); err != nil {
		return fmt.Errorf("png: encode: %w", err)
	}
	return nil
}

// bufferPool shares zlib buffers between concurrent encodes.
type bufferPool struct {
	pool sync.Pool
}

func (p *bufferPool) Get() *stdpng.EncoderBuffer {
	b, _ := p.pool.Get().(*stdpng.EncoderBuffer)
	return b
}

func (p *bufferPool) Put(b *stdpng.EncoderBuffer) {
	p.pool.Put(b)
}

// Ensure Encoder implements encode.Encoder.
var _ encode.Encoder = (*Encoder)(nil)
