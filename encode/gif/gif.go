// Package gif encodes animation captures as looping GIF files.
//
// Every frame gets its own palette, built by median-cut quantization of the
// frame (or of a pixel sample of it), and is optionally downscaled first.
// Frames are quantized in parallel when the encoder has a task pool.
//
// Importing the package registers the "gif" format with the encode
// registry.
package gif

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	stdgif "image/gif"
	"io"
	"math"
	"time"

	"github.com/ericpauley/go-quantize/quantize"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/capture/encode"
	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/task"
)

// Name is the registry name of the format.
const Name = "gif"

// Format limits and defaults.
const (
	MaxColors           = 256
	MinColors           = 2
	DefaultSampleFactor = 10

	// MaxDelay is the largest frame delay a GIF can express, in units of
	// 10ms.
	MaxDelay = math.MaxUint16

	maxDimension = math.MaxUint16
)

// ErrTooLarge is returned for frames wider or taller than a GIF can encode.
var ErrTooLarge = errors.New("gif: image dimensions exceed 65535")

func init() {
	encode.Register(Name, func() encode.Encoder { return New(Options{}) })
}

// Params are per-request animation parameters. A zero field keeps the
// encoder's default.
type Params struct {
	// Colors is the palette size per frame, between MinColors and MaxColors.
	Colors int

	// Scale shrinks frames before quantization, 0 < Scale <= 1.
	Scale float64

	// SampleFactor builds each palette from every SampleFactor-th pixel.
	// 1 uses every pixel.
	SampleFactor int
}

// Options configures the encoder.
type Options struct {
	Params

	// Pool runs per-frame quantization in parallel. Nil quantizes on the
	// calling goroutine.
	Pool *task.Pool

	// Quantizer builds frame palettes. Nil selects median cut.
	Quantizer xdraw.Quantizer
}

// Encoder writes every frame of its input into one looping GIF.
type Encoder struct {
	defaults  Params
	pool      *task.Pool
	quantizer xdraw.Quantizer
}

// New creates an encoder.
func New(opts Options) *Encoder {
	e := &Encoder{
		defaults:  normalize(opts.Params, Params{Colors: MaxColors, Scale: 1, SampleFactor: DefaultSampleFactor}),
		pool:      opts.Pool,
		quantizer: opts.Quantizer,
	}
	if e.quantizer == nil {
		e.quantizer = quantize.MedianCutQuantizer{}
	}
	return e
}

// normalize fills zero fields of p from def and clamps the rest.
func normalize(p, def Params) Params {
	if p.Colors == 0 {
		p.Colors = def.Colors
	}
	p.Colors = min(max(p.Colors, MinColors), MaxColors)
	if p.Scale <= 0 || p.Scale > 1 {
		p.Scale = def.Scale
	}
	if p.SampleFactor <= 0 {
		p.SampleFactor = def.SampleFactor
	}
	return p
}

// Name implements encode.Encoder.
func (e *Encoder) Name() string { return Name }

// Extension implements encode.Encoder.
func (e *Encoder) Extension() string { return "gif" }

// Encode implements encode.Encoder. in.Options may hold Params or *Params
// to override the encoder defaults for this input.
func (e *Encoder) Encode(w io.Writer, in encode.Input) error {
	if in.Watermark != nil {
		return fmt.Errorf("gif: %w", encode.ErrWatermarkUnsupported)
	}
	if len(in.Frames) == 0 {
		return fmt.Errorf("gif: %w", encode.ErrNoFrames)
	}
	p := e.params(in.Options)

	dw, dh := scaledSize(in.Width, in.Height, p.Scale)
	if dw > maxDimension || dh > maxDimension {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, dw, dh)
	}
	for i := range in.Frames {
		if err := encode.CheckSize(in.Frames[i], in.Width, in.Height); err != nil {
			return fmt.Errorf("gif: frame %d: %w", i, err)
		}
	}

	images := make([]*image.Paletted, len(in.Frames))
	errs := make([]error, len(in.Frames))
	work := make([]func(), len(in.Frames))
	for i := range in.Frames {
		work[i] = func() {
			images[i], errs[i] = e.quantizeFrame(in.Frames[i], in.Width, in.Height, dw, dh, p)
		}
	}
	if e.pool != nil {
		e.pool.ExecuteAll(work)
	} else {
		for _, fn := range work {
			fn()
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("gif: %w", err)
	}

	anim := &stdgif.GIF{
		Image:     images,
		Delay:     make([]int, len(in.Frames)),
		LoopCount: 0,
		Config:    image.Config{Width: dw, Height: dh},
	}
	for i := range in.Frames {
		anim.Delay[i] = Delay(in.Frames[i].Duration)
	}
	if err := stdgif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("gif: encode: %w", err)
	}
	return nil
}

func (e *Encoder) params(opts any) Params {
	switch v := opts.(type) {
	case Params:
		return normalize(v, e.defaults)
	case *Params:
		if v != nil {
			return normalize(*v, e.defaults)
		}
	}
	return e.defaults
}

// quantizeFrame converts one frame into a paletted image of dw x dh.
func (e *Encoder) quantizeFrame(f frame.Frame, w, h, dw, dh int, p Params) (*image.Paletted, error) {
	src, err := encode.ToImage(f, w, h)
	if err != nil {
		return nil, err
	}
	if dw != w || dh != h {
		dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		src = dst
	}

	palette := e.quantizer.Quantize(make(color.Palette, 0, p.Colors), sample(src, p.SampleFactor))
	if len(palette) == 0 {
		palette = color.Palette{color.Black}
	}
	return mapIndices(src, palette), nil
}

// mapIndices assigns every pixel of src its nearest palette entry, caching
// the lookup per distinct color.
func mapIndices(src *image.RGBA, palette color.Palette) *image.Paletted {
	b := src.Bounds()
	dst := image.NewPaletted(b, palette)
	cache := make(map[uint32]uint8)
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x := range out {
			px := row[x*4 : x*4+4 : x*4+4]
			key := uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16 | uint32(px[3])<<24
			idx, ok := cache[key]
			if !ok {
				idx = uint8(palette.Index(color.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]})) //nolint:gosec // G115: palette has at most 256 entries
				cache[key] = idx
			}
			out[x] = idx
		}
	}
	return dst
}

// sample returns every factor-th pixel of src as a one-row image, or src
// itself when factor is 1 or the image is small.
func sample(src *image.RGBA, factor int) image.Image {
	n := src.Bounds().Dx() * src.Bounds().Dy()
	if factor <= 1 || n/factor < MaxColors {
		return src
	}
	out := image.NewRGBA(image.Rect(0, 0, n/factor, 1))
	w := src.Bounds().Dx()
	for i := range n / factor {
		k := i * factor
		off := (k/w)*src.Stride + (k%w)*4
		copy(out.Pix[i*4:i*4+4], src.Pix[off:off+4])
	}
	return out
}

// scaledSize applies scale to w x h, keeping each side at least one pixel.
func scaledSize(w, h int, scale float64) (int, int) {
	if scale >= 1 {
		return w, h
	}
	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}

// Delay converts a frame duration to GIF delay units of 10ms, capped at
// MaxDelay.
func Delay(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(min(d/(10*time.Millisecond), MaxDelay))
}

// Ensure Encoder implements encode.Encoder.
var _ encode.Encoder = (*Encoder)(nil)
