// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/pixel"
)

// DefaultReadbackTimeout bounds the completion wait of one readback.
const DefaultReadbackTimeout = 5 * time.Second

// targetUsage is the usage of every recorder target: the host renders into
// it and the backend copies out of it.
const targetUsage = gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst

// HALOption configures a HALBackend.
type HALOption func(*HALBackend)

// WithRowAlignment overrides the bytes-per-row alignment of staging copies.
// The default is pixel.RowAlignment.
func WithRowAlignment(align int) HALOption {
	return func(b *HALBackend) {
		if align > 0 {
			b.align = align
		}
	}
}

// WithReadbackTimeout bounds how long a readback waits for the device.
func WithReadbackTimeout(d time.Duration) HALOption {
	return func(b *HALBackend) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithHALLogger sets the logger used for device diagnostics.
func WithHALLogger(l *slog.Logger) HALOption {
	return func(b *HALBackend) {
		if l != nil {
			b.log = l
		}
	}
}

// HALBackend allocates recorder targets as HAL textures and reads them back
// through a mappable staging buffer.
//
// Each readback is a blocking round trip: encode the copy, submit, poll the
// queue until the submission completes, map the staging buffer. Round trips are serialized because they
// share the host's queue.
type HALBackend struct {
	device  hal.Device
	queue   hal.Queue
	align   int
	timeout time.Duration
	log     *slog.Logger

	mu sync.Mutex
}

// NewHALBackend creates a backend on the device shared by the host.
// The provider must expose HalDevice() and HalQueue(); otherwise
// ErrNoHALDevice is returned and the host should fall back to pixmap
// targets.
func NewHALBackend(provider DeviceHandle, opts ...HALOption) (*HALBackend, error) {
	if provider == nil {
		return nil, ErrNoHALDevice
	}
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return nil, err
	}
	return NewHALBackendFromDevice(device, queue, opts...), nil
}

// NewHALBackendFromDevice creates a backend on an explicit device and queue.
func NewHALBackendFromDevice(device hal.Device, queue hal.Queue, opts ...HALOption) *HALBackend {
	b := &HALBackend{
		device:  device,
		queue:   queue,
		align:   pixel.RowAlignment,
		timeout: DefaultReadbackTimeout,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allocate creates a 2D texture target and a view for the host to render
// into. Zero-area targets cannot be represented on the device.
func (b *HALBackend) Allocate(width, height int, format gputypes.TextureFormat) (Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("allocate %dx%d: %w", width, height, ErrEmptyTarget)
	}
	if pixel.BytesPerPixel(format) == 0 {
		return nil, fmt.Errorf("allocate %v: %w", format, ErrUnsupportedFormat)
	}

	//nolint:gosec // G115: dimensions are positive and bounded by device limits
	size := hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "capture_target",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         targetUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("create target texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "capture_target_view",
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create target view: %w", err)
	}
	b.log.Debug("render: allocated target", "width", width, "height", height, "format", format)
	return &TextureTarget{
		device:  b.device,
		texture: tex,
		view:    view,
		width:   width,
		height:  height,
		format:  format,
	}, nil
}

// ReadPixels copies target into host memory. The staging buffer uses
// aligned rows for every height, including single-row targets; the padding
// is stripped and BGRA data is swizzled before returning.
func (b *HALBackend) ReadPixels(ctx context.Context, target Target) (frame.Extract, error) {
	tt, ok := target.(*TextureTarget)
	if !ok {
		return frame.Extract{}, ErrUnsupportedTarget
	}
	if err := ctx.Err(); err != nil {
		return frame.Extract{}, err
	}
	bpp := pixel.BytesPerPixel(tt.format)
	if bpp == 0 {
		return frame.Extract{}, fmt.Errorf("readback %v: %w", tt.format, ErrUnsupportedFormat)
	}

	// Hold the target so teardown cannot destroy the texture mid-copy.
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if tt.texture == nil {
		return frame.Extract{}, ErrDestroyed
	}

	b.mu.Lock()
	raw, stride, err := b.copyToHost(ctx, tt.texture, tt.width, tt.height, bpp)
	b.mu.Unlock()
	if err != nil {
		return frame.Extract{}, err
	}

	tight, err := pixel.Depad(raw, tt.width, tt.height, bpp, stride)
	if err != nil {
		return frame.Extract{}, fmt.Errorf("readback: %w", err)
	}
	format := pixel.ToCanonical(tight, tt.format)
	return frame.Extract{Pixels: tight, Width: tt.width, Height: tt.height, Format: format}, nil
}

// copyToHost performs the device round trip and returns the padded rows.
func (b *HALBackend) copyToHost(ctx context.Context, tex hal.Texture, w, h, bpp int) ([]byte, int, error) {
	stride := pixel.AlignedRowBytes(w, bpp, b.align)
	stagingSize := uint64(stride) * uint64(h) //nolint:gosec // G115: both non-negative

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "capture_readback_encoder",
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("capture_readback"); err != nil {
		return nil, 0, fmt.Errorf("begin encoding: %w", err)
	}

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "capture_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, 0, fmt.Errorf("create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	// The host last used the target as a render attachment.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	//nolint:gosec // G115: dimensions are positive and bounded by device limits
	encoder.CopyTextureToBuffer(tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(stride), RowsPerImage: uint32(h)},
		TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	}})

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, 0, fmt.Errorf("end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	idx, err := b.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return nil, 0, fmt.Errorf("submit: %w", err)
	}
	if err := b.awaitSubmission(ctx, idx); err != nil {
		return nil, 0, err
	}

	mapping, err := b.device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, 0, fmt.Errorf("map staging buffer: %w", err)
	}
	raw := make([]byte, stagingSize)
	copy(raw, unsafe.Slice((*byte)(mapping.Ptr), stagingSize))
	if err := b.device.UnmapBuffer(staging); err != nil {
		return nil, 0, fmt.Errorf("unmap staging buffer: %w", err)
	}
	b.log.Debug("render: readback", "width", w, "height", h, "stride", stride, "bytes", stagingSize)
	return raw, stride, nil
}

// pollInterval is the delay between completion checks of a submission.
const pollInterval = time.Millisecond

// awaitSubmission blocks until the queue reports submission idx complete,
// the readback timeout expires or ctx is done.
func (b *HALBackend) awaitSubmission(ctx context.Context, idx uint64) error {
	if b.queue.PollCompleted() >= idx {
		return nil
	}
	timer := time.NewTimer(b.waitTimeout(ctx))
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if b.queue.PollCompleted() >= idx {
				return nil
			}
			return ErrReadbackTimeout
		case <-ticker.C:
			if b.queue.PollCompleted() >= idx {
				return nil
			}
		}
	}
}

// waitTimeout returns the configured timeout, shortened to the context
// deadline when that comes first.
func (b *HALBackend) waitTimeout(ctx context.Context) time.Duration {
	timeout := b.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = max(left, 0)
		}
	}
	return timeout
}

// Ensure HALBackend implements Backend.
var _ Backend = (*HALBackend)(nil)
