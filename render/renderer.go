// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/capture/frame"
)

// Allocator creates offscreen targets for recorder cameras.
//
// Allocate is called from the simulation phase when a tracking request is
// accepted. The returned target must be usable as a render attachment by
// the host and as a copy source by the matching Reader.
type Allocator interface {
	Allocate(width, height int, format gputypes.TextureFormat) (Target, error)
}

// Reader copies the current contents of a target into host memory.
//
// ReadPixels blocks until the copy completes. The returned extract holds
// exactly width*height*bytes-per-pixel bytes with row padding removed, in
// red-first channel order (BGRA targets are swizzled). An error only
// affects the target being read; callers continue with other targets.
type Reader interface {
	ReadPixels(ctx context.Context, target Target) (frame.Extract, error)
}

// Backend bundles an Allocator with the Reader that understands its targets.
type Backend interface {
	Allocator
	Reader
}
