// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render connects the capture pipeline to the host's GPU.
//
// The package never creates a GPU device. Like the rest of the gogpu stack
// it RECEIVES the device from the host application and only allocates the
// offscreen targets recorder cameras draw into, then copies those targets
// back to host memory once per tick.
//
// # Core Interfaces
//
//   - Target: an offscreen render target of known size and format
//   - Allocator: creates targets for new recorders
//   - Reader: copies a target into host memory (readback)
//
// # Implementations
//
//   - HALBackend: gogpu/wgpu HAL textures, staging-buffer readback
//   - PixmapAllocator/PixmapReader: CPU-backed targets for software hosts
//
// # Readback Contract
//
// Every Reader returns exactly width*height*bytes-per-pixel bytes in
// red-first channel order. Device copies pad each row to
// pixel.RowAlignment bytes; the padding is always stripped before a
// buffer leaves this package, because every encoder validates
// len == width*height*bytes-per-pixel.
//
// # Thread Safety
//
// HALBackend serializes its device round trips and is safe for concurrent
// use. PixmapTarget guards its pixels with a lock so the host may draw while
// a readback is in flight.
package render
