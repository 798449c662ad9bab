// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Render errors.
var (
	// ErrNoHALDevice is returned when a device provider does not expose
	// HAL device and queue handles.
	ErrNoHALDevice = errors.New("render: provider does not expose a HAL device")

	// ErrUnsupportedTarget is returned when a Reader is given a target it
	// did not allocate.
	ErrUnsupportedTarget = errors.New("render: unsupported target type")

	// ErrUnsupportedFormat is returned for formats without a known pixel size.
	ErrUnsupportedFormat = errors.New("render: unsupported texture format")

	// ErrEmptyTarget is returned when allocating a target with no pixels on
	// a device that cannot represent one.
	ErrEmptyTarget = errors.New("render: target has zero width or height")

	// ErrReadbackTimeout is returned when the device does not complete the
	// readback submission in time.
	ErrReadbackTimeout = errors.New("render: timed out waiting for readback")

	// ErrDestroyed is returned when reading a target after Destroy.
	ErrDestroyed = errors.New("render: target destroyed")
)

// DeviceHandle provides GPU device access from the host application.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider so that any gogpu
// host can be passed to NewHALBackend directly.
type DeviceHandle = gpucontext.DeviceProvider

// halProvider is implemented by device providers that expose the HAL
// objects behind their gpucontext handles.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// halFromProvider extracts the HAL device and queue from provider.
func halFromProvider(provider DeviceHandle) (hal.Device, hal.Queue, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, ErrNoHALDevice
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, ErrNoHALDevice
	}
	return device, queue, nil
}

// NullDeviceHandle is a DeviceHandle without a device. Hosts that render on
// the CPU pass it where a handle is required and use PixmapAllocator and
// PixmapReader instead of a HALBackend.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo reports an unknown adapter for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
