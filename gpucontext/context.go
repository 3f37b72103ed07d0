// Package gpucontext owns the process-scoped GPU resources every other
// package in this module builds on top of: the wgpu device/queue pair, the
// shared linear sampler bound at shader bind group 2, the 1x1 empty texture
// used to fill unused slots of the shader input texture array, and the
// format-conversion pipelines (YUV<->RGBA, R8 fill) the render graph and
// texture layer drive every tick. There is exactly one Context per process;
// every texture and pipeline built elsewhere holds a non-owning reference to
// it and must not outlive Teardown.
package gpucontext

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Context is the shared GPU resource root. All fields below are immutable
// after NewContext returns, including the format-conversion pipelines,
// which NewContext builds eagerly rather than registering them lazily.
type Context struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	linearSampler *wgpu.Sampler

	// emptyTexture/emptyView back the unused slots of a shader's
	// binding_array<texture_2d<f32>, 16> input array (shader.Header).
	emptyTexture *wgpu.Texture
	emptyView    *wgpu.TextureView

	conv *conversionPipelines
}

// Option configures NewContext. Calling NewContext with no options requests
// the system's default high-performance adapter with no fallback.
type Option func(*options)

type options struct {
	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference
}

// WithForceFallbackAdapter requests a software (CPU) adapter instead of a
// hardware GPU, matching the teacher's newWGPURendererBackend parameter of
// the same name. Useful for CI and headless environments without a GPU.
func WithForceFallbackAdapter() Option {
	return func(o *options) { o.forceFallbackAdapter = true }
}

// WithPowerPreference overrides the adapter power preference; the default
// is wgpu.PowerPreferenceHighPerformance.
func WithPowerPreference(p wgpu.PowerPreference) Option {
	return func(o *options) { o.powerPreference = p }
}

// NewContext creates the wgpu instance, requests an adapter and device, and
// builds the shared sampler, empty fallback texture, and format-conversion
// pipelines. Unlike the teacher's newWGPURendererBackend (which panics on
// adapter/device failure because it runs at interactive-app startup), this
// constructor returns an error: GPU device loss at startup is classified as
// a fatal Initialization error by the control API (spec.md §7), not a
// process panic, since the compositor is a long-running server.
//
// The compositor is headless: there is no wgpu.Surface and no
// CompatibleSurface constraint on adapter selection, unlike the teacher
// (which always renders to an on-screen window).
func NewContext(opts ...Option) (*Context, error) {
	cfg := options{powerPreference: wgpu.PowerPreferenceHighPerformance}
	for _, opt := range opts {
		opt(&cfg)
	}

	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		PowerPreference:      cfg.powerPreference,
	})
	if err != nil {
		return nil, fmt.Errorf("gpucontext: request adapter: %w", err)
	}

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 3
	// 128 covers both the shared effect pipeline's 80-byte EffectParams and
	// the shader contract's 16-byte CommonShaderParameters.
	limits.MaxPushConstantSize = 128

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "compositor device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
		RequiredFeatures: []wgpu.FeatureName{wgpu.FeatureNamePushConstants},
	})
	if err != nil {
		return nil, fmt.Errorf("gpucontext: request device: %w", err)
	}

	c := &Context{
		mu:       &sync.Mutex{},
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
	}

	if err := c.buildSharedSampler(); err != nil {
		c.Teardown()
		return nil, err
	}
	if err := c.buildEmptyTexture(); err != nil {
		c.Teardown()
		return nil, err
	}
	conv, err := newConversionPipelines(device)
	if err != nil {
		c.Teardown()
		return nil, fmt.Errorf("gpucontext: conversion pipelines: %w", err)
	}
	c.conv = conv

	return c, nil
}

func (c *Context) buildSharedSampler() error {
	s, err := c.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "shared linear sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   1,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("gpucontext: create shared sampler: %w", err)
	}
	c.linearSampler = s
	return nil
}

func (c *Context) buildEmptyTexture() error {
	tex, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "empty input slot",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("gpucontext: create empty texture: %w", err)
	}

	c.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, MipLevel: 0, Aspect: wgpu.TextureAspectAll},
		[]byte{0, 0, 0, 0},
		&wgpu.TextureDataLayout{BytesPerRow: 4, RowsPerImage: 1},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("gpucontext: create empty texture view: %w", err)
	}
	c.emptyTexture = tex
	c.emptyView = view
	return nil
}

// Device returns the shared wgpu device.
func (c *Context) Device() *wgpu.Device { return c.device }

// Queue returns the shared wgpu queue.
func (c *Context) Queue() *wgpu.Queue { return c.queue }

// Instance returns the wgpu instance the context was created from.
func (c *Context) Instance() *wgpu.Instance { return c.instance }

// Adapter returns the adapter the device was requested from.
func (c *Context) Adapter() *wgpu.Adapter { return c.adapter }

// SharedSampler returns the linear sampler bound at every shader's
// @group(2) @binding(0), per the shader contract (spec.md §4.3).
func (c *Context) SharedSampler() *wgpu.Sampler { return c.linearSampler }

// EmptyTextureView returns the 1x1 transparent-black texture view used to
// fill unused slots of a shader's binding_array<texture_2d<f32>, 16>.
func (c *Context) EmptyTextureView() *wgpu.TextureView { return c.emptyView }

// Conversions returns the format-conversion pipelines (YUV<->RGBA, R8
// fill) shared by every node texture and output in the render graph.
func (c *Context) Conversions() *conversionPipelines { return c.conv }

// Teardown releases every GPU resource owned by the context. Textures,
// pipelines, and bind groups built against this context by other packages
// must be released before calling Teardown; the context does not track
// them (see DESIGN.md's ownership notes).
func (c *Context) Teardown() {
	if c.conv != nil {
		c.conv.release()
	}
	if c.emptyView != nil {
		c.emptyView.Release()
	}
	if c.emptyTexture != nil {
		c.emptyTexture.Release()
	}
	if c.linearSampler != nil {
		c.linearSampler.Release()
	}
	if c.device != nil {
		c.device.Release()
	}
	if c.adapter != nil {
		c.adapter.Release()
	}
}
