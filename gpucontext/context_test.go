//go:build !nogpu

package gpucontext

import "testing"

func TestNewContext_FallbackAdapter(t *testing.T) {
	ctx, err := NewContext(WithForceFallbackAdapter())
	if err != nil {
		t.Fatalf("NewContext() returned error: %v", err)
	}
	defer ctx.Teardown()

	if ctx.Device() == nil {
		t.Error("Device() = nil after successful NewContext")
	}
	if ctx.SharedSampler() == nil {
		t.Error("SharedSampler() = nil after successful NewContext")
	}
	if ctx.EmptyTextureView() == nil {
		t.Error("EmptyTextureView() = nil after successful NewContext")
	}
	if ctx.Conversions().YUVToRGBA() == nil {
		t.Error("Conversions().YUVToRGBA() = nil after successful NewContext")
	}
}
