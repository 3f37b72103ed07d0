//go:build !nogpu

package gputexture

import (
	"testing"

	"github.com/oxy-systems/scenecompositor/gpucontext"
)

// TestYUVRoundTrip covers spec.md §8's round-trip property: YUV -> RGBA ->
// YUV through the conversion pipelines (the identity "shader" here, since
// no renderer touches the texture in between) reproduces the input within
// a per-pixel tolerance of +-1. Only the Y plane is compared here.
func TestYUVRoundTrip(t *testing.T) {
	ctx, err := gpucontext.NewContext(gpucontext.WithForceFallbackAdapter())
	if err != nil {
		t.Fatalf("NewContext() returned error: %v", err)
	}
	defer ctx.Teardown()

	const w, h = 4, 4
	y := make([]byte, w*h)
	u := make([]byte, (w/2)*(h/2))
	v := make([]byte, (w/2)*(h/2))
	for i := range y {
		y[i] = byte(64 + i*8)
	}
	for i := range u {
		u[i] = 140
		v[i] = 110
	}

	planar := NewPlanarYUV("test input")
	if err := planar.EnsureSize(ctx, w, h); err != nil {
		t.Fatalf("EnsureSize(planar): %v", err)
	}
	defer planar.Release()
	planar.Upload(ctx, y, u, v)

	rgba := NewNodeTexture("test node")
	if err := rgba.EnsureSize(ctx, w, h); err != nil {
		t.Fatalf("EnsureSize(rgba): %v", err)
	}
	defer rgba.Release()

	bg, err := BuildYUVToRGBABindGroup(ctx, planar, rgba)
	if err != nil {
		t.Fatalf("BuildYUVToRGBABindGroup: %v", err)
	}
	defer bg.Release()

	encoder, err := ctx.Device().CreateCommandEncoder(nil)
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	DispatchConversion(encoder, ctx.Conversions().YUVToRGBA(), bg, w, h)

	out := NewOutputPlanes("test output")
	if err := out.EnsureSize(ctx, w, h); err != nil {
		t.Fatalf("EnsureSize(out): %v", err)
	}
	defer out.Release()

	bg2, err := BuildRGBAToYUVBindGroup(ctx, rgba, out)
	if err != nil {
		t.Fatalf("BuildRGBAToYUVBindGroup: %v", err)
	}
	defer bg2.Release()
	DispatchConversion(encoder, ctx.Conversions().RGBAToYUV(), bg2, w, h)
	out.EncodeDownload(encoder)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	ctx.Queue().Submit(cmd)
	cmd.Release()
	encoder.Release()

	gotY, _, _, err := out.ReadPlanes()
	if err != nil {
		t.Fatalf("ReadPlanes: %v", err)
	}
	for i := range y {
		diff := int(gotY[i]) - int(y[i])
		if diff < -1 || diff > 1 {
			t.Errorf("Y[%d] round-tripped to %d, want %d +-1", i, gotY[i], y[i])
		}
	}
}
