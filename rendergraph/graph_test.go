//go:build !nogpu

package rendergraph

import (
	"context"
	"testing"
	"time"

	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
)

func solidFrame(w, h uint32, yVal byte) YUVFrame {
	y := make([]byte, w*h)
	u := make([]byte, (w/2)*(h/2))
	v := make([]byte, (w/2)*(h/2))
	for i := range y {
		y[i] = yVal
	}
	for i := range u {
		u[i], v[i] = 128, 128
	}
	return YUVFrame{Y: y, U: u, V: v, Width: w, Height: h}
}

func newTestContext(t *testing.T) *gpucontext.Context {
	t.Helper()
	ctx, err := gpucontext.NewContext(gpucontext.WithForceFallbackAdapter())
	if err != nil {
		t.Fatalf("NewContext() returned error: %v", err)
	}
	t.Cleanup(ctx.Teardown)
	return ctx
}

// TestGraph_FixedPositionComposite covers boundary-scenario-adjacent ground:
// two inputs composited by a single builtin node into one output, mirroring
// boundary scenario 1's "two inputs, one [renderer]" shape using a builtin
// renderer in place of a user shader (shader-kind node resolution is built
// by the pipeline orchestrator, outside rendergraph's scope).
func TestGraph_FixedPositionComposite(t *testing.T) {
	gpu := newTestContext(t)

	top := float32(0)
	left := float32(0)
	right := float32(0)
	bottom := float32(0)
	spec := scene.SceneSpec{
		Nodes: []scene.NodeSpec{
			{NodeID: "mix", InputPads: []scene.NodeID{"a", "b"}},
		},
		Outputs: []scene.OutputSpec{{OutputID: "out", InputPad: "mix"}},
	}

	r, err := builtin.New("builtin/fixed_position_layout", builtin.FixedPositionLayoutSpec{
		Layouts: []builtin.FixedPositionEntry{
			{Top: &top, Left: &left, WidthPct: 0.5, HeightPct: 1},
			{Top: &top, Right: &right, WidthPct: 0.5, HeightPct: 1},
		},
	})
	_ = bottom
	if err != nil {
		t.Fatalf("builtin.New() returned error: %v", err)
	}

	renderers := map[scene.NodeID]builtin.Renderer{"mix": r}
	registeredInputs := map[scene.InputID]struct{}{"a": {}, "b": {}}
	resolution := func(scene.NodeID) (uint32, uint32) { return 4, 4 }

	g := New(gpu, spec, renderers, registeredInputs, resolution, time.Second)

	outputPlanes := map[scene.OutputID]*gputexture.OutputPlanes{
		"out": gputexture.NewOutputPlanes("out"),
	}
	t.Cleanup(func() { outputPlanes["out"].Release() })

	frames := FrameSet{
		PTS: 0,
		Frames: map[scene.InputID]YUVFrame{
			"a": solidFrame(4, 4, 0),
			"b": solidFrame(4, 4, 255),
		},
	}

	result, err := g.Execute(context.Background(), frames, outputPlanes)
	if err != nil {
		t.Fatalf("Execute() returned error: %v", err)
	}
	frame, ok := result.Outputs["out"]
	if !ok {
		t.Fatalf("Execute() result missing output %q", "out")
	}
	if frame.Width != 4 || frame.Height != 4 {
		t.Errorf("output frame = %dx%d, want 4x4", frame.Width, frame.Height)
	}
}

// TestGraph_StreamFallbackTimeout covers boundary scenario 5: a single
// input stops producing frames; within the fallback timeout the previous
// frame is reused, and once the timeout elapses the node is treated as
// empty.
func TestGraph_StreamFallbackTimeout(t *testing.T) {
	gpu := newTestContext(t)

	spec := scene.SceneSpec{
		Nodes: []scene.NodeSpec{
			{NodeID: "pass", InputPads: []scene.NodeID{"a"}},
		},
		Outputs: []scene.OutputSpec{{OutputID: "out", InputPad: "pass"}},
	}
	r, err := builtin.New("builtin/stretch_to_resolution", nil)
	if err != nil {
		t.Fatalf("builtin.New() returned error: %v", err)
	}
	renderers := map[scene.NodeID]builtin.Renderer{"pass": r}
	registeredInputs := map[scene.InputID]struct{}{"a": {}}
	resolution := func(scene.NodeID) (uint32, uint32) { return 2, 2 }

	g := New(gpu, spec, renderers, registeredInputs, resolution, 20*time.Millisecond)
	outputPlanes := map[scene.OutputID]*gputexture.OutputPlanes{"out": gputexture.NewOutputPlanes("out")}
	t.Cleanup(func() { outputPlanes["out"].Release() })

	frames := FrameSet{PTS: 0, Frames: map[scene.InputID]YUVFrame{"a": solidFrame(2, 2, 200)}}
	if _, err := g.Execute(context.Background(), frames, outputPlanes); err != nil {
		t.Fatalf("Execute() (tick 1) returned error: %v", err)
	}

	// Within the timeout: input omitted from FrameSet but should still
	// produce output by reusing the last frame.
	result, err := g.Execute(context.Background(), FrameSet{PTS: 1.0 / 30, Frames: map[scene.InputID]YUVFrame{}}, outputPlanes)
	if err != nil {
		t.Fatalf("Execute() (tick 2) returned error: %v", err)
	}
	if _, ok := result.Outputs["out"]; !ok {
		t.Errorf("Execute() within fallback timeout produced no output, want reused last frame")
	}

	time.Sleep(30 * time.Millisecond)

	result, err = g.Execute(context.Background(), FrameSet{PTS: 2.0 / 30, Frames: map[scene.InputID]YUVFrame{}}, outputPlanes)
	if err != nil {
		t.Fatalf("Execute() (tick 3) returned error: %v", err)
	}
	if _, ok := result.Outputs["out"]; ok {
		t.Errorf("Execute() past fallback timeout produced an output, want omitted (all-inputs-missing)")
	}
}
