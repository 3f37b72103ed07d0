package rendergraph

import "github.com/oxy-systems/scenecompositor/scene"

// YUVFrame is one decoded (or to-be-encoded) 4:2:0 8-bit planar frame,
// tightly packed row-major per plane — the CPU-side shape Upload and
// ReadPlanes move across the GPU boundary (spec.md §3 Frame).
type YUVFrame struct {
	Y, U, V       []byte
	Width, Height uint32
}

// FrameSet is one tick's worth of input frames, keyed by registered input
// id, plus the tick's target presentation timestamp (spec.md §4.4 step 2).
type FrameSet struct {
	PTS    float64
	Frames map[scene.InputID]YUVFrame
}

// OutputFrameSet is the render graph's result for one tick: one YUVFrame
// per registered output whose input pad resolved to a non-empty texture.
type OutputFrameSet struct {
	PTS     float64
	Outputs map[scene.OutputID]YUVFrame
}
