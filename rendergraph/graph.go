// Package rendergraph implements the Render Graph (spec.md §4.2, component
// 7): per-tick upload of input YUV frames, recursive fallback-aware
// rendering of a validated scene's nodes in GPU texture space, and download
// of each output's resolved texture back to planar YUV.
package rendergraph

import (
	"context"
	"fmt"
	"time"

	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
)

// ResolutionLookup returns the texture resolution a node renders at. Shader
// and text nodes carry an explicit resolution in their Params; builtin
// layout/mirror/corners/transition nodes inherit the resolution of the
// canvas they composite into. The pipeline orchestrator builds this from
// the installed scene's node Params, keeping that policy out of
// rendergraph (SPEC_FULL.md §4.2).
type ResolutionLookup func(scene.NodeID) (width, height uint32)

// Graph holds one installed scene's resolved renderers and owns the
// per-node NodeTexture set for as long as that scene stays installed
// (SPEC_FULL.md §4.2 — "rebuilt on scene swap").
type Graph struct {
	gpu  *gpucontext.Context
	spec scene.SceneSpec

	nodesByID        map[scene.NodeID]*scene.NodeSpec
	renderers        map[scene.NodeID]builtin.Renderer
	registeredInputs map[scene.InputID]struct{}
	resolution       ResolutionLookup
	fallbackTimeout  time.Duration

	nodeTextures  map[scene.NodeID]*gputexture.NodeTexture
	inputPlanar   map[scene.InputID]*gputexture.PlanarYUV
	inputTextures map[scene.InputID]*gputexture.NodeTexture
	inputLastSeen map[scene.InputID]time.Time

	resolveMemo map[scene.NodeID]*gputexture.NodeTexture
	currentPTS  float64
}

// New builds a Graph for an already-validated scene. renderers must have
// one entry per node in spec.Nodes, resolved from the shader/image/web
// registries and the builtin dispatch table at scene-install time.
func New(gpu *gpucontext.Context, spec scene.SceneSpec, renderers map[scene.NodeID]builtin.Renderer, registeredInputs map[scene.InputID]struct{}, resolution ResolutionLookup, fallbackTimeout time.Duration) *Graph {
	nodesByID := make(map[scene.NodeID]*scene.NodeSpec, len(spec.Nodes))
	for i := range spec.Nodes {
		nodesByID[spec.Nodes[i].NodeID] = &spec.Nodes[i]
	}
	return &Graph{
		gpu:              gpu,
		spec:             spec,
		nodesByID:        nodesByID,
		renderers:        renderers,
		registeredInputs: registeredInputs,
		resolution:       resolution,
		fallbackTimeout:  fallbackTimeout,
		nodeTextures:     make(map[scene.NodeID]*gputexture.NodeTexture, len(spec.Nodes)),
		inputPlanar:      make(map[scene.InputID]*gputexture.PlanarYUV),
		inputTextures:    make(map[scene.InputID]*gputexture.NodeTexture),
		inputLastSeen:    make(map[scene.InputID]time.Time),
	}
}

// Execute runs one tick: upload, recursive fallback-aware render, and
// download (spec.md §4.2 steps 1-4), returning one YUVFrame per output
// whose resolved texture produced a frame this tick. outputPlanes must
// hold one already-sized OutputPlanes per entry in spec.Outputs, owned by
// the caller (the registries fix an output's resolution at registration,
// not per tick).
func (g *Graph) Execute(ctx context.Context, frames FrameSet, outputPlanes map[scene.OutputID]*gputexture.OutputPlanes) (*OutputFrameSet, error) {
	g.resolveMemo = make(map[scene.NodeID]*gputexture.NodeTexture, len(g.nodesByID))
	g.currentPTS = frames.PTS

	if err := g.upload(frames); err != nil {
		return nil, fmt.Errorf("rendergraph: upload: %w", err)
	}

	result := &OutputFrameSet{PTS: frames.PTS, Outputs: make(map[scene.OutputID]YUVFrame, len(g.spec.Outputs))}
	for _, o := range g.spec.Outputs {
		target := g.resolve(o.InputPad)
		if target == nil || target.Empty() {
			continue
		}
		planes, ok := outputPlanes[o.OutputID]
		if !ok {
			return nil, fmt.Errorf("rendergraph: no OutputPlanes supplied for output %q", o.OutputID)
		}
		frame, err := g.download(target, planes)
		if err != nil {
			return nil, fmt.Errorf("rendergraph: download output %q: %w", o.OutputID, err)
		}
		result.Outputs[o.OutputID] = frame
	}
	return result, nil
}

// upload converts this tick's input frames to RGBA (spec.md §4.2 step 1).
// An input absent from frames.Frames retains its previous texture state if
// a frame arrived within fallbackTimeout of now; otherwise its texture is
// marked empty.
func (g *Graph) upload(frames FrameSet) error {
	now := time.Now()
	for id := range g.registeredInputs {
		target := g.inputTextures[id]
		if target == nil {
			target = gputexture.NewNodeTexture(fmt.Sprintf("input %s", id))
			g.inputTextures[id] = target
		}

		frame, fresh := frames.Frames[id]
		if fresh {
			if err := g.uploadOne(id, frame, target); err != nil {
				return err
			}
			g.inputLastSeen[id] = now
			target.MarkProduced()
			continue
		}

		last, seen := g.inputLastSeen[id]
		if seen && now.Sub(last) <= g.fallbackTimeout && target.Allocated() {
			target.MarkProduced()
			continue
		}
		target.MarkEmpty()
	}
	return nil
}

func (g *Graph) uploadOne(id scene.InputID, frame YUVFrame, target *gputexture.NodeTexture) error {
	planar := g.inputPlanar[id]
	if planar == nil {
		planar = gputexture.NewPlanarYUV(fmt.Sprintf("input %s planar", id))
		g.inputPlanar[id] = planar
	}
	if err := planar.EnsureSize(g.gpu, frame.Width, frame.Height); err != nil {
		return fmt.Errorf("rendergraph: size input %q planes: %w", id, err)
	}
	planar.Upload(g.gpu, frame.Y, frame.U, frame.V)

	if err := target.EnsureSize(g.gpu, frame.Width, frame.Height); err != nil {
		return fmt.Errorf("rendergraph: size input %q texture: %w", id, err)
	}

	bindGroup, err := gputexture.BuildYUVToRGBABindGroup(g.gpu, planar, target)
	if err != nil {
		return fmt.Errorf("rendergraph: input %q bind group: %w", id, err)
	}
	defer bindGroup.Release()

	encoder, err := g.gpu.Device().CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("rendergraph: input %q command encoder: %w", id, err)
	}
	gputexture.DispatchConversion(encoder, g.gpu.Conversions().YUVToRGBA(), bindGroup, frame.Width, frame.Height)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("rendergraph: input %q finish: %w", id, err)
	}
	g.gpu.Queue().Submit(cmd)
	cmd.Release()
	encoder.Release()
	return nil
}

// resolve is the memoized recursive fallback-resolution function (spec.md
// §4.2 step 3, §9 Design Notes): it returns the NodeTexture a pad resolves
// to, rendering a node on demand the first time it is needed and following
// fallback_id chains transitively. Recursion is bounded only by the
// validator's acyclicity guarantee over input_pads ∪ {fallback_id}.
func (g *Graph) resolve(pad scene.NodeID) *gputexture.NodeTexture {
	if t, ok := g.resolveMemo[pad]; ok {
		return t
	}

	node, isNode := g.nodesByID[pad]
	if !isNode {
		t := g.inputTextures[scene.InputID(pad)]
		g.resolveMemo[pad] = t
		return t
	}

	target := g.nodeTextures[pad]
	if target == nil {
		target = gputexture.NewNodeTexture(fmt.Sprintf("node %s", pad))
		g.nodeTextures[pad] = target
	}
	w, h := g.resolution(pad)
	if err := target.EnsureSize(g.gpu, w, h); err != nil {
		Logger().Error("rendergraph: size node texture failed", "node", pad, "error", err)
		target.MarkEmpty()
		g.resolveMemo[pad] = target
		return target
	}
	target.MarkEmpty()
	g.resolveMemo[pad] = target // break cycles defensively; validator already forbids them

	inputs := make([]*gputexture.NodeTexture, len(node.InputPads))
	allMissing := true
	anyMissing := false
	for i, p := range node.InputPads {
		in := g.resolve(p)
		inputs[i] = in
		if in == nil || in.Empty() {
			anyMissing = true
		} else {
			allMissing = false
		}
	}
	if len(node.InputPads) == 0 {
		allMissing = true
	}

	r := g.renderers[pad]
	if r == nil {
		Logger().Error("rendergraph: no renderer resolved for node", "node", pad)
		return target
	}

	fallbackTriggered := false
	switch r.FallbackStrategy() {
	case builtin.FallbackIfAllInputsMissing:
		fallbackTriggered = allMissing
	case builtin.FallbackIfAnyInputMissing:
		fallbackTriggered = anyMissing
	}

	if fallbackTriggered {
		if node.FallbackID != nil {
			fb := g.resolve(*node.FallbackID)
			if fb != nil && !fb.Empty() {
				if err := builtin.Blit(g.gpu, fb, target); err != nil {
					Logger().Error("rendergraph: fallback blit failed", "node", pad, "error", err)
					target.MarkEmpty()
				}
			}
		}
		return target
	}

	if err := r.Render(context.Background(), g.gpu, inputs, target, g.currentPTS); err != nil {
		Logger().Error("rendergraph: render failed, frame dropped", "node", pad, "error", err)
		target.MarkEmpty()
	}
	return target
}

func (g *Graph) download(src *gputexture.NodeTexture, planes *gputexture.OutputPlanes) (YUVFrame, error) {
	if err := planes.EnsureSize(g.gpu, src.Width(), src.Height()); err != nil {
		return YUVFrame{}, fmt.Errorf("size output planes: %w", err)
	}
	bindGroup, err := gputexture.BuildRGBAToYUVBindGroup(g.gpu, src, planes)
	if err != nil {
		return YUVFrame{}, fmt.Errorf("bind group: %w", err)
	}
	defer bindGroup.Release()

	encoder, err := g.gpu.Device().CreateCommandEncoder(nil)
	if err != nil {
		return YUVFrame{}, fmt.Errorf("command encoder: %w", err)
	}
	gputexture.DispatchConversion(encoder, g.gpu.Conversions().RGBAToYUV(), bindGroup, src.Width(), src.Height())
	planes.EncodeDownload(encoder)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return YUVFrame{}, fmt.Errorf("finish: %w", err)
	}
	g.gpu.Queue().Submit(cmd)
	cmd.Release()
	encoder.Release()

	y, u, v, err := planes.ReadPlanes()
	if err != nil {
		return YUVFrame{}, err
	}
	return YUVFrame{Y: y, U: u, V: v, Width: planes.Width(), Height: planes.Height()}, nil
}
