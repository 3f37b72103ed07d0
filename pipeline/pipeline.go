// Package pipeline implements the Pipeline Orchestrator (spec.md §2,
// component 9): the long-lived object a control API transport drives —
// registering inputs/outputs/shaders/images/web instances, validating and
// installing scenes, and running the render thread that ticks the frame
// queue, executes the render graph, and fans resolved frames out to egress.
// It imports most other packages in this module (the ingest and egress
// adapters are not among them), mirroring the teacher's engine package's role as the top-level object
// wiring scene, renderer, and window together.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oxy-systems/scenecompositor/api"
	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/compositerr"
	"github.com/oxy-systems/scenecompositor/framequeue"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/registry"
	"github.com/oxy-systems/scenecompositor/rendergraph"
	"github.com/oxy-systems/scenecompositor/scene"
	"github.com/oxy-systems/scenecompositor/shader"
	"github.com/oxy-systems/scenecompositor/webrenderer"
)

// Config bundles the tunables SPEC_FULL.md §4.4 leaves to the deployment
// rather than fixing as protocol constants (framerate, stream-fallback
// window, render-channel backlog depth).
type Config struct {
	Framerate        int
	FallbackTimeout  time.Duration
	BacklogThreshold int
}

// Pipeline is the compositor's top-level orchestrator. One Pipeline owns
// exactly one gpucontext.Context, one framequeue.Queue, and the three
// renderer registries; it rebuilds its rendergraph.Graph whenever a new
// scene is installed (spec.md §5: "resolution happens once per scene swap,
// not per frame").
type Pipeline struct {
	gpu    *gpucontext.Context
	cfg    Config
	queue  *framequeue.Queue

	shaders      *registry.Registry[shader.Shader]
	images       *registry.Registry[any]
	webInstances *registry.Registry[webrenderer.Instance]

	mu                sync.RWMutex
	registeredInputs  map[scene.InputID]struct{}
	registeredOutputs map[scene.OutputID]struct{}
	outputResolutions map[scene.OutputID][2]uint32
	outputPlanes      map[scene.OutputID]*gputexture.OutputPlanes

	installed     scene.SceneSpec
	installedJSON api.SceneJSON
	hasInstalled  bool
	graph         *rendergraph.Graph

	egressChans map[scene.OutputID]chan rendergraph.YUVFrame

	runCtx    context.Context
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	running   bool
}

// New builds a Pipeline against an already-initialized GPU context. The
// caller owns gpu's lifetime and must Teardown it only after Stop returns.
func New(gpu *gpucontext.Context, cfg Config) *Pipeline {
	return &Pipeline{
		gpu:               gpu,
		cfg:               cfg,
		queue:             framequeue.New(cfg.Framerate, cfg.FallbackTimeout, cfg.BacklogThreshold),
		shaders:           registry.New[shader.Shader]("shader"),
		images:            registry.New[any]("image"),
		webInstances:      registry.New[webrenderer.Instance]("web renderer"),
		registeredInputs:  make(map[scene.InputID]struct{}),
		registeredOutputs: make(map[scene.OutputID]struct{}),
		outputResolutions: make(map[scene.OutputID][2]uint32),
		outputPlanes:      make(map[scene.OutputID]*gputexture.OutputPlanes),
		egressChans:       make(map[scene.OutputID]chan rendergraph.YUVFrame),
	}
}

// Queue returns the frame queue, for an ingest adapter's Pump call.
func (p *Pipeline) Queue() *framequeue.Queue { return p.queue }

// --- Input registration (spec.md §6 register/unregister, entity_type=input_stream) ---

// RegisterInput admits a new input stream, creating its frame-queue FIFO.
// Fails if id is already registered. A collision with an installed scene's
// node ids is not checked here; scene.Validate reports it at the next
// UpdateScene.
func (p *Pipeline) RegisterInput(id scene.InputID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.registeredInputs[id]; exists {
		return compositerr.Registration(fmt.Errorf("pipeline: input %q already registered", id))
	}
	p.registeredInputs[id] = struct{}{}
	p.queue.RegisterInput(id)
	return nil
}

// UnregisterInput removes an input stream. Fails with a Registration error
// if the installed scene still references id directly (as a node's input
// pad or an output's input pad).
func (p *Pipeline) UnregisterInput(id scene.InputID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.registeredInputs[id]; !exists {
		return compositerr.Registration(fmt.Errorf("pipeline: input %q is not registered", id))
	}
	if p.hasInstalled && inputInUse(p.installed, id) {
		return compositerr.Registration(fmt.Errorf("pipeline: input %q is still referenced by the installed scene", id))
	}
	delete(p.registeredInputs, id)
	p.queue.UnregisterInput(id)
	return nil
}

func inputInUse(spec scene.SceneSpec, id scene.InputID) bool {
	pad := scene.NodeID(id)
	for i := range spec.Nodes {
		n := &spec.Nodes[i]
		for _, p := range n.InputPads {
			if p == pad {
				return true
			}
		}
		if n.FallbackID != nil && *n.FallbackID == pad {
			return true
		}
	}
	for _, o := range spec.Outputs {
		if o.InputPad == pad {
			return true
		}
	}
	return false
}

// WaitForNextFrame exposes framequeue.Queue.WaitForNextFrame for the
// control API's wait_for_next_frame query (spec.md §6).
func (p *Pipeline) WaitForNextFrame(id scene.InputID) framequeue.WaitListener {
	return p.queue.WaitForNextFrame(id)
}

// --- Output registration (entity_type=output_stream) ---

// RegisterOutput admits a new output stream at the given even luma
// resolution, allocating its download-plane staging buffers immediately
// rather than lazily, since an output's resolution is fixed at registration
// (spec.md §3) and its egress channel must exist before any scene that
// references it can be installed.
func (p *Pipeline) RegisterOutput(id scene.OutputID, width, height uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.registeredOutputs[id]; exists {
		return compositerr.Registration(fmt.Errorf("pipeline: output %q already registered", id))
	}
	if width%2 != 0 || height%2 != 0 {
		return compositerr.Registration(fmt.Errorf("pipeline: output %q resolution %dx%d is not even in both dimensions", id, width, height))
	}
	planes := gputexture.NewOutputPlanes(string(id))
	if err := planes.EnsureSize(p.gpu, width, height); err != nil {
		return compositerr.Initialization(fmt.Errorf("pipeline: output %q: %w", id, err))
	}
	p.registeredOutputs[id] = struct{}{}
	p.outputResolutions[id] = [2]uint32{width, height}
	p.outputPlanes[id] = planes
	p.egressChans[id] = make(chan rendergraph.YUVFrame, p.cfg.BacklogThreshold)
	return nil
}

// UnregisterOutput removes an output stream, releasing its plane buffers.
// Fails with a Registration error if the installed scene still targets id.
func (p *Pipeline) UnregisterOutput(id scene.OutputID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.registeredOutputs[id]; !exists {
		return compositerr.Registration(fmt.Errorf("pipeline: output %q is not registered", id))
	}
	if p.hasInstalled {
		for _, o := range p.installed.Outputs {
			if o.OutputID == id {
				return compositerr.Registration(fmt.Errorf("pipeline: output %q is still referenced by the installed scene", id))
			}
		}
	}
	p.outputPlanes[id].Release()
	delete(p.outputPlanes, id)
	delete(p.registeredOutputs, id)
	delete(p.outputResolutions, id)
	if ch, ok := p.egressChans[id]; ok {
		close(ch)
		delete(p.egressChans, id)
	}
	return nil
}

// EgressChan returns the channel an egress.Pump for id should drain.
func (p *Pipeline) EgressChan(id scene.OutputID) <-chan rendergraph.YUVFrame {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.egressChans[id]
}

// --- Renderer resource registration (entity_type=shader/image/web_renderer) ---

// RegisterShader parses and validates source, then registers it under id.
func (p *Pipeline) RegisterShader(id string, source string) error {
	sh, err := shader.NewShader(id, source)
	if err != nil {
		return compositerr.Registration(err)
	}
	if err := p.shaders.Register(id, sh); err != nil {
		return compositerr.Registration(err)
	}
	return nil
}

// UnregisterShader removes a registered shader, refusing while an installed
// scene's Shader node still selects it.
func (p *Pipeline) UnregisterShader(id string) error {
	if err := p.shaders.Unregister(id, p.shaderInUse); err != nil {
		return compositerr.Registration(err)
	}
	return nil
}

// RegisterImage decodes and registers a still image under id.
func (p *Pipeline) RegisterImage(id string, data []byte, path string) error {
	img, err := DecodeImage(data, path)
	if err != nil {
		return compositerr.Registration(fmt.Errorf("pipeline: image %q: %w", id, err))
	}
	if err := p.images.Register(id, img); err != nil {
		return compositerr.Registration(err)
	}
	return nil
}

// UnregisterImage removes a registered image, refusing while an installed
// scene's Image node still selects it.
func (p *Pipeline) UnregisterImage(id string) error {
	if err := p.images.Unregister(id, p.imageInUse); err != nil {
		return compositerr.Registration(err)
	}
	return nil
}

// RegisterWebRenderer registers a running web-renderer instance under id.
// Spawning/supervising inst's browser process is the caller's
// responsibility (webrenderer.Instance's concrete implementation is out of
// scope per spec.md §1).
func (p *Pipeline) RegisterWebRenderer(id string, inst webrenderer.Instance) error {
	if err := p.webInstances.Register(id, inst); err != nil {
		return compositerr.Registration(err)
	}
	return nil
}

// UnregisterWebRenderer removes a registered web-renderer instance,
// refusing while an installed scene's Web node still selects it, and
// closing the instance's browser process on success.
func (p *Pipeline) UnregisterWebRenderer(id string) error {
	inst, err := p.webInstances.Get(id)
	if err != nil {
		return compositerr.Registration(err)
	}
	if err := p.webInstances.Unregister(id, p.webInUse); err != nil {
		return compositerr.Registration(err)
	}
	return inst.Close()
}

func (p *Pipeline) shaderInUse(id string) bool {
	return p.installedUses(func(params scene.Params) bool {
		return params.Shader != nil && string(params.Shader.ShaderID) == id
	})
}

func (p *Pipeline) imageInUse(id string) bool {
	return p.installedUses(func(params scene.Params) bool {
		return params.Image != nil && string(params.Image.ImageID) == id
	})
}

func (p *Pipeline) webInUse(id string) bool {
	return p.installedUses(func(params scene.Params) bool {
		return params.Web != nil && string(params.Web.InstanceID) == id
	})
}

func (p *Pipeline) installedUses(match func(scene.Params) bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasInstalled {
		return false
	}
	for i := range p.installed.Nodes {
		params := p.installed.Nodes[i].Params
		if match(params) {
			return true
		}
		if params.Transition != nil && (match(params.Transition.Start) || match(params.Transition.End)) {
			return true
		}
	}
	return false
}

// --- Query responses (spec.md §6 query) ---

// Inputs returns every currently registered input id.
func (p *Pipeline) Inputs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.registeredInputs))
	for id := range p.registeredInputs {
		ids = append(ids, string(id))
	}
	return ids
}

// Outputs returns every currently registered output id.
func (p *Pipeline) Outputs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.registeredOutputs))
	for id := range p.registeredOutputs {
		ids = append(ids, string(id))
	}
	return ids
}

// Scene returns the currently installed scene, or false if none has been
// installed yet.
func (p *Pipeline) Scene() (scene.SceneSpec, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.installed, p.hasInstalled
}

// SceneJSON returns the wire representation of the currently installed
// scene, as originally submitted to UpdateScene, for the control API's
// query=scene response (spec.md §6). Returning the submitted JSON directly
// avoids a scene.SceneSpec -> api.SceneJSON reverse mapper that would just
// re-derive what the caller already has.
func (p *Pipeline) SceneJSON() (api.SceneJSON, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.installedJSON, p.hasInstalled
}

// --- Scene installation (spec.md §4.1, §5 "resolution happens once per
// scene swap, not per frame") ---

// UpdateScene validates sceneJSON against the installed registries and, on
// success, atomically swaps in a freshly built rendergraph.Graph — the
// previous graph (and its node textures) is simply dropped; NodeTexture
// allocation is lazy; nothing needs explicit release since wgpu resources
// held by the old graph's renderers are owned by the shader-pipeline cache
// and registries, not the graph itself.
func (p *Pipeline) UpdateScene(sceneJSON api.SceneJSON) error {
	spec, err := sceneJSON.ToSceneSpec()
	if err != nil {
		return compositerr.Validation(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := scene.Validate(spec, p.registeredInputs, p.registeredOutputs, p.constraintLookup); err != nil {
		return compositerr.Validation(err)
	}

	renderers := make(map[scene.NodeID]builtin.Renderer, len(spec.Nodes))
	for i := range spec.Nodes {
		n := &spec.Nodes[i]
		r, err := p.buildRenderer(n.Params)
		if err != nil {
			return compositerr.Validation(fmt.Errorf("pipeline: node %q: %w", n.NodeID, err))
		}
		renderers[n.NodeID] = r
	}

	lookup := p.buildResolutionLookup(spec)

	registeredInputsSnapshot := make(map[scene.InputID]struct{}, len(p.registeredInputs))
	for id := range p.registeredInputs {
		registeredInputsSnapshot[id] = struct{}{}
	}

	p.graph = rendergraph.New(p.gpu, spec, renderers, registeredInputsSnapshot, lookup, p.cfg.FallbackTimeout)
	p.installed = spec
	p.installedJSON = sceneJSON
	p.hasInstalled = true
	return nil
}

// buildResolutionLookup derives the rendergraph.ResolutionLookup for an
// about-to-install scene. Shader and Text nodes carry an explicit
// resolution; Image and Web nodes inherit the registered resource's own
// size; every other node kind (builtin layouts/effects, transitions) has no
// intrinsic resolution of its own, so it inherits the "canvas" resolution
// of whichever registered output(s) transitively depend on it, taking the
// larger one (by pixel area) when more than one output of a different
// resolution shares the same upstream node (an explicit Open Question
// decision — see DESIGN.md).
func (p *Pipeline) buildResolutionLookup(spec scene.SceneSpec) rendergraph.ResolutionLookup {
	nodesByID := make(map[scene.NodeID]*scene.NodeSpec, len(spec.Nodes))
	for i := range spec.Nodes {
		nodesByID[spec.Nodes[i].NodeID] = &spec.Nodes[i]
	}

	canvas := make(map[scene.NodeID][2]uint32, len(spec.Nodes))
	var mark func(id scene.NodeID, res [2]uint32)
	mark = func(id scene.NodeID, res [2]uint32) {
		n, ok := nodesByID[id]
		if !ok {
			return
		}
		if cur, seen := canvas[id]; seen {
			if uint64(res[0])*uint64(res[1]) <= uint64(cur[0])*uint64(cur[1]) {
				return
			}
		}
		canvas[id] = res
		for _, pad := range n.InputPads {
			mark(pad, res)
		}
		if n.FallbackID != nil {
			mark(*n.FallbackID, res)
		}
	}
	for _, o := range spec.Outputs {
		if res, ok := p.outputResolutions[o.OutputID]; ok {
			mark(o.InputPad, res)
		}
	}

	return func(id scene.NodeID) (uint32, uint32) {
		n, ok := nodesByID[id]
		if !ok {
			return 0, 0
		}
		switch {
		case n.Params.Shader != nil:
			return n.Params.Shader.Resolution[0], n.Params.Shader.Resolution[1]
		case n.Params.Text != nil:
			return n.Params.Text.Resolution[0], n.Params.Text.Resolution[1]
		case n.Params.Image != nil:
			if v, err := p.images.Get(string(n.Params.Image.ImageID)); err == nil {
				if img, ok := v.(decodedImage); ok {
					return img.width, img.height
				}
			}
		case n.Params.Web != nil:
			if inst, err := p.webInstances.Get(string(n.Params.Web.InstanceID)); err == nil {
				return inst.Resolution()
			}
		}
		res := canvas[id]
		return res[0], res[1]
	}
}

// --- Render loop (spec.md §5: render thread ticks the queue, executes the
// graph, and fans resolved frames out to per-output egress channels) ---

// Start begins the render thread: one goroutine draining the frame queue's
// tick channel, executing the installed render graph per tick, and
// delivering each resolved output frame to its egress channel (drained by
// an egress.Pump call per output). A no-op if already running.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.runCtx, p.runCancel = context.WithCancel(ctx)
	runCtx := p.runCtx
	p.mu.Unlock()

	ticks := p.queue.Run(runCtx)
	p.runWG.Add(1)
	go func() {
		defer p.runWG.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case set, ok := <-ticks:
				if !ok {
					return
				}
				p.renderTick(runCtx, set)
			}
		}
	}()
}

// Stop halts the render thread and the frame queue's ticker, and waits for
// the render goroutine to exit. Safe to call even if Start was never
// called.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.runCancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.queue.Stop()
	p.runWG.Wait()
}

// renderTick converts one assembled framequeue.FrameSet into the render
// graph's own FrameSet shape, executes the graph, and delivers each
// resolved output frame to its egress channel, dropping it with a warning
// if the channel is full rather than blocking the render thread (spec.md
// §5: "rendering never blocks on egress").
func (p *Pipeline) renderTick(ctx context.Context, set framequeue.FrameSet) {
	p.mu.RLock()
	graph := p.graph
	planes := make(map[scene.OutputID]*gputexture.OutputPlanes, len(p.outputPlanes))
	for id, pl := range p.outputPlanes {
		planes[id] = pl
	}
	p.mu.RUnlock()
	if graph == nil {
		return
	}

	frames := rendergraph.FrameSet{
		PTS:    set.PTS.Seconds(),
		Frames: make(map[scene.InputID]rendergraph.YUVFrame, len(set.Frames)),
	}
	for id, f := range set.Frames {
		frames.Frames[id] = rendergraph.YUVFrame{Y: f.Y, U: f.U, V: f.V, Width: f.Width, Height: f.Height}
	}

	result, err := graph.Execute(ctx, frames, planes)
	if err != nil {
		Logger().Error("pipeline: render tick failed", "pts", set.PTS, "error", compositerr.RenderCauseChain(compositerr.Render(err)))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for id, frame := range result.Outputs {
		ch, ok := p.egressChans[id]
		if !ok {
			continue
		}
		select {
		case ch <- frame:
		case <-ctx.Done():
			return
		default:
			Logger().Warn("pipeline: egress channel full, dropping frame", "output", id, "pts", set.PTS)
		}
	}
}
