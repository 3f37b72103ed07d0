// Command compositord is a minimal sketch of the control API transport
// (spec.md §1, §6): it decodes api.Request envelopes over plain HTTP and
// drives a pipeline.Pipeline. Routing, auth, and the wire framing beyond
// one JSON body per request are all out of scope per spec.md §1 — this
// exists to show how a real transport would wire the core package
// together, not as the deliverable itself.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/oxy-systems/scenecompositor/api"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/pipeline"
	"github.com/oxy-systems/scenecompositor/scene"
)

func main() {
	addr := flag.String("addr", ":8080", "control API listen address")
	framerate := flag.Int("framerate", 30, "render framerate")
	fallback := flag.Duration("fallback-timeout", 500*time.Millisecond, "stream-fallback timeout")
	backlog := flag.Int("backlog", 20, "render channel backlog depth before dropping")
	fallbackAdapter := flag.Bool("software-adapter", false, "force a software GPU adapter")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	pipeline.SetLogger(logger)

	var opts []gpucontext.Option
	if *fallbackAdapter {
		opts = append(opts, gpucontext.WithForceFallbackAdapter())
	}
	gpu, err := gpucontext.NewContext(opts...)
	if err != nil {
		logger.Error("gpucontext init failed", "error", err)
		os.Exit(1)
	}
	defer gpu.Teardown()

	p := pipeline.New(gpu, pipeline.Config{
		Framerate:        *framerate,
		FallbackTimeout:  *fallback,
		BacklogThreshold: *backlog,
	})
	p.Start(context.Background())
	defer p.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/control", newHandler(p))

	logger.Info("compositord listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("listen failed", "error", err)
		os.Exit(1)
	}
}

func newHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, api.Err("bad_request", err.Error()))
			return
		}
		resp, status := dispatch(p, req)
		writeJSON(w, status, resp)
	}
}

func dispatch(p *pipeline.Pipeline, req api.Request) (api.Response, int) {
	switch req.Kind {
	case api.RequestRegister:
		return handleRegister(p, req)
	case api.RequestUnregister:
		return handleUnregister(p, req)
	case api.RequestUpdateScene:
		if req.Scene == nil {
			return api.Err("bad_request", "missing scene"), http.StatusBadRequest
		}
		if err := p.UpdateScene(*req.Scene); err != nil {
			return api.Err("validation", err.Error()), http.StatusBadRequest
		}
		return api.OK(), http.StatusOK
	case api.RequestQuery:
		return handleQuery(p, req)
	default:
		return api.Err("bad_request", "unknown request kind"), http.StatusBadRequest
	}
}

func handleRegister(p *pipeline.Pipeline, req api.Request) (api.Response, int) {
	switch req.EntityType {
	case api.EntityInputStream:
		if err := p.RegisterInput(scene.InputID(req.ID)); err != nil {
			return api.Err("registration", err.Error()), http.StatusBadRequest
		}
	case api.EntityOutputStream:
		var spec struct{ Width, Height uint32 }
		if err := api.DecodeSpec(req.ID, req.Spec, &spec); err != nil {
			return api.Err("bad_request", err.Error()), http.StatusBadRequest
		}
		if err := p.RegisterOutput(scene.OutputID(req.ID), spec.Width, spec.Height); err != nil {
			return api.Err("registration", err.Error()), http.StatusBadRequest
		}
	case api.EntityShader:
		var spec struct{ Source string }
		if err := api.DecodeSpec(req.ID, req.Spec, &spec); err != nil {
			return api.Err("bad_request", err.Error()), http.StatusBadRequest
		}
		if err := p.RegisterShader(req.ID, spec.Source); err != nil {
			return api.Err("registration", err.Error()), http.StatusBadRequest
		}
	case api.EntityImage:
		var spec struct{ Path string }
		if err := api.DecodeSpec(req.ID, req.Spec, &spec); err != nil {
			return api.Err("bad_request", err.Error()), http.StatusBadRequest
		}
		if err := p.RegisterImage(req.ID, nil, spec.Path); err != nil {
			return api.Err("registration", err.Error()), http.StatusBadRequest
		}
	default:
		return api.Err("bad_request", "unsupported entity_type for register"), http.StatusBadRequest
	}
	return api.OK(), http.StatusOK
}

func handleUnregister(p *pipeline.Pipeline, req api.Request) (api.Response, int) {
	var err error
	switch req.EntityType {
	case api.EntityInputStream:
		err = p.UnregisterInput(scene.InputID(req.ID))
	case api.EntityOutputStream:
		err = p.UnregisterOutput(scene.OutputID(req.ID))
	case api.EntityShader:
		err = p.UnregisterShader(req.ID)
	case api.EntityImage:
		err = p.UnregisterImage(req.ID)
	case api.EntityWebRenderer:
		err = p.UnregisterWebRenderer(req.ID)
	default:
		return api.Err("bad_request", "unsupported entity_type for unregister"), http.StatusBadRequest
	}
	if err != nil {
		return api.Err("registration", err.Error()), http.StatusBadRequest
	}
	return api.OK(), http.StatusOK
}

func handleQuery(p *pipeline.Pipeline, req api.Request) (api.Response, int) {
	switch req.Query {
	case api.QueryInputs:
		return api.Response{Inputs: p.Inputs()}, http.StatusOK
	case api.QueryOutputs:
		return api.Response{Outputs: p.Outputs()}, http.StatusOK
	case api.QueryScene:
		sceneJSON, ok := p.SceneJSON()
		if !ok {
			return api.Err("not_found", "no scene installed"), http.StatusNotFound
		}
		return api.Response{Scene: &sceneJSON}, http.StatusOK
	case api.QueryWaitForNextFrame:
		l := p.WaitForNextFrame(scene.InputID(req.QueryID))
		if l == nil {
			return api.Err("not_found", "input not registered"), http.StatusNotFound
		}
		<-l
		return api.Response{Frame: &api.FrameAvailable{InputID: req.QueryID}}, http.StatusOK
	default:
		return api.Err("bad_request", "unknown query"), http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
