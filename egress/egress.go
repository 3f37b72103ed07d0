// Package egress defines the thin adapter interface between this module's
// core and the out-of-scope egress collaborators (spec.md §1: "muxing/
// encoding... and wire transport (RTP send)... are external
// collaborators"). The core produces decoded YUVFrames per output; the
// encode/mux/send pipeline downstream of Sink.Send is specified only at
// this boundary.
package egress

import (
	"context"

	"github.com/oxy-systems/scenecompositor/compositerr"
	"github.com/oxy-systems/scenecompositor/rendergraph"
)

// Sink is one registered output's egress adapter: an encode, mux, and
// RTP-send pipeline that this module treats as a black box. The pipeline
// orchestrator's egress thread (spec.md §5) calls Send once per tick with
// that output's resolved frame, in strictly increasing pts order.
type Sink interface {
	// Send encodes and transmits frame. Encoder/socket errors are logged
	// with a full cause chain and the offending frame is dropped — Send
	// returning an error never stops subsequent calls (spec.md §7
	// Render-time: "offending frame is dropped; system continues").
	Send(ctx context.Context, frame rendergraph.YUVFrame) error

	// Close releases the sink's underlying encoder/connection.
	Close() error
}

// Pump drains frames (one output's channel of resolved frames, strictly
// pts-ordered per spec.md §5) and calls sink.Send for each, logging and
// discarding any error rather than stopping — the egress thread's whole
// responsibility per spec.md §5 ("encode and send frames; block on
// encoder and socket writes").
func Pump(ctx context.Context, id string, frames <-chan rendergraph.YUVFrame, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := sink.Send(ctx, frame); err != nil {
				Logger().Error("egress: send failed, frame dropped", "output", id, "error", compositerr.RenderCauseChain(compositerr.Render(err)))
			}
		}
	}
}
