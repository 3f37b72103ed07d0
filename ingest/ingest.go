// Package ingest defines the thin adapter interface between this module's
// core and the out-of-scope ingest collaborators (spec.md §1: "Demuxing/
// decoding... and wire transport (RTP receive)... are external
// collaborators"). The core consumes already-decoded frames; everything
// upstream of Source.Frames (RTP receive, demux, codec decode) is
// specified only at this boundary.
package ingest

import (
	"context"
	"time"

	"github.com/oxy-systems/scenecompositor/compositerr"
	"github.com/oxy-systems/scenecompositor/framequeue"
	"github.com/oxy-systems/scenecompositor/scene"
)

// Sample is one decoded frame ready to enter the frame queue, paired with
// its presentation timestamp.
type Sample struct {
	PTS   time.Duration
	Frame framequeue.Frame
}

// Source is one registered input's ingest adapter: an RTP-receiving,
// demuxing, decoding pipeline that this module treats as a black box
// producing a stream of decoded Samples. The pipeline orchestrator's
// ingest thread (spec.md §5) reads Run's channel and pushes each Sample
// onto the input's Queue FIFO in the order received.
type Source interface {
	// Run starts decoding and returns a channel of decoded samples in
	// arrival order. The channel is closed when the source's connection
	// ends or ctx is canceled. Decoder/socket errors are reported via
	// errs rather than terminating Run — the input continues under its
	// stream-fallback timeout until recovery (spec.md §7 Ingest-time).
	Run(ctx context.Context) (samples <-chan Sample, errs <-chan error)

	// Close releases the source's underlying connection/decoder.
	Close() error
}

// Pump reads src's samples and errors until ctx is canceled or src's
// channels close, pushing each sample onto q under id and logging each
// reported error — the ingest thread's whole responsibility per spec.md
// §5 ("decode packets, push (pts, Frame) onto that input's FIFO; never
// touch GPU").
func Pump(ctx context.Context, id scene.InputID, q *framequeue.Queue, src Source) {
	samples, errs := src.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			q.Push(id, s.PTS, s.Frame)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			Logger().Error("ingest: decoder/socket error, stream-fallback will cover until recovery", "input", id, "error", compositerr.RenderCauseChain(compositerr.Ingest(err)))
		}
	}
}
