package egress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oxy-systems/scenecompositor/rendergraph"
)

type stubSink struct {
	mu    sync.Mutex
	sent  []rendergraph.YUVFrame
	errOn int
	calls int
}

func (s *stubSink) Send(_ context.Context, frame rendergraph.YUVFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.errOn > 0 && s.calls == s.errOn {
		return errors.New("encoder backed up")
	}
	s.sent = append(s.sent, frame)
	return nil
}
func (s *stubSink) Close() error { return nil }

func TestPump_SendsFramesInOrder(t *testing.T) {
	frames := make(chan rendergraph.YUVFrame, 2)
	frames <- rendergraph.YUVFrame{Width: 1}
	frames <- rendergraph.YUVFrame{Width: 2}
	close(frames)

	sink := &stubSink{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	Pump(ctx, "out1", frames, sink)

	if len(sink.sent) != 2 {
		t.Fatalf("sent %d frames, want 2", len(sink.sent))
	}
	if sink.sent[0].Width != 1 || sink.sent[1].Width != 2 {
		t.Errorf("sent = %+v, want in-order widths [1 2]", sink.sent)
	}
}

func TestPump_ContinuesAfterSendError(t *testing.T) {
	frames := make(chan rendergraph.YUVFrame, 2)
	frames <- rendergraph.YUVFrame{Width: 1}
	frames <- rendergraph.YUVFrame{Width: 2}
	close(frames)

	sink := &stubSink{errOn: 1}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	Pump(ctx, "out1", frames, sink)

	if len(sink.sent) != 1 {
		t.Fatalf("sent %d frames, want 1 (first dropped on error)", len(sink.sent))
	}
	if sink.sent[0].Width != 2 {
		t.Errorf("sent[0].Width = %d, want 2", sink.sent[0].Width)
	}
}
