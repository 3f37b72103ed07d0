package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oxy-systems/scenecompositor/framequeue"
)

type stubSource struct {
	samples chan Sample
	errs    chan error
}

func (s *stubSource) Run(context.Context) (<-chan Sample, <-chan error) {
	return s.samples, s.errs
}
func (s *stubSource) Close() error { return nil }

func TestPump_PushesSamplesInOrder(t *testing.T) {
	q := framequeue.New(30, time.Second, 20)
	q.RegisterInput("cam1")

	src := &stubSource{samples: make(chan Sample, 2), errs: make(chan error)}
	src.samples <- Sample{PTS: 0, Frame: framequeue.Frame{Width: 1}}
	src.samples <- Sample{PTS: 10 * time.Millisecond, Frame: framequeue.Frame{Width: 2}}
	close(src.samples)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	Pump(ctx, "cam1", q, src)

	set := q.Tick(15 * time.Millisecond)
	f, ok := set.Frames["cam1"]
	if !ok {
		t.Fatal("expected a frame for cam1")
	}
	if f.Width != 2 {
		t.Errorf("Width = %d, want 2 (last pushed sample)", f.Width)
	}
}

func TestPump_ReportsErrorsWithoutStopping(t *testing.T) {
	q := framequeue.New(30, time.Second, 20)
	q.RegisterInput("cam1")

	src := &stubSource{samples: make(chan Sample), errs: make(chan error, 1)}
	src.errs <- errors.New("decoder desync")
	close(src.errs)
	close(src.samples)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	Pump(ctx, "cam1", q, src)
}
