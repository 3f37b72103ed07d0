package webrenderer

import (
	"context"
	"testing"
)

type stubInstance struct {
	url        string
	w, h       uint32
	frame      Frame
	hasFrame   bool
	closeCalls int
}

func (s *stubInstance) URL() string                    { return s.url }
func (s *stubInstance) Resolution() (uint32, uint32)    { return s.w, s.h }
func (s *stubInstance) LatestFrame(context.Context) (Frame, bool) {
	return s.frame, s.hasFrame
}
func (s *stubInstance) Close() error {
	s.closeCalls++
	return nil
}

func TestInstance_InterfaceSatisfiedByStub(t *testing.T) {
	var inst Instance = &stubInstance{url: "https://example.test", w: 640, h: 480}

	w, h := inst.Resolution()
	if w != 640 || h != 480 {
		t.Errorf("Resolution() = (%d, %d), want (640, 480)", w, h)
	}
	if _, ok := inst.LatestFrame(context.Background()); ok {
		t.Error("LatestFrame() ok = true before any frame was set")
	}
	if err := inst.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
