package compositerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRenderCauseChain_WalksUnwrapChain(t *testing.T) {
	root := errors.New("device lost")
	mid := fmt.Errorf("adapter request failed: %w", root)
	top := fmt.Errorf("gpucontext: init: %w", mid)

	got := RenderCauseChain(top)
	for _, want := range []string{"gpucontext: init", "adapter request failed", "device lost"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderCauseChain() = %q, missing %q", got, want)
		}
	}
}

func TestRenderCauseChain_Nil(t *testing.T) {
	if got := RenderCauseChain(nil); got != "" {
		t.Errorf("RenderCauseChain(nil) = %q, want empty", got)
	}
}

func TestClassifiedErrors_CarryClassAndStatus(t *testing.T) {
	cases := []struct {
		err        *Error
		wantClass  Class
		wantStatus int
	}{
		{Validation(errors.New("bad scene")), ClassValidation, 400},
		{Registration(errors.New("dup id")), ClassRegistration, 400},
		{Initialization(errors.New("no adapter")), ClassInitialization, 0},
		{Render(errors.New("submit failed")), ClassRender, 0},
		{Ingest(errors.New("decode failed")), ClassIngest, 0},
	}
	for _, c := range cases {
		if c.err.Class() != c.wantClass {
			t.Errorf("Class() = %v, want %v", c.err.Class(), c.wantClass)
		}
		if c.err.HTTPStatus() != c.wantStatus {
			t.Errorf("HTTPStatus() = %d, want %d", c.err.HTTPStatus(), c.wantStatus)
		}
		if errors.Unwrap(c.err) == nil {
			t.Error("Unwrap() = nil, want wrapped cause")
		}
	}
}
