package builtin

import (
	"testing"

	"github.com/oxy-systems/scenecompositor/scene"
)

// TestTransition_InterpolatesMatrixAtHalfway covers boundary scenario 6:
// transition from layout L0 (fit) to L1 (stretch) over [0,1]s with linear
// interpolation; at pts=0.5 the rendered matrix equals 0.5*L0 + 0.5*L1.
// Since drawEffect requires a real GPU device, this test exercises the
// interpolation math directly rather than a full Render call.
func TestTransition_InterpolatesMatrixAtHalfway(t *testing.T) {
	l0 := matrixForLayoutSpec(LayoutSpec{Kind: "fit_to_resolution"}, 4, 2, 2, 2)
	l1 := matrixForLayoutSpec(LayoutSpec{Kind: "stretch_to_resolution"}, 4, 2, 2, 2)

	got := lerpMatrix(l0, l1, 0.5)
	for i := range got {
		want := 0.5*l0[i] + 0.5*l1[i]
		if got[i] != want {
			t.Errorf("lerpMatrix[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestTransition_ClampsOutOfRangePTS(t *testing.T) {
	s := TransitionSpec{
		Start:    LayoutSpec{Kind: "fit_to_resolution"},
		End:      LayoutSpec{Kind: "stretch_to_resolution"},
		StartPTS: 0,
		EndPTS:   1,
	}
	r, err := New("builtin/transition", s)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	tr := r.(*transition)

	raw := tr.progress
	if raw(-1) != 0 {
		t.Errorf("raw(-1) = %v, want 0", raw(-1))
	}
	if raw(2) != 1 {
		t.Errorf("raw(2) = %v, want 1", raw(2))
	}
}

func TestTransition_InputCountConstraintInheritedFromEnd(t *testing.T) {
	s := TransitionSpec{EndInputConstraint: scene.ExactInputs(2)}
	r, err := New("builtin/transition", s)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if !r.InputCountConstraint().Accepts(2) || r.InputCountConstraint().Accepts(1) {
		t.Errorf("InputCountConstraint() = %v, want exactly 2 (from End)", r.InputCountConstraint())
	}
}
