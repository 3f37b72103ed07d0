package builtin

import (
	"context"
	"fmt"
	"testing"

	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
)

// builtinConstraintLookup mirrors pipeline.Pipeline.constraintLookup's
// builtin.Params branch (pipeline/renderers.go), so tests here exercise the
// same scene.Validate path a real install does, not just Render in
// isolation.
func builtinConstraintLookup(n scene.NodeSpec) (scene.InputCountConstraint, error) {
	r, err := New(n.Params.Builtin.Kind, n.Params.Builtin.Spec)
	if err != nil {
		return scene.InputCountConstraint{}, err
	}
	return r.InputCountConstraint(), nil
}

func ptr(f float32) *float32 { return &f }

func TestValidateFixedPositionEntry(t *testing.T) {
	tests := []struct {
		name    string
		entry   FixedPositionEntry
		wantErr string
	}{
		{"missing top/bottom", FixedPositionEntry{Left: ptr(0)}, "*builtin.FixedLayoutTopBottomRequired"},
		{"both top/bottom", FixedPositionEntry{Top: ptr(0), Bottom: ptr(0), Left: ptr(0)}, "*builtin.FixedLayoutTopBottomOnlyOne"},
		{"missing left/right", FixedPositionEntry{Top: ptr(0)}, "*builtin.FixedLayoutLeftRightRequired"},
		{"both left/right", FixedPositionEntry{Top: ptr(0), Left: ptr(0), Right: ptr(0)}, "*builtin.FixedLayoutLeftRightOnlyOne"},
		{"valid", FixedPositionEntry{Top: ptr(0), Left: ptr(0)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFixedPositionEntry(0, tt.entry)
			got := ""
			if err != nil {
				got = fmt.Sprintf("%T", err)
			}
			if got != tt.wantErr {
				t.Fatalf("validateFixedPositionEntry() error type = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

// TestFixedPositionLayout_InvalidLayoutCount covers boundary scenario 4:
// FixedPositionLayout with 3 inputs and 2 layout entries. It goes through
// scene.Validate first, exactly like the real install path
// (pipeline.Pipeline.UpdateScene -> scene.Validate -> checkConstraints ->
// constraintLookup -> this node's InputCountConstraint), so it would catch
// a regression where the generic InvalidInputsCount check rejects the scene
// before FixedLayoutInvalidLayoutCount ever gets a chance to fire.
func TestFixedPositionLayout_InvalidLayoutCount(t *testing.T) {
	spec := scene.SceneSpec{
		Nodes: []scene.NodeSpec{
			{
				NodeID:    "layout",
				InputPads: []scene.NodeID{"a", "b", "c"},
				Params: scene.Params{
					Builtin: &scene.BuiltinParams{
						Kind: "builtin/fixed_position_layout",
						Spec: FixedPositionLayoutSpec{
							Layouts: []FixedPositionEntry{
								{Top: ptr(0), Left: ptr(0)},
								{Bottom: ptr(0), Right: ptr(0)},
							},
						},
					},
				},
			},
		},
		Outputs: []scene.OutputSpec{{OutputID: "out", InputPad: "layout"}},
	}
	registeredInputs := map[scene.InputID]struct{}{"a": {}, "b": {}, "c": {}}
	registeredOutputs := map[scene.OutputID]struct{}{"out": {}}

	if _, err := scene.Validate(spec, registeredInputs, registeredOutputs, builtinConstraintLookup); err != nil {
		t.Fatalf("scene.Validate() rejected a scene with more inputs than layout entries before Render could run: %v", err)
	}

	r, err := New(spec.Nodes[0].Params.Builtin.Kind, spec.Nodes[0].Params.Builtin.Spec)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	inputs := make([]*gputexture.NodeTexture, len(spec.Nodes[0].InputPads))
	target := gputexture.NewNodeTexture("test target")
	err = r.Render(context.Background(), nil, inputs, target, 0)
	var mismatch *FixedLayoutInvalidLayoutCount
	if err == nil {
		t.Fatalf("Render() with mismatched layout/input counts returned nil error")
	}
	if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", mismatch) {
		t.Fatalf("Render() error = %T, want *FixedLayoutInvalidLayoutCount", err)
	}
	fixedErr := err.(*FixedLayoutInvalidLayoutCount)
	if fixedErr.LayoutCount != 2 || fixedErr.InputCount != 3 {
		t.Errorf("FixedLayoutInvalidLayoutCount = %+v, want {LayoutCount:2 InputCount:3}", fixedErr)
	}
}

func TestDispatch_RegistersAllBuiltinKinds(t *testing.T) {
	want := []string{
		"builtin/fit_to_resolution",
		"builtin/fill_to_resolution",
		"builtin/stretch_to_resolution",
		"builtin/fixed_position_layout",
		"builtin/tiled_layout",
		"builtin/mirror_image",
		"builtin/corners_rounding",
		"builtin/transition",
	}
	for _, kind := range want {
		if _, ok := Dispatch[kind]; !ok {
			t.Errorf("Dispatch missing kind %q", kind)
		}
	}
}
