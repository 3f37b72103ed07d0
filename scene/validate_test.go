package scene

import (
	"errors"
	"testing"
)

func exactOneConstraint(NodeSpec) (InputCountConstraint, error) {
	return ExactInputs(1), nil
}

func rangeConstraint(lower, upper int) ConstraintLookup {
	return func(NodeSpec) (InputCountConstraint, error) {
		return RangeInputs(lower, upper), nil
	}
}

func TestValidate_DuplicateNodeNames(t *testing.T) {
	spec := SceneSpec{Nodes: []NodeSpec{{NodeID: "n1"}, {NodeID: "n1"}}}
	_, err := Validate(spec, nil, nil, nil)
	var target *DuplicateNodeNames
	if !asValidationError(err, &target) {
		t.Fatalf("Validate() error = %v, want *DuplicateNodeNames", err)
	}
}

func TestValidate_DuplicateNodeAndInputNames(t *testing.T) {
	spec := SceneSpec{Nodes: []NodeSpec{{NodeID: "a"}}}
	inputs := map[InputID]struct{}{"a": {}}
	_, err := Validate(spec, inputs, nil, nil)
	var target *DuplicateNodeAndInputNames
	if !asValidationError(err, &target) {
		t.Fatalf("Validate() error = %v, want *DuplicateNodeAndInputNames", err)
	}
}

func TestValidate_UnknownInputPadOnNode(t *testing.T) {
	spec := SceneSpec{Nodes: []NodeSpec{{NodeID: "n1", InputPads: []NodeID{"missing"}}}}
	_, err := Validate(spec, nil, nil, nil)
	var target *UnknownInputPadOnNode
	if !asValidationError(err, &target) {
		t.Fatalf("Validate() error = %v, want *UnknownInputPadOnNode", err)
	}
}

func TestValidate_UnknownOutput(t *testing.T) {
	spec := SceneSpec{
		Nodes:   []NodeSpec{{NodeID: "n1"}},
		Outputs: []OutputSpec{{OutputID: "out", InputPad: "n1"}},
	}
	_, err := Validate(spec, nil, nil, nil)
	var target *UnknownOutput
	if !asValidationError(err, &target) {
		t.Fatalf("Validate() error = %v, want *UnknownOutput", err)
	}
}

func TestValidate_CycleDetected(t *testing.T) {
	spec := SceneSpec{
		Nodes: []NodeSpec{
			{NodeID: "n1", InputPads: []NodeID{"n2"}},
			{NodeID: "n2", InputPads: []NodeID{"n1"}},
		},
	}
	outputs := map[OutputID]struct{}{"out": {}}
	spec.Outputs = []OutputSpec{{OutputID: "out", InputPad: "n1"}}
	_, err := Validate(spec, nil, outputs, nil)
	var target *CycleDetected
	if !asValidationError(err, &target) {
		t.Fatalf("Validate() error = %v, want *CycleDetected", err)
	}
}

func TestValidate_UnusedNodes(t *testing.T) {
	spec := SceneSpec{
		Nodes: []NodeSpec{
			{NodeID: "n1"},
			{NodeID: "n2"},
		},
		Outputs: []OutputSpec{{OutputID: "out", InputPad: "n1"}},
	}
	outputs := map[OutputID]struct{}{"out": {}}
	_, err := Validate(spec, nil, outputs, nil)
	var target *UnusedNodes
	if !asValidationError(err, &target) {
		t.Fatalf("Validate() error = %v, want *UnusedNodes", err)
	}
	if len(target.Nodes) != 1 || target.Nodes[0] != "n2" {
		t.Errorf("UnusedNodes.Nodes = %v, want [n2]", target.Nodes)
	}
}

func TestValidate_InvalidInputsCount(t *testing.T) {
	spec := SceneSpec{
		Nodes: []NodeSpec{
			{NodeID: "n1", InputPads: []NodeID{"a", "b"}},
		},
		Outputs: []OutputSpec{{OutputID: "out", InputPad: "n1"}},
	}
	inputs := map[InputID]struct{}{"a": {}, "b": {}}
	outputs := map[OutputID]struct{}{"out": {}}
	_, err := Validate(spec, inputs, outputs, exactOneConstraint)
	var target *InvalidInputsCount
	if !asValidationError(err, &target) {
		t.Fatalf("Validate() error = %v, want *InvalidInputsCount", err)
	}
	if target.DefinedCount != 2 {
		t.Errorf("DefinedCount = %d, want 2", target.DefinedCount)
	}
}

func TestValidate_ValidScene_ReturnsTopoOrder(t *testing.T) {
	spec := SceneSpec{
		Nodes: []NodeSpec{
			{NodeID: "mix", InputPads: []NodeID{"a", "b"}},
		},
		Outputs: []OutputSpec{{OutputID: "out", InputPad: "mix"}},
	}
	inputs := map[InputID]struct{}{"a": {}, "b": {}}
	outputs := map[OutputID]struct{}{"out": {}}
	order, err := Validate(spec, inputs, outputs, rangeConstraint(1, 16))
	if err != nil {
		t.Fatalf("Validate() returned error for a valid scene: %v", err)
	}
	if len(order) != 1 || order[0] != "mix" {
		t.Errorf("TopoOrder = %v, want [mix]", order)
	}
}

func TestValidate_FallbackChain_Acyclic(t *testing.T) {
	fallbackB := NodeID("b")
	fallbackC := NodeID("c")
	spec := SceneSpec{
		Nodes: []NodeSpec{
			{NodeID: "a", FallbackID: &fallbackB},
			{NodeID: "b", FallbackID: &fallbackC},
			{NodeID: "c"},
		},
		Outputs: []OutputSpec{{OutputID: "out", InputPad: "a"}},
	}
	outputs := map[OutputID]struct{}{"out": {}}
	order, err := Validate(spec, nil, outputs, nil)
	if err != nil {
		t.Fatalf("Validate() returned error for an acyclic fallback chain: %v", err)
	}
	if len(order) != 3 {
		t.Errorf("TopoOrder length = %d, want 3", len(order))
	}
}

func TestValidate_FallbackOnlyCycle_Detected(t *testing.T) {
	fallbackB := NodeID("b")
	fallbackA := NodeID("a")
	spec := SceneSpec{
		Nodes: []NodeSpec{
			{NodeID: "a", FallbackID: &fallbackB},
			{NodeID: "b", FallbackID: &fallbackA},
		},
		Outputs: []OutputSpec{{OutputID: "out", InputPad: "a"}},
	}
	outputs := map[OutputID]struct{}{"out": {}}
	_, err := Validate(spec, nil, outputs, nil)
	var target *CycleDetected
	if !asValidationError(err, &target) {
		t.Fatalf("Validate() error = %v, want *CycleDetected for a fallback-only cycle", err)
	}
}

func asValidationError[T error](err error, target *T) bool {
	return errors.As(err, target)
}
