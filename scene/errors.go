package scene

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode is the closed set of scene validation failure kinds, surfaced to
// the control API as the error_code field of a 400-class response.
type ErrorCode string

const (
	CodeDuplicateNodeNames         ErrorCode = "DUPLICATE_NODE_NAMES"
	CodeDuplicateNodeAndInputNames ErrorCode = "DUPLICATE_NODE_AND_INPUT_NAMES"
	CodeUnknownInputPadOnNode      ErrorCode = "UNKNOWN_INPUT_PAD_ON_NODE"
	CodeUnknownInputPadOnOutput    ErrorCode = "UNKNOWN_INPUT_PAD_ON_OUTPUT"
	CodeUnknownOutput              ErrorCode = "UNKNOWN_OUTPUT"
	CodeCycleDetected              ErrorCode = "CYCLE_DETECTED"
	CodeUnusedNodes                ErrorCode = "UNUSED_NODES"
	CodeInvalidInputsCount         ErrorCode = "INVALID_INPUTS_COUNT"
)

// ValidationError is implemented by every error Validate can return. Code
// identifies the failure kind for the control API; Error renders a
// human-readable message.
type ValidationError interface {
	error
	Code() ErrorCode
}

// DuplicateNodeNames is returned when two or more NodeSpec entries in a
// scene share the same NodeID.
type DuplicateNodeNames struct {
	Names []NodeID
}

func (e *DuplicateNodeNames) Code() ErrorCode { return CodeDuplicateNodeNames }
func (e *DuplicateNodeNames) Error() string {
	return fmt.Sprintf("duplicate node names: %s", joinNodeIDs(e.Names))
}

// DuplicateNodeAndInputNames is returned when a NodeID collides with a
// registered InputID, making an input pad reference ambiguous.
type DuplicateNodeAndInputNames struct {
	Names []NodeID
}

func (e *DuplicateNodeAndInputNames) Code() ErrorCode { return CodeDuplicateNodeAndInputNames }
func (e *DuplicateNodeAndInputNames) Error() string {
	return fmt.Sprintf("node id(s) collide with a registered input id: %s", joinNodeIDs(e.Names))
}

// UnknownInputPadOnNode is returned when a NodeSpec names an input pad that
// resolves to neither another node nor a registered input.
type UnknownInputPadOnNode struct {
	Node NodeID
	Pad  NodeID
}

func (e *UnknownInputPadOnNode) Code() ErrorCode { return CodeUnknownInputPadOnNode }
func (e *UnknownInputPadOnNode) Error() string {
	return fmt.Sprintf("node %q references unknown input pad %q", e.Node, e.Pad)
}

// UnknownInputPadOnOutput is returned when an OutputSpec names an input pad
// that resolves to neither a node nor a registered input.
type UnknownInputPadOnOutput struct {
	Output OutputID
	Pad    NodeID
}

func (e *UnknownInputPadOnOutput) Code() ErrorCode { return CodeUnknownInputPadOnOutput }
func (e *UnknownInputPadOnOutput) Error() string {
	return fmt.Sprintf("output %q references unknown input pad %q", e.Output, e.Pad)
}

// UnknownOutput is returned when an OutputSpec names an OutputID that was
// never registered.
type UnknownOutput struct {
	Output OutputID
}

func (e *UnknownOutput) Code() ErrorCode { return CodeUnknownOutput }
func (e *UnknownOutput) Error() string   { return fmt.Sprintf("unknown output %q", e.Output) }

// CycleDetected is returned when a node's input pads form a cycle, naming
// one node on the cycle.
type CycleDetected struct {
	Node NodeID
}

func (e *CycleDetected) Code() ErrorCode { return CodeCycleDetected }
func (e *CycleDetected) Error() string   { return fmt.Sprintf("cycle detected at node %q", e.Node) }

// UnusedNodes is returned when one or more nodes are unreachable from every
// output. Nodes is sorted lexicographically.
type UnusedNodes struct {
	Nodes []NodeID
}

func (e *UnusedNodes) Code() ErrorCode { return CodeUnusedNodes }
func (e *UnusedNodes) Error() string {
	return fmt.Sprintf("unused nodes: %s", joinNodeIDs(e.Nodes))
}

// InvalidInputsCount is returned when a node's input pad count falls
// outside its kind's InputCountConstraint.
type InvalidInputsCount struct {
	NodeID       NodeID
	Constraint   InputCountConstraint
	DefinedCount int
}

func (e *InvalidInputsCount) Code() ErrorCode { return CodeInvalidInputsCount }
func (e *InvalidInputsCount) Error() string {
	return fmt.Sprintf("node %q has %d input pad(s), constraint requires %s",
		e.NodeID, e.DefinedCount, e.Constraint)
}

func joinNodeIDs(ids []NodeID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
