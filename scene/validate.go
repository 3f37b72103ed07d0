package scene

import "sort"

// TopoOrder is a topological ordering of a validated scene's nodes, leaves
// (nodes with no node-valued input pads) first. Validate returns it to the
// caller; the render graph does not use it and orders rendering by its own
// memoized recursive resolution instead.
type TopoOrder []NodeID

// ConstraintLookup resolves the InputCountConstraint for a node's kind. The
// validator has no knowledge of renderer kinds itself (shader/builtin/image/
// web/text all live in packages that import scene, not the reverse), so the
// caller supplies this — typically the pipeline orchestrator, backed by the
// shader/image/web registries and the builtin dispatch table.
type ConstraintLookup func(NodeSpec) (InputCountConstraint, error)

// Validate runs the five-step scene validation algorithm: uniqueness,
// reference resolution, acyclicity, reachability, and per-node input-count
// constraints. On success it returns the scene's nodes in topological order
// (leaves first).
func Validate(spec SceneSpec, registeredInputs map[InputID]struct{}, registeredOutputs map[OutputID]struct{}, constraints ConstraintLookup) (TopoOrder, error) {
	nodesByID := make(map[NodeID]*NodeSpec, len(spec.Nodes))

	if err := checkUniqueness(spec, registeredInputs, nodesByID); err != nil {
		return nil, err
	}
	if err := checkReferences(spec, nodesByID, registeredInputs, registeredOutputs); err != nil {
		return nil, err
	}
	order, err := checkAcyclicity(spec, nodesByID)
	if err != nil {
		return nil, err
	}
	if err := checkReachability(spec, nodesByID); err != nil {
		return nil, err
	}
	if err := checkConstraints(spec, constraints); err != nil {
		return nil, err
	}

	return order, nil
}

func checkUniqueness(spec SceneSpec, registeredInputs map[InputID]struct{}, nodesByID map[NodeID]*NodeSpec) error {
	var dupNames []NodeID
	for i := range spec.Nodes {
		n := &spec.Nodes[i]
		if _, exists := nodesByID[n.NodeID]; exists {
			dupNames = append(dupNames, n.NodeID)
			continue
		}
		nodesByID[n.NodeID] = n
	}
	if len(dupNames) > 0 {
		return &DuplicateNodeNames{Names: dupNames}
	}

	var collisions []NodeID
	for id := range nodesByID {
		if _, exists := registeredInputs[InputID(id)]; exists {
			collisions = append(collisions, id)
		}
	}
	if len(collisions) > 0 {
		return &DuplicateNodeAndInputNames{Names: collisions}
	}
	return nil
}

func resolvesToKnown(pad NodeID, nodesByID map[NodeID]*NodeSpec, registeredInputs map[InputID]struct{}) bool {
	if _, ok := nodesByID[pad]; ok {
		return true
	}
	_, ok := registeredInputs[InputID(pad)]
	return ok
}

func checkReferences(spec SceneSpec, nodesByID map[NodeID]*NodeSpec, registeredInputs map[InputID]struct{}, registeredOutputs map[OutputID]struct{}) error {
	for i := range spec.Nodes {
		n := &spec.Nodes[i]
		for _, pad := range n.InputPads {
			if !resolvesToKnown(pad, nodesByID, registeredInputs) {
				return &UnknownInputPadOnNode{Node: n.NodeID, Pad: pad}
			}
		}
		if n.FallbackID != nil {
			if !resolvesToKnown(*n.FallbackID, nodesByID, registeredInputs) {
				return &UnknownInputPadOnNode{Node: n.NodeID, Pad: *n.FallbackID}
			}
		}
	}
	for _, o := range spec.Outputs {
		if _, ok := registeredOutputs[o.OutputID]; !ok {
			return &UnknownOutput{Output: o.OutputID}
		}
		if !resolvesToKnown(o.InputPad, nodesByID, registeredInputs) {
			return &UnknownInputPadOnOutput{Output: o.OutputID, Pad: o.InputPad}
		}
	}
	return nil
}

// nodeEdges returns n's input pads that resolve to other nodes in the
// scene, skipping pads that resolve to a registered input (a graph leaf,
// not a traversable edge).
func nodeEdges(n *NodeSpec, nodesByID map[NodeID]*NodeSpec) []NodeID {
	var edges []NodeID
	for _, pad := range n.InputPads {
		if _, ok := nodesByID[pad]; ok {
			edges = append(edges, pad)
		}
	}
	return edges
}

const (
	colorWhite = iota
	colorGray
	colorBlack
)

// fallbackEdges returns n's input-pad edges plus its fallback edge, if any
// and if it resolves to another node. Acyclicity (spec.md §4.1 step 3)
// treats input_pads ∪ {fallback_id} as edges; execution order (§4.2 step 2)
// treats only input_pads as precedence, so the two checks use different
// edge sets over the same node table.
func fallbackEdges(n *NodeSpec, nodesByID map[NodeID]*NodeSpec) []NodeID {
	edges := nodeEdges(n, nodesByID)
	if n.FallbackID != nil {
		if _, ok := nodesByID[*n.FallbackID]; ok {
			edges = append(edges, *n.FallbackID)
		}
	}
	return edges
}

// checkAcyclicity runs a recursive DFS over input_pads ∪ {fallback_id}
// edges, detecting cycles via the standard white/gray/black coloring. A
// fallback-only cycle (no shared input_pads edge) is still caught since
// fallbackEdges includes the fallback edge. On success it separately
// computes a topological order (leaves first) over input_pads edges alone,
// since fallback edges never constrain execution order (spec.md §4.2).
func checkAcyclicity(spec SceneSpec, nodesByID map[NodeID]*NodeSpec) (TopoOrder, error) {
	color := make(map[NodeID]int, len(spec.Nodes))

	var detectCycle func(id NodeID) error
	detectCycle = func(id NodeID) error {
		switch color[id] {
		case colorBlack:
			return nil
		case colorGray:
			return &CycleDetected{Node: id}
		}
		color[id] = colorGray
		n := nodesByID[id]
		for _, dep := range fallbackEdges(n, nodesByID) {
			if err := detectCycle(dep); err != nil {
				return err
			}
		}
		color[id] = colorBlack
		return nil
	}

	for i := range spec.Nodes {
		id := spec.Nodes[i].NodeID
		if color[id] == colorWhite {
			if err := detectCycle(id); err != nil {
				return nil, err
			}
		}
	}

	orderColor := make(map[NodeID]int, len(spec.Nodes))
	var order TopoOrder
	var visitOrder func(id NodeID)
	visitOrder = func(id NodeID) {
		if orderColor[id] == colorBlack {
			return
		}
		orderColor[id] = colorBlack
		n := nodesByID[id]
		for _, dep := range nodeEdges(n, nodesByID) {
			visitOrder(dep)
		}
		order = append(order, id)
	}
	for i := range spec.Nodes {
		visitOrder(spec.Nodes[i].NodeID)
	}

	return order, nil
}

func checkReachability(spec SceneSpec, nodesByID map[NodeID]*NodeSpec) error {
	reached := make(map[NodeID]bool, len(spec.Nodes))

	var mark func(id NodeID)
	mark = func(id NodeID) {
		if reached[id] {
			return
		}
		reached[id] = true
		n, ok := nodesByID[id]
		if !ok {
			return
		}
		for _, dep := range nodeEdges(n, nodesByID) {
			mark(dep)
		}
		if n.FallbackID != nil {
			mark(*n.FallbackID)
		}
	}

	for _, o := range spec.Outputs {
		if _, ok := nodesByID[o.InputPad]; ok {
			mark(o.InputPad)
		}
	}

	var unused []NodeID
	for i := range spec.Nodes {
		id := spec.Nodes[i].NodeID
		if !reached[id] {
			unused = append(unused, id)
		}
	}
	if len(unused) > 0 {
		sort.Slice(unused, func(i, j int) bool { return unused[i] < unused[j] })
		return &UnusedNodes{Nodes: unused}
	}
	return nil
}

func checkConstraints(spec SceneSpec, constraints ConstraintLookup) error {
	if constraints == nil {
		return nil
	}
	for i := range spec.Nodes {
		n := &spec.Nodes[i]
		constraint, err := constraints(*n)
		if err != nil {
			return err
		}
		if !constraint.Accepts(len(n.InputPads)) {
			return &InvalidInputsCount{
				NodeID:       n.NodeID,
				Constraint:   constraint,
				DefinedCount: len(n.InputPads),
			}
		}
	}
	return nil
}
