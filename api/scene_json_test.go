package api

import (
	"encoding/json"
	"testing"

	"github.com/oxy-systems/scenecompositor/builtin"
)

func TestSceneJSON_ToSceneSpec_ShaderNode(t *testing.T) {
	raw := `{
		"nodes": [
			{"node_id": "n1", "type": "shader", "shader_id": "s1", "resolution": {"width": 1280, "height": 720}, "input_pads": ["a", "b"]}
		],
		"outputs": [{"output_id": "out", "input_pad": "n1"}]
	}`
	var sj SceneJSON
	if err := json.Unmarshal([]byte(raw), &sj); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	spec, err := sj.ToSceneSpec()
	if err != nil {
		t.Fatalf("ToSceneSpec() error = %v", err)
	}
	if len(spec.Nodes) != 1 {
		t.Fatalf("Nodes = %d, want 1", len(spec.Nodes))
	}
	n := spec.Nodes[0]
	if n.Params.Shader == nil {
		t.Fatal("Params.Shader = nil")
	}
	if n.Params.Shader.ShaderID != "s1" {
		t.Errorf("ShaderID = %q, want s1", n.Params.Shader.ShaderID)
	}
	if n.Params.Shader.Resolution != [2]uint32{1280, 720} {
		t.Errorf("Resolution = %v, want [1280 720]", n.Params.Shader.Resolution)
	}
	if len(n.InputPads) != 2 {
		t.Errorf("InputPads = %v, want 2 entries", n.InputPads)
	}
}

func TestSceneJSON_ToSceneSpec_FixedPositionLayout(t *testing.T) {
	raw := `{
		"nodes": [
			{"node_id": "n1", "type": "builtin/fixed_position_layout", "input_pads": ["a"],
			 "layouts": [{"top": 0.1, "left": 0.1, "width_pct": 0.5, "height_pct": 0.5}]}
		],
		"outputs": []
	}`
	var sj SceneJSON
	if err := json.Unmarshal([]byte(raw), &sj); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	spec, err := sj.ToSceneSpec()
	if err != nil {
		t.Fatalf("ToSceneSpec() error = %v", err)
	}
	bp := spec.Nodes[0].Params.Builtin
	if bp == nil || bp.Kind != "builtin/fixed_position_layout" {
		t.Fatalf("Params.Builtin = %+v", bp)
	}
	fp, ok := bp.Spec.(builtin.FixedPositionLayoutSpec)
	if !ok {
		t.Fatalf("Spec type = %T, want builtin.FixedPositionLayoutSpec", bp.Spec)
	}
	if len(fp.Layouts) != 1 || fp.Layouts[0].Top == nil || *fp.Layouts[0].Top != 0.1 {
		t.Errorf("Layouts = %+v", fp.Layouts)
	}
}

func TestSceneJSON_ToSceneSpec_Transition(t *testing.T) {
	raw := `{
		"nodes": [
			{"node_id": "n1", "type": "transition", "input_pads": ["a"],
			 "start": {"type": "builtin/fit_to_resolution"},
			 "end": {"type": "builtin/stretch_to_resolution"},
			 "interpolation": "ease_in_out", "start_pts": 0, "end_pts": 1}
		],
		"outputs": []
	}`
	var sj SceneJSON
	if err := json.Unmarshal([]byte(raw), &sj); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	spec, err := sj.ToSceneSpec()
	if err != nil {
		t.Fatalf("ToSceneSpec() error = %v", err)
	}
	tr := spec.Nodes[0].Params.Transition
	if tr == nil {
		t.Fatal("Params.Transition = nil")
	}
	if tr.Start.Builtin == nil || tr.Start.Builtin.Kind != "builtin/fit_to_resolution" {
		t.Errorf("Start = %+v", tr.Start)
	}
	if tr.End.Builtin == nil || tr.End.Builtin.Kind != "builtin/stretch_to_resolution" {
		t.Errorf("End = %+v", tr.End)
	}
	if tr.Interpolation != "ease_in_out" {
		t.Errorf("Interpolation = %q, want ease_in_out", tr.Interpolation)
	}
}

func TestSceneJSON_ToSceneSpec_UnknownType(t *testing.T) {
	raw := `{"nodes": [{"node_id": "n1", "type": "bogus"}], "outputs": []}`
	var sj SceneJSON
	if err := json.Unmarshal([]byte(raw), &sj); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, err := sj.ToSceneSpec(); err == nil {
		t.Fatal("ToSceneSpec() error = nil, want error for unknown node type")
	}
}

func TestResponse_OKAndErr_Roundtrip(t *testing.T) {
	ok := OK()
	b, err := json.Marshal(ok)
	if err != nil {
		t.Fatalf("Marshal(OK()) error = %v", err)
	}
	if string(b) != "{}" {
		t.Errorf("Marshal(OK()) = %s, want {}", b)
	}

	e := Err("CYCLE_DETECTED", "cycle detected at node \"n1\"")
	b, err = json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal(Err()) error = %v", err)
	}
	var decoded Response
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Error == nil || decoded.Error.ErrorCode != "CYCLE_DETECTED" {
		t.Errorf("decoded.Error = %+v", decoded.Error)
	}
}
