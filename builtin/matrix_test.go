package builtin

import "testing"

func TestFitMatrix_Letterbox(t *testing.T) {
	// 4x2 source into a 2x2 destination: wider than dst, so height shrinks.
	m := fitMatrix(4, 2, 2, 2)
	if m[0] != 1 {
		t.Errorf("sx = %v, want 1", m[0])
	}
	if m[5] != 0.5 {
		t.Errorf("sy = %v, want 0.5", m[5])
	}
}

func TestFillMatrix_Crop(t *testing.T) {
	m := fillMatrix(4, 2, 2, 2)
	if m[0] != 2 {
		t.Errorf("sx = %v, want 2", m[0])
	}
	if m[5] != 1 {
		t.Errorf("sy = %v, want 1", m[5])
	}
}

func TestStretchMatrix_Identity(t *testing.T) {
	m := stretchMatrix()
	if m[0] != 1 || m[5] != 1 || m[12] != 0 || m[13] != 0 {
		t.Errorf("stretchMatrix() = %v, want identity scale/translate", m)
	}
}

func TestFixedPositionMatrix_TopLeft(t *testing.T) {
	top := float32(0)
	left := float32(0)
	e := FixedPositionEntry{Top: &top, Left: &left, WidthPct: 0.5, HeightPct: 0.5}
	m := fixedPositionMatrix(e)
	if m[0] != 0.5 || m[5] != 0.5 {
		t.Fatalf("scale = (%v, %v), want (0.5, 0.5)", m[0], m[5])
	}
	if m[12] != -0.5 || m[13] != 0.5 {
		t.Errorf("translate = (%v, %v), want (-0.5, 0.5)", m[12], m[13])
	}
}

func TestTiledMatrix_FourTiles(t *testing.T) {
	seen := map[[2]float32]bool{}
	for i := 0; i < 4; i++ {
		m := tiledMatrix(i, 4)
		if m[0] != 0.5 || m[5] != 0.5 {
			t.Fatalf("tile %d scale = (%v, %v), want (0.5, 0.5)", i, m[0], m[5])
		}
		seen[[2]float32{m[12], m[13]}] = true
	}
	if len(seen) != 4 {
		t.Errorf("tiledMatrix produced %d distinct centers, want 4", len(seen))
	}
}
