package builtin

import "github.com/oxy-systems/scenecompositor/common"

// affine2D builds a column-major 4x4 matrix (matching common/math.go's
// convention) that scales clip-space coordinates by (sx, sy) and then
// translates by (tx, ty), used to place one input's full-quad geometry
// into a sub-rectangle of the output clip space.
func affine2D(sx, sy, tx, ty float32) [16]float32 {
	var m [16]float32
	common.Identity(m[:])
	m[0] = sx
	m[5] = sy
	m[12] = tx
	m[13] = ty
	return m
}

// fitMatrix scales srcW x srcH to fit entirely within dstW x dstH while
// preserving aspect ratio, centered (letterboxed/pillarboxed).
func fitMatrix(srcW, srcH, dstW, dstH uint32) [16]float32 {
	srcAspect := float32(srcW) / float32(srcH)
	dstAspect := float32(dstW) / float32(dstH)
	sx, sy := float32(1), float32(1)
	if srcAspect > dstAspect {
		sy = dstAspect / srcAspect
	} else {
		sx = srcAspect / dstAspect
	}
	return affine2D(sx, sy, 0, 0)
}

// fillMatrix scales srcW x srcH to cover dstW x dstH entirely, cropping
// the overflowing dimension, centered.
func fillMatrix(srcW, srcH, dstW, dstH uint32) [16]float32 {
	srcAspect := float32(srcW) / float32(srcH)
	dstAspect := float32(dstW) / float32(dstH)
	sx, sy := float32(1), float32(1)
	if srcAspect > dstAspect {
		sx = srcAspect / dstAspect
	} else {
		sy = dstAspect / srcAspect
	}
	return affine2D(sx, sy, 0, 0)
}

// stretchMatrix always returns the identity: a full-quad draw already
// stretches the source to cover the destination non-uniformly.
func stretchMatrix() [16]float32 {
	return affine2D(1, 1, 0, 0)
}

// fixedPositionMatrix scales the input to (widthPct, heightPct) of the
// output (both in [0,1]) and anchors it per the FixedPositionEntry's
// top/bottom/left/right offsets (fractions of output dimensions).
func fixedPositionMatrix(e FixedPositionEntry) [16]float32 {
	sx := e.WidthPct
	sy := e.HeightPct
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}

	var tx float32
	if e.Left != nil {
		tx = -1 + sx + 2*(*e.Left)
	} else {
		tx = 1 - sx - 2*(*e.Right)
	}

	var ty float32
	if e.Top != nil {
		ty = 1 - sy - 2*(*e.Top)
	} else {
		ty = -1 + sy + 2*(*e.Bottom)
	}

	return affine2D(sx, sy, tx, ty)
}

// tiledMatrix places tile index of count total tiles into a roughly
// square grid covering the full output, row-major, left-to-right then
// top-to-bottom.
func tiledMatrix(index, count int) [16]float32 {
	cols := 1
	for cols*cols < count {
		cols++
	}
	rows := (count + cols - 1) / cols

	col := index % cols
	row := index / cols

	sx := float32(1) / float32(cols)
	sy := float32(1) / float32(rows)

	cx := -1 + sx + 2*sx*float32(col)
	cy := 1 - sy - 2*sy*float32(row)

	return affine2D(sx, sy, cx, cy)
}
