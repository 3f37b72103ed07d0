package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
	"github.com/oxy-systems/scenecompositor/webrenderer"
)

// textRenderer rasterizes a Text node's content into its target texture
// once per content change (spec.md §3's TextSpec, content/font_size are
// immutable for the node's lifetime — a changed Text spec installs as a new
// node, not a mutation). Rasterization uses golang.org/x/image's bitmap
// font drawer rather than a parsed TTF/OTF asset: TextParams names no
// font resource (no "font" entity_type exists in the control API), so
// there is no binary font file for a HarfBuzz-level shaper to shape
// against (see DESIGN.md).
type textRenderer struct {
	params   *scene.TextParams
	uploaded bool
}

func newTextRenderer(p *scene.TextParams) builtin.Renderer {
	return &textRenderer{params: p}
}

func (r *textRenderer) InputCountConstraint() scene.InputCountConstraint { return scene.ExactInputs(0) }
func (r *textRenderer) FallbackStrategy() builtin.FallbackStrategy       { return builtin.NeverFallback }

func (r *textRenderer) Render(_ context.Context, gpu *gpucontext.Context, _ []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	if r.uploaded && target.Allocated() {
		target.MarkProduced()
		return nil
	}

	w, h := r.params.Resolution[0], r.params.Resolution[1]
	if w == 0 || h == 0 {
		w, h = 1, 1
	}
	pixels := rasterizeText(r.params.Content, r.params.FontSize, w, h)

	if err := webrenderer.UploadFrame(gpu, webrenderer.Frame{Pixels: pixels, Width: w, Height: h}, target); err != nil {
		return err
	}
	r.uploaded = true
	return nil
}

// rasterizeText draws content onto a transparent width x height RGBA
// canvas using basicfont's fixed 13px glyph face, scaled by repeating each
// glyph cell proportionally to the requested font size (a whole-pixel
// nearest scale rather than hinted TTF rendering, matching the precision
// basicfont itself offers).
func rasterizeText(content string, fontSize float32, width, height uint32) []byte {
	canvas := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))

	scale := fontSize / 13
	if scale <= 0 {
		scale = 1
	}

	face := basicfont.Face7x13
	lineHeight := int(float32(face.Height) * scale)
	baseline := lineHeight
	if baseline > int(height) {
		baseline = int(height)
	}

	glyphImg := image.NewRGBA(image.Rect(0, 0, int(width), lineHeight+face.Descent))
	d := &font.Drawer{
		Dst:  glyphImg,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(content)

	if scale == 1 {
		draw.Draw(canvas, canvas.Bounds(), glyphImg, image.Point{}, draw.Over)
		return canvas.Pix
	}

	dstW := int(float32(glyphImg.Bounds().Dx()) * scale)
	dstH := int(float32(glyphImg.Bounds().Dy()) * scale)
	for y := 0; y < dstH && y < int(height); y++ {
		srcY := int(float32(y) / scale)
		for x := 0; x < dstW && x < int(width); x++ {
			srcX := int(float32(x) / scale)
			canvas.Set(x, y, glyphImg.At(srcX, srcY))
		}
	}
	return canvas.Pix
}
