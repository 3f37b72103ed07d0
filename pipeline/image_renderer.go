package pipeline

import (
	"context"

	"github.com/oxy-systems/scenecompositor/builtin"
	"github.com/oxy-systems/scenecompositor/common"
	"github.com/oxy-systems/scenecompositor/gpucontext"
	"github.com/oxy-systems/scenecompositor/gputexture"
	"github.com/oxy-systems/scenecompositor/scene"
	"github.com/oxy-systems/scenecompositor/webrenderer"
)

// decodedImage is a still image registered for an Image node, decoded once
// at register_image time and shared by every node that selects it
// (common.DecodeImageFile's RGBA staging shape, cached instead of
// re-decoded per node per tick).
type decodedImage struct {
	pixels        []byte
	width, height uint32
}

// DecodeImage decodes data (or the file at path) into the RGBA staging
// shape the image registry stores, for the pipeline orchestrator's
// RegisterImage to call.
func DecodeImage(data []byte, path string) (any, error) {
	pixels, w, h, err := common.DecodeImageFile(data, path)
	if err != nil {
		return nil, err
	}
	return decodedImage{pixels: pixels, width: w, height: h}, nil
}

// imageRenderer uploads a decoded still image to its node's target texture
// once, then reuses the upload on every subsequent tick — the image's
// content never depends on pts or inputs (spec.md §4.5's Image kind).
type imageRenderer struct {
	img      decodedImage
	uploaded bool
}

func newImageRenderer(v any) builtin.Renderer {
	img, _ := v.(decodedImage)
	return &imageRenderer{img: img}
}

func (r *imageRenderer) InputCountConstraint() scene.InputCountConstraint { return scene.ExactInputs(0) }
func (r *imageRenderer) FallbackStrategy() builtin.FallbackStrategy       { return builtin.NeverFallback }

func (r *imageRenderer) Render(_ context.Context, gpu *gpucontext.Context, _ []*gputexture.NodeTexture, target *gputexture.NodeTexture, _ float64) error {
	if r.uploaded && target.Allocated() {
		target.MarkProduced()
		return nil
	}
	if err := webrenderer.UploadFrame(gpu, webrenderer.Frame{Pixels: r.img.pixels, Width: r.img.width, Height: r.img.height}, target); err != nil {
		return err
	}
	r.uploaded = true
	return nil
}
