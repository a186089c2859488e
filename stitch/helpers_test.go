package stitch

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"
)

// makeDocument draws seeded random gray rectangles over black. The content never repeats, so
// every window of it is a distinct scroll position.
func makeDocument(seed int64, width, height int) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	doc := imaging.New(width, height, color.NRGBA{0, 0, 0, 255})
	for i := 0; i < width*height/1600; i++ {
		w, h := 8+rng.Intn(40), 8+rng.Intn(40)
		x, y := rng.Intn(width), rng.Intn(height)
		v := uint8(40 + rng.Intn(216))
		draw.Draw(doc, image.Rect(x, y, x+w, y+h), &image.Uniform{color.NRGBA{v, v, v, 255}}, image.Point{}, draw.Src)
	}
	return doc
}

func makeNoise(seed int64, width, height int) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := imaging.New(width, height, color.Black)
	for i := 0; i < len(img.Pix); i += 4 {
		v := uint8(rng.Intn(256))
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

// window returns the frame of doc starting offset pixels along axis.
func window(doc *image.NRGBA, axis Axis, offset, width, height int) image.Image {
	var r image.Rectangle
	if axis == Horizontal {
		r = image.Rect(offset, 0, offset+width, height)
	} else {
		r = image.Rect(0, offset, width, offset+height)
	}
	return doc.SubImage(r)
}

func offsets(from, to, step int) []int {
	var out []int
	if step > 0 {
		for o := from; o <= to; o += step {
			out = append(out, o)
		}
	} else {
		for o := from; o >= to; o += step {
			out = append(out, o)
		}
	}
	return out
}

func testConfig(axis Axis, width, height int) Config {
	cfg := DefaultConfig(axis, width, height)
	cfg.SampleRate = 1
	return cfg
}

func shouldMatchRegion(t *testing.T, got *image.NRGBA, doc *image.NRGBA, region image.Rectangle) {
	t.Helper()
	test.That(t, got.Bounds().Size(), test.ShouldResemble, region.Size())
	want := imaging.Crop(doc, region)
	test.That(t, got.Pix, test.ShouldResemble, want.Pix)
}
