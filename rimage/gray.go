// Package rimage holds the raster helpers the stitcher needs: intensity conversion, axis
// transposition, across-axis resampling and owned crops.
package rimage

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ToGray converts any image to a single channel intensity image anchored at the origin.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	bounds := img.Bounds()
	result := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)
	return result
}

// TransposeGray mirrors a gray image along its main diagonal, so column x becomes row x.
func TransposeGray(img *image.Gray) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < w; x++ {
			out.Pix[x*out.Stride+y] = row[x]
		}
	}
	return out
}

// ResizeAcross resamples the X axis of img to width pixels with nearest-neighbor interpolation.
// The Y axis is left untouched so row coordinates stay exact.
func ResizeAcross(img *image.Gray, width int) (*image.Gray, error) {
	if width <= 0 {
		return nil, errors.Errorf("cannot resize to non-positive width %d", width)
	}
	if width == img.Bounds().Dx() {
		return img, nil
	}
	resized := resize.Resize(uint(width), uint(img.Bounds().Dy()), img, resize.NearestNeighbor)
	return ToGray(resized), nil
}

// Crop returns an owned copy of region, given in coordinates relative to the image's origin.
func Crop(img image.Image, region image.Rectangle) (*image.NRGBA, error) {
	bounds := img.Bounds()
	abs := region.Add(bounds.Min)
	if region.Empty() || !abs.In(bounds) {
		return nil, errors.Errorf("crop region %v outside of image bounds %v", region, bounds)
	}
	return imaging.Crop(img, abs), nil
}

// SameSize reports whether img has exactly the given dimensions.
func SameSize(img image.Image, width, height int) bool {
	size := img.Bounds().Size()
	return size.X == width && size.Y == height
}
