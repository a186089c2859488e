// Package keypoints contains the corner detection and local descriptors used to match content
// between successive scroll captures:
// - FAST-9 keypoints with non-maximum suppression
// - row/column band average descriptors
package keypoints

import (
	"image"

	"github.com/fogleman/gg"
)

// KeyPoints is a set of keypoint coordinates in raster order.
type KeyPoints []image.Point

// PlotKeypoints saves img as a PNG with every keypoint outlined by its FAST circle.
func PlotKeypoints(img *image.Gray, kps KeyPoints, outName string) error {
	dc := gg.NewContextForImage(img)
	dc.SetRGBA(1, 0, 0, 0.8)
	dc.SetLineWidth(1)
	for _, p := range kps {
		dc.DrawCircle(float64(p.X)+0.5, float64(p.Y)+0.5, circleRadius)
		dc.Stroke()
	}
	return dc.SavePNG(outName)
}
