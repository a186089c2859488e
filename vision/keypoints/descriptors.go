package keypoints

import (
	"image"

	"go.viam.com/scrollstitch/utils"
)

// Descriptor is a fixed-length vector of normalized band intensities around a keypoint. The first
// half holds row band averages, the second half column band averages.
type Descriptor []float64

// Descriptors is a set of descriptors, in the same order as the keypoints they describe.
type Descriptors []Descriptor

// DescriptorLength returns the descriptor length for a patch size. It is always even.
func DescriptorLength(patchSize int) int {
	return patchSize &^ 1
}

// ComputeBandDescriptor describes the square patch of DescriptorLength(patchSize) pixels centered
// on kp. The patch is cut into bands two pixels thick; each entry is the mean intensity of one
// row band or one column band, in [0, 1]. Samples outside the image are skipped and a band
// without any valid sample is 0.
func ComputeBandDescriptor(img *image.Gray, kp image.Point, patchSize int) Descriptor {
	length := DescriptorLength(patchSize)
	bands := length / 2
	desc := make(Descriptor, length)
	if bands == 0 {
		return desc
	}
	bounds := img.Bounds()
	x0 := bounds.Min.X + kp.X - bands
	y0 := bounds.Min.Y + kp.Y - bands

	rowSums := make([]int, bands)
	rowCounts := make([]int, bands)
	colSums := make([]int, bands)
	colCounts := make([]int, bands)
	for dy := 0; dy < length; dy++ {
		y := y0 + dy
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for dx := 0; dx < length; dx++ {
			x := x0 + dx
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			v := int(img.Pix[img.PixOffset(x, y)])
			rowSums[dy/2] += v
			rowCounts[dy/2]++
			colSums[dx/2] += v
			colCounts[dx/2]++
		}
	}
	for i := 0; i < bands; i++ {
		if rowCounts[i] > 0 {
			desc[i] = float64(rowSums[i]) / float64(rowCounts[i]) / 255.
		}
		if colCounts[i] > 0 {
			desc[bands+i] = float64(colSums[i]) / float64(colCounts[i]) / 255.
		}
	}
	return desc
}

// ComputeBandDescriptors computes the descriptors of all keypoints, spread over worker
// goroutines. The result is complete when the call returns.
func ComputeBandDescriptors(img *image.Gray, kps KeyPoints, patchSize int) Descriptors {
	descs := make(Descriptors, len(kps))
	utils.GroupWorkParallel(
		len(kps),
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				descs[workNum] = ComputeBandDescriptor(img, kps[workNum], patchSize)
			}, nil
		},
	)
	return descs
}
