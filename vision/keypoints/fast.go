package keypoints

import (
	"image"
)

// FASTConfig holds the parameters for FAST keypoints detection.
type FASTConfig struct {
	NMatchesCircle int `json:"n_matches"`
	NMSWinSize     int `json:"nms_win_size"`
	Threshold      int `json:"threshold"`
}

// DefaultFASTConfig returns the FAST-9 configuration with a 3x3 suppression window.
func DefaultFASTConfig(threshold int) *FASTConfig {
	return &FASTConfig{
		NMatchesCircle: 9,
		NMSWinSize:     3,
		Threshold:      threshold,
	}
}

// CircleIdx is the Bresenham circle of radius 3 around a candidate, clockwise from the top.
var CircleIdx = []image.Point{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

const circleRadius = 3

// neighborhoodValues fills vals with the intensities at the given offsets around (x, y), which
// are absolute image coordinates. Every offset must fall inside the image.
func neighborhoodValues(img *image.Gray, x, y int, neighborhood []image.Point, vals []int) {
	for i, off := range neighborhood {
		vals[i] = int(img.Pix[img.PixOffset(x+off.X, y+off.Y)])
	}
}

// hasContiguousRun reports whether flags holds at least n consecutive true values, wrapping
// around the end of the slice.
func hasContiguousRun(flags []bool, n int) bool {
	if n <= 0 {
		return true
	}
	size := len(flags)
	if n > size {
		return false
	}
	run := 0
	for i := 0; i < size+n-1; i++ {
		if flags[i%size] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// cornerScore returns the FAST score of the candidate at (x, y), or 0 when it is not a corner.
// The score is the larger of the summed excess brightness and the summed excess darkness over
// the threshold.
func cornerScore(img *image.Gray, x, y int, cfg *FASTConfig, circle []int, brighter, darker []bool) int {
	center := int(img.Pix[img.PixOffset(x, y)])
	hi := center + cfg.Threshold
	lo := center - cfg.Threshold
	brightSum, darkSum := 0, 0
	neighborhoodValues(img, x, y, CircleIdx, circle)
	for i, v := range circle {
		brighter[i] = v > hi
		darker[i] = v < lo
		if brighter[i] {
			brightSum += v - hi
		}
		if darker[i] {
			darkSum += lo - v
		}
	}
	isBright := hasContiguousRun(brighter, cfg.NMatchesCircle)
	isDark := hasContiguousRun(darker, cfg.NMatchesCircle)
	switch {
	case isBright && isDark:
		if brightSum > darkSum {
			return brightSum
		}
		return darkSum
	case isBright:
		return brightSum
	case isDark:
		return darkSum
	default:
		return 0
	}
}

// ComputeFAST computes the location of FAST keypoints in raster order. Candidates closer than
// the circle radius to the border are never evaluated, so detection only depends on the local
// neighborhood of each pixel.
func ComputeFAST(img *image.Gray, cfg *FASTConfig) KeyPoints {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 2*circleRadius || h <= 2*circleRadius || cfg.Threshold < 0 {
		return KeyPoints{}
	}
	origin := bounds.Min

	scores := make([]int, w*h)
	circle := make([]int, len(CircleIdx))
	brighter := make([]bool, len(CircleIdx))
	darker := make([]bool, len(CircleIdx))
	for y := circleRadius; y < h-circleRadius; y++ {
		for x := circleRadius; x < w-circleRadius; x++ {
			scores[y*w+x] = cornerScore(img, x+origin.X, y+origin.Y, cfg, circle, brighter, darker)
		}
	}

	half := cfg.NMSWinSize / 2
	kps := make(KeyPoints, 0)
	for y := circleRadius; y < h-circleRadius; y++ {
		for x := circleRadius; x < w-circleRadius; x++ {
			score := scores[y*w+x]
			if score == 0 {
				continue
			}
			if half > 0 && suppressed(scores, w, h, x, y, half) {
				continue
			}
			kps = append(kps, image.Point{x, y})
		}
	}
	return kps
}

// suppressed reports whether a neighbor within the window outranks (x, y). Ties go to the
// neighbor that comes first in raster order.
func suppressed(scores []int, w, h, x, y, half int) bool {
	score := scores[y*w+x]
	for ny := y - half; ny <= y+half; ny++ {
		if ny < 0 || ny >= h {
			continue
		}
		for nx := x - half; nx <= x+half; nx++ {
			if nx < 0 || nx >= w || (nx == x && ny == y) {
				continue
			}
			other := scores[ny*w+nx]
			earlier := ny < y || (ny == y && nx < x)
			if other > score || (earlier && other == score) {
				return true
			}
		}
	}
	return false
}
