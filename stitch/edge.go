package stitch

import (
	"image"

	"go.viam.com/scrollstitch/utils"
	"go.viam.com/scrollstitch/vision/ann"
	"go.viam.com/scrollstitch/vision/keypoints"
)

// front captures what differs between the two growth directions of the composite. Positions are
// document coordinates along the scroll axis: row 0 separates the Top list from the Bottom list
// and a frame at origin o covers [o, o+extent).
type front interface {
	// permits reports whether a displacement moves the view towards this front.
	permits(d int) bool
	// lead is the boundary of a frame at origin that faces this front.
	lead(origin, extent int) int
	// delta is how far a frame at origin reaches past pixelSize.
	delta(origin, extent, pixelSize int) int
	// span is the part of the frame, along the scroll axis, holding delta new pixels.
	span(delta, extent int) (from, to int)
	// coverage is the extent of this front covered by a frame at origin.
	coverage(origin, extent int) int
}

type topFront struct{}

func (topFront) permits(d int) bool { return d <= -1 }

func (topFront) lead(origin, _ int) int { return origin }

func (topFront) delta(origin, _, pixelSize int) int {
	return utils.MaxInt(0, -origin-pixelSize)
}

func (topFront) span(delta, _ int) (int, int) { return 0, delta }

func (topFront) coverage(origin, _ int) int { return -origin }

type bottomFront struct{}

func (bottomFront) permits(d int) bool { return d >= 1 }

func (bottomFront) lead(origin, extent int) int { return origin + extent }

func (bottomFront) delta(origin, extent, pixelSize int) int {
	return utils.MaxInt(0, origin+extent-pixelSize)
}

func (bottomFront) span(delta, extent int) (int, int) { return extent - delta, extent }

func (bottomFront) coverage(origin, extent int) int {
	return utils.MaxInt(0, origin+extent)
}

// Edge is one growth front of the composite with the crops appended to it and the match index
// of the last frame it was rebuilt from.
type Edge struct {
	front
	list List

	pixelSize  int
	indexSize  int
	position   int
	lastOrigin int

	crops     []*image.NRGBA
	keypoints keypoints.KeyPoints
	index     ann.Index
	annCfg    ann.HNSWConfig
}

func newEdge(list List, annCfg ann.HNSWConfig) *Edge {
	e := &Edge{list: list, annCfg: annCfg}
	if list == Top {
		e.front = topFront{}
	} else {
		e.front = bottomFront{}
	}
	return e
}

// List returns which front this edge grows.
func (e *Edge) List() List {
	return e.list
}

// PixelSize is the number of pixels appended to this edge along the scroll axis.
func (e *Edge) PixelSize() int {
	return e.pixelSize
}

// IndexSize is the part of PixelSize covered by the current match index.
func (e *Edge) IndexSize() int {
	return e.indexSize
}

// Position is the document coordinate of the indexed frame's origin.
func (e *Edge) Position() int {
	return e.position
}

// Crops returns the appended crops in insertion order.
func (e *Edge) Crops() []*image.NRGBA {
	return e.crops
}

func (e *Edge) indexed() bool {
	return e.index != nil && e.index.Len() > 0
}

// needsRebuild reports whether the index lags the appended pixels by at least minDelta.
func (e *Edge) needsRebuild(minDelta int) bool {
	return !e.indexed() || e.pixelSize-e.indexSize >= minDelta
}

// rebuild replaces the match index with the features of the frame at origin.
func (e *Edge) rebuild(feats *Features, origin, extent int) {
	idx := ann.NewHNSWIndex(e.annCfg)
	for _, desc := range feats.Descriptors {
		idx.Add(desc)
	}
	idx.Build()

	e.index = idx
	e.keypoints = feats.KeyPoints
	e.position = origin
	e.indexSize = utils.MinInt(e.coverage(origin, extent), e.pixelSize)
}

func (e *Edge) push(crop *image.NRGBA, delta int) {
	e.crops = append(e.crops, crop)
	e.pixelSize += delta
}

func (e *Edge) reset() {
	list, annCfg := e.list, e.annCfg
	*e = *newEdge(list, annCfg)
}
