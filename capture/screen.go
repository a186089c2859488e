package capture

import (
	"context"
	"image"
	"strconv"
	"strings"

	"github.com/kbinani/screenshot"
	"github.com/pkg/errors"
)

// ScreenSource grabs a fixed rectangle of the screen on every call.
type ScreenSource struct {
	rect image.Rectangle
}

// NewScreenSource returns a source for rect. An empty rect selects the primary display.
func NewScreenSource(rect image.Rectangle) (*ScreenSource, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, errors.New("no active display")
	}
	if rect.Empty() {
		return &ScreenSource{rect: screenshot.GetDisplayBounds(0)}, nil
	}
	var all image.Rectangle
	for i := 0; i < n; i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	if !rect.In(all) {
		return nil, errors.Errorf("capture region %v outside of displays %v", rect, all)
	}
	return &ScreenSource{rect: rect}, nil
}

// Rect returns the captured screen region.
func (ss *ScreenSource) Rect() image.Rectangle {
	return ss.rect
}

// Next captures the region.
func (ss *ScreenSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(ss.rect)
	if err != nil {
		return nil, errors.Wrap(err, "screen capture failed")
	}
	return img, nil
}

// Close does nothing; screen capture holds no resources between frames.
func (ss *ScreenSource) Close() error {
	return nil
}

// ParseRect parses "x,y,w,h" into a rectangle.
func ParseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, errors.Errorf("expected x,y,w,h but got %q", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, errors.Wrapf(err, "bad rectangle %q", s)
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return image.Rectangle{}, errors.Errorf("rectangle %q must have positive size", s)
	}
	return image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3]), nil
}
