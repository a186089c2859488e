package stitch

import (
	"image"
	"strings"

	"github.com/pkg/errors"
)

// Axis is the direction content scrolls along.
type Axis int

const (
	// Vertical scrolling moves content along Y.
	Vertical Axis = iota
	// Horizontal scrolling moves content along X.
	Horizontal
)

func (a Axis) String() string {
	switch a {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return "unknown"
	}
}

// ParseAxis parses "vertical" or "horizontal", case-insensitively.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical", "v":
		return Vertical, nil
	case "horizontal", "h":
		return Horizontal, nil
	}
	return Vertical, errors.Errorf("unknown scroll axis %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Axis) MarshalText() ([]byte, error) {
	if a != Vertical && a != Horizontal {
		return nil, errors.Errorf("unknown scroll axis %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Axis) UnmarshalText(text []byte) error {
	parsed, err := ParseAxis(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// along returns the frame extent in the scroll direction.
func (a Axis) along(width, height int) int {
	if a == Horizontal {
		return width
	}
	return height
}

// across returns the frame extent orthogonal to the scroll direction.
func (a Axis) across(width, height int) int {
	if a == Horizontal {
		return height
	}
	return width
}

// region maps the span [from, to) along the scroll axis to a rectangle in frame coordinates.
func (a Axis) region(from, to, width, height int) image.Rectangle {
	if a == Horizontal {
		return image.Rect(from, 0, to, height)
	}
	return image.Rect(0, from, width, to)
}

// List names one of the two growth fronts of the composite.
type List int

const (
	// Top holds content before the first frame, including the first frame itself.
	Top List = iota
	// Bottom holds content after the first frame.
	Bottom
)

func (l List) String() string {
	switch l {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParseList parses "top" or "bottom", case-insensitively.
func ParseList(s string) (List, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "up", "left":
		return Top, nil
	case "bottom", "down", "right":
		return Bottom, nil
	}
	return Bottom, errors.Errorf("unknown list %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l List) MarshalText() ([]byte, error) {
	if l != Top && l != Bottom {
		return nil, errors.Errorf("unknown list %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *List) UnmarshalText(text []byte) error {
	parsed, err := ParseList(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
