// Package stitch builds one seamless image out of overlapping captures of a scrolled region.
//
// A Session is fed frames one at a time. Each frame after the first is matched against the
// most recently indexed frame of one of two growth fronts, Top or Bottom, and only the strip
// it reveals beyond the captured extent is kept.
package stitch

import (
	"image"

	"github.com/pkg/errors"

	"go.viam.com/scrollstitch/logging"
	"go.viam.com/scrollstitch/rimage"
)

// State is the lifecycle stage of a Session.
type State int

const (
	// Empty sessions have not accepted a frame yet.
	Empty State = iota
	// Active sessions hold content.
	Active
	// Exported sessions have handed their content out and accept no more frames.
	Exported
	// Cleared sessions were abandoned and accept no more frames.
	Cleared
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Active:
		return "active"
	case Exported:
		return "exported"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Result describes an accepted frame.
type Result struct {
	// Position is the document coordinate of the frame boundary facing List.
	Position int
	// List is the front the frame was matched against.
	List List
	// Grew is set when the frame added pixels to List.
	Grew bool
}

// Session is the state of one scroll capture run. It is not safe for concurrent use; frames
// must be handled in capture order.
type Session struct {
	cfg       Config
	logger    logging.Logger
	extractor *Extractor
	extent    int

	state  State
	top    *Edge
	bottom *Edge
}

// NewSession validates cfg and returns an empty session.
func NewSession(cfg Config, logger logging.Logger) (*Session, error) {
	extractor, err := NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	annCfg := cfg.indexConfig()
	s := &Session{
		cfg:       cfg,
		logger:    logger.Sublogger("stitch"),
		extractor: extractor,
		extent:    cfg.Axis.along(cfg.FrameWidth, cfg.FrameHeight),
		top:       newEdge(Top, annCfg),
		bottom:    newEdge(Bottom, annCfg),
	}
	s.logger.Debugw("session started",
		"axis", cfg.Axis.String(),
		"width", cfg.FrameWidth,
		"height", cfg.FrameHeight,
		"scale", cfg.SampleScale(),
	)
	return s, nil
}

// Config returns the session's configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// State returns the lifecycle stage of the session.
func (s *Session) State() State {
	return s.state
}

// Edge returns the edge growing list.
func (s *Session) Edge(list List) *Edge {
	if list == Top {
		return s.top
	}
	return s.bottom
}

// HandleFrame ingests a frame taken relative to list. It returns false and leaves the session
// unchanged when the frame is rejected.
func (s *Session) HandleFrame(frame image.Image, list List) (Result, bool) {
	res, err := s.handleFrame(frame, list)
	if err != nil {
		s.logger.Debugw("frame rejected", "list", list.String(), "reason", err.Error())
		return Result{}, false
	}
	return res, true
}

func (s *Session) handleFrame(frame image.Image, list List) (Result, error) {
	if s.state == Exported || s.state == Cleared {
		return Result{}, ErrSessionClosed
	}
	if list != Top && list != Bottom {
		return Result{}, errors.Errorf("unknown list %d", int(list))
	}
	feats, err := s.extractor.Extract(frame)
	if err != nil {
		return Result{}, err
	}
	if s.state == Empty {
		return s.seed(frame, feats)
	}

	edge := s.Edge(list)
	match, err := estimateOffset(edge, feats)
	if err != nil {
		return Result{}, err
	}
	origin := edge.position + match.Displacement
	if origin == edge.lastOrigin {
		return Result{}, ErrNoMovement
	}

	delta := edge.delta(origin, s.extent, edge.pixelSize)
	if delta > 0 {
		from, to := edge.span(delta, s.extent)
		crop, err := rimage.Crop(frame, s.cfg.Axis.region(from, to, s.cfg.FrameWidth, s.cfg.FrameHeight))
		if err != nil {
			return Result{}, err
		}
		edge.push(crop, delta)
	}
	edge.lastOrigin = origin

	if edge.needsRebuild(s.cfg.MinSizeDelta) {
		edge.rebuild(feats, origin, s.extent)
	}

	lead := edge.lead(origin, s.extent)
	s.logger.Debugw("frame accepted",
		"list", list.String(),
		"displacement", match.Displacement,
		"votes", match.Votes,
		"runner_up", match.RunnerUp,
		"position", lead,
		"delta", delta,
	)
	return Result{Position: lead, List: list, Grew: delta > 0}, nil
}

// seed stores the first frame whole in the Top list and indexes it for both edges.
func (s *Session) seed(frame image.Image, feats *Features) (Result, error) {
	crop, err := rimage.Crop(frame, image.Rect(0, 0, s.cfg.FrameWidth, s.cfg.FrameHeight))
	if err != nil {
		return Result{}, err
	}
	origin := -s.extent
	s.top.push(crop, s.extent)
	for _, edge := range []*Edge{s.top, s.bottom} {
		edge.rebuild(feats, origin, s.extent)
		edge.lastOrigin = origin
	}
	s.state = Active
	return Result{Position: 0, List: Top, Grew: true}, nil
}

// Size returns the current composite dimensions.
func (s *Session) Size() (int, int) {
	along := s.top.pixelSize + s.bottom.pixelSize
	if along == 0 {
		return 0, 0
	}
	if s.cfg.Axis == Horizontal {
		return along, s.cfg.FrameHeight
	}
	return s.cfg.FrameWidth, along
}

// Clear abandons the session.
func (s *Session) Clear() {
	s.reset(Cleared)
}

func (s *Session) reset(state State) {
	s.top.reset()
	s.bottom.reset()
	s.state = state
}
