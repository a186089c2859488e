package stitch

import "github.com/pkg/errors"

// Reasons a frame is rejected. None of them is fatal to a session; HandleFrame reports them as a
// plain rejection.
var (
	// ErrDimensionMismatch means the frame size differs from the session's frame size.
	ErrDimensionMismatch = errors.New("frame dimensions do not match session")
	// ErrNoFeatures means no corner was detected in the frame.
	ErrNoFeatures = errors.New("no features detected in frame")
	// ErrNoConsensus means the matches did not agree on a single displacement.
	ErrNoConsensus = errors.New("no consensus displacement")
	// ErrNoMovement means the frame sits where the previous accepted frame was.
	ErrNoMovement = errors.New("frame did not move since last accepted frame")
	// ErrSessionClosed means the session was exported or cleared.
	ErrSessionClosed = errors.New("session is closed")
)
