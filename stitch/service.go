package stitch

import (
	"image"
	"sync"

	"go.viam.com/scrollstitch/logging"
)

// Service holds at most one Session and serializes every operation on it, so frames arriving
// from a capture loop and requests from a user facing layer can share it.
type Service struct {
	mu      sync.Mutex
	logger  logging.Logger
	session *Session
}

// NewService returns a Service without a session.
func NewService(logger logging.Logger) *Service {
	return &Service{logger: logger}
}

// Init starts a new session, replacing any running one. An invalid cfg leaves the service
// without a session.
func (svc *Service) Init(cfg Config) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.session = nil
	session, err := NewSession(cfg, svc.logger)
	if err != nil {
		return err
	}
	svc.session = session
	return nil
}

// HandleFrame forwards frame to the running session.
func (svc *Service) HandleFrame(frame image.Image, list List) (Result, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.session == nil {
		svc.logger.Debugw("frame rejected", "reason", ErrSessionClosed.Error())
		return Result{}, false
	}
	return svc.session.HandleFrame(frame, list)
}

// GetSize returns the composite dimensions of the running session, or zeros.
func (svc *Service) GetSize() (int, int) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.session == nil {
		return 0, 0
	}
	return svc.session.Size()
}

// Export finalizes the running session and drops it.
func (svc *Service) Export() (*image.NRGBA, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.session == nil {
		return nil, false
	}
	img, ok := svc.session.Export()
	svc.session = nil
	return img, ok
}

// Clear abandons the running session.
func (svc *Service) Clear() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.session != nil {
		svc.session.Clear()
		svc.session = nil
	}
}
