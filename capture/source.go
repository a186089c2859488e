// Package capture feeds frames from a source into a stitching sink.
package capture

import (
	"context"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// A Source produces frames of a scrolled region. Next returns io.EOF once it is exhausted.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// FileSource reads frames from image files in order.
type FileSource struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewFileSource returns a source over the given image files.
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// Next decodes the next file.
func (fs *FileSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.next >= len(fs.paths) {
		return nil, io.EOF
	}
	path := fs.paths[fs.next]
	fs.next++
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read frame %q", path)
	}
	return img, nil
}

// Close makes the source return io.EOF.
func (fs *FileSource) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.next = len(fs.paths)
	return nil
}
