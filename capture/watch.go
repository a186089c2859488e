package capture

import (
	"context"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// WatchSource yields image files as they appear in a directory, for screenshot tools that save
// every capture to disk. Files must appear complete, e.g. by being renamed into the directory.
type WatchSource struct {
	dir     string
	watcher *fsnotify.Watcher
}

// NewWatchSource starts watching dir.
func NewWatchSource(dir string) (*WatchSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot watch %q", dir), watcher.Close())
	}
	return &WatchSource{dir: dir, watcher: watcher}, nil
}

// Next waits for the next image file created in the directory.
func (ws *WatchSource) Next(ctx context.Context) (image.Image, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err, ok := <-ws.watcher.Errors:
			if !ok {
				return nil, io.EOF
			}
			return nil, errors.Wrapf(err, "watching %q", ws.dir)
		case event, ok := <-ws.watcher.Events:
			if !ok {
				return nil, io.EOF
			}
			if !event.Has(fsnotify.Create) || !isImageFile(event.Name) {
				continue
			}
			img, err := imaging.Open(event.Name)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot read frame %q", event.Name)
			}
			return img, nil
		}
	}
}

// Close stops watching. Pending and later Next calls return io.EOF.
func (ws *WatchSource) Close() error {
	return ws.watcher.Close()
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".gif":
		return true
	default:
		return false
	}
}
