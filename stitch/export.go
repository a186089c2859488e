package stitch

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/samber/lo/mutable"
)

// Export paints the Top crops from the far end down to the first frame, then the Bottom crops
// in order, and closes the session. It returns false when nothing was captured.
func (s *Session) Export() (*image.NRGBA, bool) {
	width, height := s.Size()
	if width == 0 || height == 0 {
		s.logger.Debug("nothing to export")
		return nil, false
	}
	canvas := imaging.New(width, height, image.Transparent)

	crops := make([]*image.NRGBA, 0, len(s.top.crops)+len(s.bottom.crops))
	crops = append(crops, s.top.crops...)
	mutable.Reverse(crops)
	crops = append(crops, s.bottom.crops...)

	offset := 0
	for _, crop := range crops {
		size := crop.Bounds().Size()
		extent := s.cfg.Axis.along(size.X, size.Y)
		dst := s.cfg.Axis.region(offset, offset+extent, width, height)
		draw.Draw(canvas, dst, crop, crop.Bounds().Min, draw.Src)
		offset += extent
	}

	s.logger.Debugw("exported", "width", width, "height", height, "crops", len(crops))
	s.reset(Exported)
	return canvas, true
}
