package stitch

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"

	"go.viam.com/scrollstitch/logging"
)

func checkEdges(t *testing.T, s *Session, minDelta int) {
	t.Helper()
	for _, list := range []List{Top, Bottom} {
		edge := s.Edge(list)
		test.That(t, edge.IndexSize(), test.ShouldBeLessThanOrEqualTo, edge.PixelSize())
		test.That(t, edge.PixelSize()-edge.IndexSize(), test.ShouldBeLessThan, minDelta)
	}
}

func TestFirstFrame(t *testing.T) {
	doc := makeDocument(1, 200, 1000)
	s, err := NewSession(testConfig(Vertical, 200, 200), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.State(), test.ShouldEqual, Empty)

	res, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, res, test.ShouldResemble, Result{Position: 0, List: Top, Grew: true})
	test.That(t, s.State(), test.ShouldEqual, Active)

	top, bottom := s.Edge(Top), s.Edge(Bottom)
	test.That(t, top.PixelSize(), test.ShouldEqual, 200)
	test.That(t, top.IndexSize(), test.ShouldEqual, 200)
	test.That(t, top.Position(), test.ShouldEqual, -200)
	test.That(t, top.Crops(), test.ShouldHaveLength, 1)
	test.That(t, bottom.PixelSize(), test.ShouldEqual, 0)
	test.That(t, bottom.IndexSize(), test.ShouldEqual, 0)
	test.That(t, bottom.Position(), test.ShouldEqual, -200)
	test.That(t, bottom.Crops(), test.ShouldBeEmpty)

	w, h := s.Size()
	test.That(t, w, test.ShouldEqual, 200)
	test.That(t, h, test.ShouldEqual, 200)
}

func TestVerticalScrollDown(t *testing.T) {
	doc := makeDocument(1, 200, 1000)

	for _, tc := range []struct {
		name     string
		cfg      Config
		minDelta int
	}{
		{"full scale rebuild every frame", testConfig(Vertical, 200, 200), 32},
		{"full scale lagging index", testConfig(Vertical, 200, 200), 80},
		{"downsampled", DefaultConfig(Vertical, 200, 200), 32},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.MinSizeDelta = tc.minDelta
			s, err := NewSession(cfg, logging.NewTestLogger(t))
			test.That(t, err, test.ShouldBeNil)

			_, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
			test.That(t, ok, test.ShouldBeTrue)

			grown := 0
			for _, o := range offsets(50, 800, 50) {
				before := s.Edge(Bottom).PixelSize()
				res, ok := s.HandleFrame(window(doc, Vertical, o, 200, 200), Bottom)
				test.That(t, ok, test.ShouldBeTrue)
				test.That(t, res.List, test.ShouldEqual, Bottom)
				test.That(t, res.Position, test.ShouldEqual, o)
				test.That(t, res.Grew, test.ShouldBeTrue)

				growth := s.Edge(Bottom).PixelSize() - before
				test.That(t, growth, test.ShouldEqual, 50)
				grown += growth
				checkEdges(t, s, tc.minDelta)
			}
			test.That(t, grown, test.ShouldEqual, 800)

			w, h := s.Size()
			test.That(t, w, test.ShouldEqual, 200)
			test.That(t, h, test.ShouldEqual, 1000)

			img, ok := s.Export()
			test.That(t, ok, test.ShouldBeTrue)
			shouldMatchRegion(t, img, doc, doc.Bounds())
		})
	}
}

func TestLaggingIndex(t *testing.T) {
	doc := makeDocument(1, 200, 1000)
	cfg := testConfig(Vertical, 200, 200)
	cfg.MinSizeDelta = 80
	s, err := NewSession(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)

	_, ok = s.HandleFrame(window(doc, Vertical, 50, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	bottom := s.Edge(Bottom)
	test.That(t, bottom.PixelSize(), test.ShouldEqual, 50)
	test.That(t, bottom.IndexSize(), test.ShouldEqual, 0)
	test.That(t, bottom.Position(), test.ShouldEqual, -200)

	_, ok = s.HandleFrame(window(doc, Vertical, 100, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, bottom.PixelSize(), test.ShouldEqual, 100)
	test.That(t, bottom.IndexSize(), test.ShouldEqual, 100)
	test.That(t, bottom.Position(), test.ShouldEqual, -100)
}

func TestIrregularScrollSteps(t *testing.T) {
	doc := makeDocument(15, 200, 400)
	s, err := NewSession(testConfig(Vertical, 200, 200), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	o := 0
	for _, step := range []int{7, 13, 31, 1, 47, 90} {
		o += step
		before := s.Edge(Bottom).PixelSize()
		res, ok := s.HandleFrame(window(doc, Vertical, o, 200, 200), Bottom)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res, test.ShouldResemble, Result{Position: o, List: Bottom, Grew: true})
		test.That(t, s.Edge(Bottom).PixelSize()-before, test.ShouldEqual, step)
		checkEdges(t, s, 32)
	}
	test.That(t, o, test.ShouldEqual, 189)

	w, h := s.Size()
	test.That(t, w, test.ShouldEqual, 200)
	test.That(t, h, test.ShouldEqual, 389)
	img, ok := s.Export()
	test.That(t, ok, test.ShouldBeTrue)
	shouldMatchRegion(t, img, doc, image.Rect(0, 0, 200, 389))
}

func TestGapStopsGrowth(t *testing.T) {
	// a blank band leaves the frame after a 150 pixel step nothing to match on
	doc := makeDocument(16, 200, 800)
	draw.Draw(doc, image.Rect(0, 140, 200, 215), &image.Uniform{color.NRGBA{0, 0, 0, 255}}, image.Point{}, draw.Src)
	s, err := NewSession(testConfig(Vertical, 200, 200), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)

	// every later frame is further from the captured content, so none of them match either
	for _, o := range offsets(150, 600, 150) {
		_, ok := s.HandleFrame(window(doc, Vertical, o, 200, 200), Bottom)
		test.That(t, ok, test.ShouldBeFalse)
	}
	w, h := s.Size()
	test.That(t, w, test.ShouldEqual, 200)
	test.That(t, h, test.ShouldEqual, 200)
	test.That(t, s.Edge(Bottom).Crops(), test.ShouldBeEmpty)

	// scrolling back over captured content resumes growth
	res, ok := s.HandleFrame(window(doc, Vertical, 50, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, res, test.ShouldResemble, Result{Position: 50, List: Bottom, Grew: true})
	img, ok := s.Export()
	test.That(t, ok, test.ShouldBeTrue)
	shouldMatchRegion(t, img, doc, image.Rect(0, 0, 200, 250))
}

func TestRepeatedFrameRejected(t *testing.T) {
	doc := makeDocument(3, 200, 600)
	cfg := testConfig(Vertical, 200, 200)
	cfg.MinSizeDelta = 80
	s, err := NewSession(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	first := window(doc, Vertical, 0, 200, 200)
	_, ok := s.HandleFrame(first, Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	for _, list := range []List{Bottom, Top} {
		_, ok = s.HandleFrame(first, list)
		test.That(t, ok, test.ShouldBeFalse)
	}
	w, h := s.Size()
	test.That(t, w, test.ShouldEqual, 200)
	test.That(t, h, test.ShouldEqual, 200)

	next := window(doc, Vertical, 50, 200, 200)
	_, ok = s.HandleFrame(next, Bottom)
	test.That(t, ok, test.ShouldBeTrue)

	// the index still holds the first frame, so only the last accepted origin catches the repeat
	_, ok = s.HandleFrame(next, Bottom)
	test.That(t, ok, test.ShouldBeFalse)
	_, h = s.Size()
	test.That(t, h, test.ShouldEqual, 250)
}

func TestRejectionReasonsLogged(t *testing.T) {
	doc := makeDocument(3, 200, 600)
	cfg := testConfig(Vertical, 200, 200)
	cfg.MinSizeDelta = 80
	logger, logs := logging.NewObservedTestLogger(t)
	s, err := NewSession(cfg, logger)
	test.That(t, err, test.ShouldBeNil)

	_, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	next := window(doc, Vertical, 50, 200, 200)
	_, ok = s.HandleFrame(next, Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = s.HandleFrame(next, Bottom)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = s.HandleFrame(imaging.New(200, 100, color.White), Bottom)
	test.That(t, ok, test.ShouldBeFalse)

	rejected := logs.FilterMessage("frame rejected").All()
	test.That(t, rejected, test.ShouldHaveLength, 2)
	test.That(t, rejected[0].LoggerName, test.ShouldEqual, "stitch")
	test.That(t, rejected[0].ContextMap()["reason"], test.ShouldEqual, ErrNoMovement.Error())
	test.That(t, rejected[1].ContextMap()["reason"], test.ShouldContainSubstring, ErrDimensionMismatch.Error())
}

func TestScrollUp(t *testing.T) {
	doc := makeDocument(4, 200, 1000)
	s, err := NewSession(testConfig(Vertical, 200, 200), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, ok := s.HandleFrame(window(doc, Vertical, 800, 200, 200), Top)
	test.That(t, ok, test.ShouldBeTrue)
	for _, o := range offsets(750, 0, -50) {
		res, ok := s.HandleFrame(window(doc, Vertical, o, 200, 200), Top)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.List, test.ShouldEqual, Top)
		test.That(t, res.Position, test.ShouldEqual, o-1000)
		test.That(t, res.Grew, test.ShouldBeTrue)
		test.That(t, s.Edge(Top).PixelSize(), test.ShouldEqual, 1000-o)
		checkEdges(t, s, 32)
	}
	test.That(t, s.Edge(Bottom).PixelSize(), test.ShouldEqual, 0)

	img, ok := s.Export()
	test.That(t, ok, test.ShouldBeTrue)
	shouldMatchRegion(t, img, doc, doc.Bounds())
}

func TestScrollBothWays(t *testing.T) {
	doc := makeDocument(5, 200, 1000)
	s, err := NewSession(testConfig(Vertical, 200, 200), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, ok := s.HandleFrame(window(doc, Vertical, 400, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	for _, o := range offsets(450, 600, 50) {
		res, ok := s.HandleFrame(window(doc, Vertical, o, 200, 200), Bottom)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.Position, test.ShouldEqual, o-400)
	}
	// the top index still holds the first frame
	for _, o := range offsets(350, 0, -50) {
		res, ok := s.HandleFrame(window(doc, Vertical, o, 200, 200), Top)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.Position, test.ShouldEqual, o-600)
	}
	for _, o := range offsets(650, 800, 50) {
		_, ok := s.HandleFrame(window(doc, Vertical, o, 200, 200), Bottom)
		test.That(t, ok, test.ShouldBeTrue)
	}
	test.That(t, s.Edge(Top).PixelSize(), test.ShouldEqual, 600)
	test.That(t, s.Edge(Bottom).PixelSize(), test.ShouldEqual, 400)

	img, ok := s.Export()
	test.That(t, ok, test.ShouldBeTrue)
	shouldMatchRegion(t, img, doc, doc.Bounds())
}

func TestHorizontalScroll(t *testing.T) {
	doc := makeDocument(6, 1000, 200)
	s, err := NewSession(testConfig(Horizontal, 200, 200), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, ok := s.HandleFrame(window(doc, Horizontal, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	for _, o := range offsets(50, 800, 50) {
		res, ok := s.HandleFrame(window(doc, Horizontal, o, 200, 200), Bottom)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, res.Position, test.ShouldEqual, o)
	}
	w, h := s.Size()
	test.That(t, w, test.ShouldEqual, 1000)
	test.That(t, h, test.ShouldEqual, 200)

	img, ok := s.Export()
	test.That(t, ok, test.ShouldBeTrue)
	shouldMatchRegion(t, img, doc, doc.Bounds())
}

func TestDownsampledWideFrames(t *testing.T) {
	doc := makeDocument(7, 400, 800)
	cfg := DefaultConfig(Vertical, 400, 200)
	test.That(t, cfg.SampleScale(), test.ShouldAlmostEqual, 0.5)
	s, err := NewSession(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	for _, o := range offsets(0, 600, 40) {
		_, ok := s.HandleFrame(window(doc, Vertical, o, 400, 200), Bottom)
		test.That(t, ok, test.ShouldBeTrue)
	}
	img, ok := s.Export()
	test.That(t, ok, test.ShouldBeTrue)
	shouldMatchRegion(t, img, doc, doc.Bounds())
}

func TestUnrelatedFramesRejected(t *testing.T) {
	doc := makeDocument(8, 200, 600)
	s, err := NewSession(testConfig(Vertical, 200, 200), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)

	t.Run("noise", func(t *testing.T) {
		for seed := int64(0); seed < 3; seed++ {
			_, ok := s.HandleFrame(makeNoise(seed, 200, 200), Bottom)
			test.That(t, ok, test.ShouldBeFalse)
		}
	})
	t.Run("no features", func(t *testing.T) {
		_, ok := s.HandleFrame(imaging.New(200, 200, color.Gray{128}), Bottom)
		test.That(t, ok, test.ShouldBeFalse)
	})
	t.Run("dimension mismatch", func(t *testing.T) {
		_, ok := s.HandleFrame(doc.SubImage(image.Rect(0, 50, 200, 249)), Bottom)
		test.That(t, ok, test.ShouldBeFalse)
	})
	t.Run("wrong direction", func(t *testing.T) {
		_, ok := s.HandleFrame(window(doc, Vertical, 50, 200, 200), Top)
		test.That(t, ok, test.ShouldBeFalse)
	})
	t.Run("unknown list", func(t *testing.T) {
		_, ok := s.HandleFrame(window(doc, Vertical, 50, 200, 200), List(7))
		test.That(t, ok, test.ShouldBeFalse)
	})

	w, h := s.Size()
	test.That(t, w, test.ShouldEqual, 200)
	test.That(t, h, test.ShouldEqual, 200)
	test.That(t, s.Edge(Bottom).Crops(), test.ShouldBeEmpty)
}

func TestFeaturelessFirstFrame(t *testing.T) {
	s, err := NewSession(testConfig(Vertical, 200, 200), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, ok := s.HandleFrame(imaging.New(200, 200, color.Black), Bottom)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, s.State(), test.ShouldEqual, Empty)
	w, h := s.Size()
	test.That(t, w, test.ShouldEqual, 0)
	test.That(t, h, test.ShouldEqual, 0)
	_, ok = s.Export()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNonGrowingFrame(t *testing.T) {
	doc := makeDocument(9, 200, 600)
	cfg := testConfig(Vertical, 200, 200)
	cfg.MinSizeDelta = 80
	s, err := NewSession(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = s.HandleFrame(window(doc, Vertical, 50, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)

	// scrolling back a little is still ahead of the indexed frame but reveals nothing
	res, ok := s.HandleFrame(window(doc, Vertical, 25, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, res, test.ShouldResemble, Result{Position: 25, List: Bottom, Grew: false})
	test.That(t, s.Edge(Bottom).PixelSize(), test.ShouldEqual, 50)
	test.That(t, s.Edge(Bottom).Crops(), test.ShouldHaveLength, 1)

	res, ok = s.HandleFrame(window(doc, Vertical, 100, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, res, test.ShouldResemble, Result{Position: 100, List: Bottom, Grew: true})

	img, ok := s.Export()
	test.That(t, ok, test.ShouldBeTrue)
	shouldMatchRegion(t, img, doc, image.Rect(0, 0, 200, 300))
}

func TestResetAfterExportAndClear(t *testing.T) {
	doc := makeDocument(10, 200, 600)
	cfg := testConfig(Vertical, 200, 200)

	fresh, err := NewSession(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	want, ok := fresh.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
	test.That(t, ok, test.ShouldBeTrue)

	for _, finish := range []struct {
		name  string
		state State
		do    func(*Session)
	}{
		{"export", Exported, func(s *Session) {
			_, ok := s.Export()
			test.That(t, ok, test.ShouldBeTrue)
		}},
		{"clear", Cleared, func(s *Session) { s.Clear() }},
	} {
		t.Run(finish.name, func(t *testing.T) {
			s, err := NewSession(cfg, logging.NewTestLogger(t))
			test.That(t, err, test.ShouldBeNil)
			for _, o := range offsets(0, 200, 50) {
				_, ok := s.HandleFrame(window(doc, Vertical, o, 200, 200), Bottom)
				test.That(t, ok, test.ShouldBeTrue)
			}
			finish.do(s)
			test.That(t, s.State(), test.ShouldEqual, finish.state)

			w, h := s.Size()
			test.That(t, w, test.ShouldEqual, 0)
			test.That(t, h, test.ShouldEqual, 0)
			_, ok := s.HandleFrame(window(doc, Vertical, 250, 200, 200), Bottom)
			test.That(t, ok, test.ShouldBeFalse)
			_, ok = s.Export()
			test.That(t, ok, test.ShouldBeFalse)

			s, err = NewSession(cfg, logging.NewTestLogger(t))
			test.That(t, err, test.ShouldBeNil)
			got, ok := s.HandleFrame(window(doc, Vertical, 0, 200, 200), Bottom)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, got, test.ShouldResemble, want)
			gw, gh := s.Size()
			fw, fh := fresh.Size()
			test.That(t, gw, test.ShouldEqual, fw)
			test.That(t, gh, test.ShouldEqual, fh)
		})
	}
}

func TestInvalidSession(t *testing.T) {
	cfg := testConfig(Vertical, 0, 200)
	_, err := NewSession(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "frame_width")
}
