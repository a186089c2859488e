package capture

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/scrollstitch/logging"
	"go.viam.com/scrollstitch/stitch"
)

// A Sink consumes frames in capture order. *stitch.Service and *stitch.Session are sinks.
type Sink interface {
	HandleFrame(frame image.Image, list stitch.List) (stitch.Result, bool)
}

// LoopConfig controls a capture loop.
type LoopConfig struct {
	// Interval between captures. Zero pulls frames as fast as the sink takes them.
	Interval time.Duration
	// MaxFrames stops the loop after that many frames. Zero means no limit.
	MaxFrames int
	// List is the edge every frame is matched against.
	List stitch.List
	// OnFrame, if set, is called after every frame is handled.
	OnFrame func(n int, frame image.Image, res stitch.Result, ok bool)
}

// Summary describes a finished capture loop.
type Summary struct {
	Frames        int
	Accepted      int
	Grew          int
	Rejected      int
	MedianLatency time.Duration
	P95Latency    time.Duration
}

// Loop pulls frames from a Source and pushes them into a Sink.
type Loop struct {
	source Source
	sink   Sink
	cfg    LoopConfig
	clock  clock.Clock
	logger logging.Logger
}

// NewLoop returns a loop. A nil clk uses the wall clock.
func NewLoop(source Source, sink Sink, cfg LoopConfig, clk clock.Clock, logger logging.Logger) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		source: source,
		sink:   sink,
		cfg:    cfg,
		clock:  clk,
		logger: logger.Sublogger("capture"),
	}
}

// Run captures until the source is exhausted, MaxFrames is reached, or ctx is done. Frames reach
// the sink one at a time in capture order.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	frames := make(chan image.Image, 1)
	errs, ctx := errgroup.WithContext(ctx)
	errs.Go(func() error {
		defer close(frames)
		return l.produce(ctx, frames)
	})

	var summary Summary
	var latencies []float64
	errs.Go(func() error {
		for frame := range frames {
			start := l.clock.Now()
			res, ok := l.sink.HandleFrame(frame, l.cfg.List)
			latencies = append(latencies, float64(l.clock.Since(start)))

			summary.Frames++
			if ok {
				summary.Accepted++
				if res.Grew {
					summary.Grew++
				}
				l.logger.Debugw("frame handled", "frame", summary.Frames, "position", res.Position, "grew", res.Grew)
			} else {
				summary.Rejected++
			}
			if l.cfg.OnFrame != nil {
				l.cfg.OnFrame(summary.Frames, frame, res, ok)
			}
		}
		return nil
	})

	err := errs.Wait()
	if len(latencies) > 0 {
		median, _ := stats.Median(latencies)
		p95, _ := stats.Percentile(latencies, 95)
		summary.MedianLatency = time.Duration(median)
		summary.P95Latency = time.Duration(p95)
	}
	l.logger.Infow("capture finished",
		"frames", summary.Frames,
		"accepted", summary.Accepted,
		"grew", summary.Grew,
		"rejected", summary.Rejected,
		"median_latency", summary.MedianLatency,
		"p95_latency", summary.P95Latency,
	)
	return summary, err
}

func (l *Loop) produce(ctx context.Context, frames chan<- image.Image) error {
	var tick <-chan time.Time
	if l.cfg.Interval > 0 {
		ticker := l.clock.Ticker(l.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for n := 0; l.cfg.MaxFrames <= 0 || n < l.cfg.MaxFrames; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		frame, err := l.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frames <- frame:
		}
	}
	return nil
}
