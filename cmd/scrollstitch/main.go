// Package main is the scrollstitch command line tool.
package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"

	"go.viam.com/scrollstitch/capture"
	"go.viam.com/scrollstitch/logging"
	"go.viam.com/scrollstitch/stitch"
	"go.viam.com/scrollstitch/vision/keypoints"
)

const (
	flagDebug     = "debug"
	flagConfig    = "config"
	flagAxis      = "axis"
	flagList      = "list"
	flagOut       = "out"
	flagDebugDir  = "debug-dir"
	flagRect      = "rect"
	flagInterval  = "interval"
	flagMaxFrames = "max-frames"
	flagDir       = "dir"
	flagWidth     = "width"
	flagHeight    = "height"

	defaultInterval = 200 * time.Millisecond
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		reportError(app, err)
		os.Exit(1)
	}
}

// newLogger returns a logger writing to w, at Debug level when debug is set.
func newLogger(w io.Writer, debug bool) logging.Logger {
	logger := logging.NewBlankLogger("scrollstitch")
	logger.AddAppender(logging.NewWriterAppender(zapcore.AddSync(w)))
	if !debug {
		logger.SetLevel(logging.INFO)
	}
	return logger
}

// reportError logs a failed command to the app's error writer.
func reportError(app *cli.App, err error) {
	var w io.Writer = os.Stderr
	if app.ErrWriter != nil {
		w = app.ErrWriter
	}
	logger := newLogger(w, false)
	logger.Errorw("command failed", "error", err)
	goutils.UncheckedError(logger.Sync())
}

func newApp() *cli.App {
	var logger logging.Logger

	sessionFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  flagAxis,
			Value: stitch.Vertical.String(),
			Usage: "scroll `AXIS`, vertical or horizontal",
		},
		&cli.StringFlag{
			Name:  flagList,
			Value: stitch.Bottom.String(),
			Usage: "edge new frames extend, top or bottom",
		},
		&cli.StringFlag{
			Name:     flagOut,
			Aliases:  []string{"o"},
			Required: true,
			Usage:    "write the stitched image to `FILE`",
		},
		&cli.StringFlag{
			Name:  flagDebugDir,
			Usage: "write the keypoints of every frame to `DIR`",
		},
	}

	return &cli.App{
		Name:  "scrollstitch",
		Usage: "stitch scrolled captures into one image",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load session configuration from `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			logger = newLogger(c.App.ErrWriter, c.Bool(flagDebug))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "stitch",
				Usage:     "stitch image files taken while scrolling",
				ArgsUsage: "FRAME...",
				Flags:     sessionFlags,
				Action: func(c *cli.Context) error {
					return stitchFiles(c, logger)
				},
			},
			{
				Name:  "capture",
				Usage: "capture a screen region while it is scrolled, until interrupted",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  flagRect,
						Usage: "screen region as `x,y,w,h`, primary display if unset",
					},
					&cli.DurationFlag{
						Name:  flagInterval,
						Value: defaultInterval,
						Usage: "time between captures",
					},
					&cli.IntFlag{
						Name:  flagMaxFrames,
						Usage: "stop after `N` frames, 0 for no limit",
					},
				}, sessionFlags...),
				Action: func(c *cli.Context) error {
					return captureScreen(c, logger)
				},
			},
			{
				Name:  "watch",
				Usage: "stitch screenshots as they are saved to a directory, until interrupted",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     flagDir,
						Required: true,
						Usage:    "watch `DIR` for new screenshots",
					},
					&cli.IntFlag{
						Name:  flagMaxFrames,
						Usage: "stop after `N` frames, 0 for no limit",
					},
					&cli.IntFlag{
						Name:     flagWidth,
						Required: true,
						Usage:    "screenshot width in pixels",
					},
					&cli.IntFlag{
						Name:     flagHeight,
						Required: true,
						Usage:    "screenshot height in pixels",
					},
				}, sessionFlags...),
				Action: func(c *cli.Context) error {
					return watchDir(c, logger)
				},
			},
		},
	}
}

func stitchFiles(c *cli.Context, logger logging.Logger) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("no frames given")
	}
	first, err := imaging.Open(paths[0])
	if err != nil {
		return errors.Wrapf(err, "cannot read frame %q", paths[0])
	}
	size := first.Bounds().Size()
	return run(c, logger, capture.NewFileSource(paths...), size, capture.LoopConfig{})
}

func captureScreen(c *cli.Context, logger logging.Logger) error {
	var rect image.Rectangle
	if s := c.String(flagRect); s != "" {
		var err error
		if rect, err = capture.ParseRect(s); err != nil {
			return err
		}
	}
	source, err := capture.NewScreenSource(rect)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	c.Context = ctx
	return run(c, logger, source, source.Rect().Size(), capture.LoopConfig{
		Interval:  c.Duration(flagInterval),
		MaxFrames: c.Int(flagMaxFrames),
	})
}

func watchDir(c *cli.Context, logger logging.Logger) error {
	source, err := capture.NewWatchSource(c.String(flagDir))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	c.Context = ctx
	return run(c, logger, source, image.Pt(c.Int(flagWidth), c.Int(flagHeight)), capture.LoopConfig{
		MaxFrames: c.Int(flagMaxFrames),
	})
}

// run stitches every frame of source and writes the result.
func run(c *cli.Context, logger logging.Logger, source capture.Source, size image.Point, loopCfg capture.LoopConfig) error {
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warnw("cannot close source", "error", err)
		}
	}()

	cfg, err := sessionConfig(c, size, logger)
	if err != nil {
		return err
	}
	loopCfg.List, err = stitch.ParseList(c.String(flagList))
	if err != nil {
		return err
	}
	if dir := c.String(flagDebugDir); dir != "" {
		if loopCfg.OnFrame, err = plotFrames(cfg, dir, logger); err != nil {
			return err
		}
	}

	svc := stitch.NewService(logger)
	if err := svc.Init(cfg); err != nil {
		return err
	}
	summary, err := capture.NewLoop(source, svc, loopCfg, nil, logger).Run(c.Context)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	img, ok := svc.Export()
	if !ok {
		return errors.New("no frame could be stitched")
	}
	out := c.String(flagOut)
	if err := imaging.Save(img, out); err != nil {
		return errors.Wrapf(err, "cannot write %q", out)
	}
	fmt.Fprintf(c.App.Writer, "%s: %dx%d from %d of %d frames\n",
		out, img.Bounds().Dx(), img.Bounds().Dy(), summary.Accepted, summary.Frames)
	return nil
}

// sessionConfig loads the --config file or derives defaults from the frame size. An explicit
// --axis overrides the file.
func sessionConfig(c *cli.Context, size image.Point, logger logging.Logger) (stitch.Config, error) {
	axis, err := stitch.ParseAxis(c.String(flagAxis))
	if err != nil {
		return stitch.Config{}, err
	}
	path := c.String(flagConfig)
	if path == "" {
		return stitch.DefaultConfig(axis, size.X, size.Y), nil
	}
	cfg, err := stitch.LoadConfig(path)
	if err != nil {
		return stitch.Config{}, err
	}
	if c.IsSet(flagAxis) {
		cfg.Axis = axis
	}
	if cfg.FrameWidth != size.X || cfg.FrameHeight != size.Y {
		logger.Warnw("frame size from config differs from source", "config", image.Pt(cfg.FrameWidth, cfg.FrameHeight), "source", size)
	}
	return *cfg, nil
}

func plotFrames(cfg stitch.Config, dir string, logger logging.Logger) (func(int, image.Image, stitch.Result, bool), error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	extractor, err := stitch.NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return func(n int, frame image.Image, _ stitch.Result, ok bool) {
		feats, err := extractor.Extract(frame)
		if err != nil {
			logger.Debugw("no keypoints to plot", "frame", n, "error", err)
			return
		}
		name := filepath.Join(dir, fmt.Sprintf("frame%04d_%t.png", n, ok))
		if err := keypoints.PlotKeypoints(feats.Gray, feats.KeyPoints, name); err != nil {
			logger.Warnw("cannot plot keypoints", "frame", n, "error", err)
		}
	}, nil
}
