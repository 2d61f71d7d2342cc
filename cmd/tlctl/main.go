// Package main is tlctl, a command line companion to the tl-detector service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/SyedDaiam9101/tl-detector/internal/classifier"
	"github.com/SyedDaiam9101/tl-detector/internal/frame"
	"github.com/SyedDaiam9101/tl-detector/internal/handler"
	"github.com/SyedDaiam9101/tl-detector/internal/inference"
	"github.com/SyedDaiam9101/tl-detector/internal/logging"
	"github.com/SyedDaiam9101/tl-detector/internal/rosbag"
)

const (
	// Flags.
	flagDebug   = "debug"
	flagBackend = "backend"
	flagModels  = "models"
	flagSample  = "sample"
	flagONNX    = "onnx-library"
	flagMock    = "mock"
	flagTopic   = "topic"
	flagLimit   = "limit"
	flagAddr    = "addr"
	flagCamera  = "camera"
	flagTimeout = "timeout"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	logger := logging.Nop()

	modelFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  flagBackend,
			Value: string(classifier.Simulator),
			Usage: "classifier backend: simulator or real-vehicle",
		},
		&cli.StringFlag{
			Name:  flagModels,
			Value: "light_classification",
			Usage: "model `DIR` holding the artifacts and sample.jpg",
		},
		&cli.StringFlag{
			Name:  flagSample,
			Usage: "self-test image `FILE` (default: DIR/sample.jpg)",
		},
		&cli.StringFlag{
			Name:    flagONNX,
			EnvVars: []string{"TL_DETECTOR_ONNX_LIBRARY"},
			Usage:   "path to the onnxruntime shared library",
		},
		&cli.BoolFlag{
			Name:  flagMock,
			Usage: "use mock models instead of ONNX",
		},
	}

	return &cli.App{
		Name:      "tlctl",
		Usage:     "classify traffic lights in images and ROS bags",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				l, err := logging.New("tlctl", "debug", true)
				if err != nil {
					return err
				}
				logger = l
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "classify",
				Usage:     "classify image files with a local model",
				ArgsUsage: "FILE...",
				Flags:     modelFlags,
				Action: func(c *cli.Context) error {
					return classifyFiles(c, logger)
				},
			},
			{
				Name:      "bag",
				Usage:     "replay the camera topic of a ROS bag through a local model",
				ArgsUsage: "BAG",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  flagTopic,
						Value: rosbag.DefaultTopic,
						Usage: "sensor_msgs/Image `TOPIC` to replay",
					},
					&cli.IntFlag{
						Name:  flagLimit,
						Usage: "stop after `N` frames (0 replays everything)",
					},
				}, modelFlags...),
				Action: func(c *cli.Context) error {
					return replayBag(c, logger)
				},
			},
			{
				Name:      "remote",
				Usage:     "send image files to a running tl-detector",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagAddr,
						Value: "localhost:50051",
						Usage: "gRPC `ADDRESS` of the server",
					},
					&cli.StringFlag{
						Name:  flagCamera,
						Usage: "camera id sent as x-camera-id",
					},
					&cli.DurationFlag{
						Name:  flagTimeout,
						Value: 10 * time.Second,
						Usage: "per-request timeout",
					},
				},
				Action: classifyRemote,
			},
		},
	}
}

func loadClassifier(c *cli.Context, logger *zap.SugaredLogger) (*classifier.Classifier, error) {
	var opener inference.Opener = inference.ONNXOpener{LibraryPath: c.String(flagONNX)}
	if c.Bool(flagMock) {
		opener = inference.NewMockOpener()
	}
	return classifier.New(classifier.Config{
		Backend:     classifier.Kind(c.String(flagBackend)),
		ModelDir:    c.String(flagModels),
		SampleImage: c.String(flagSample),
	},
		classifier.WithOpener(opener),
		classifier.WithLogger(logger),
	)
}

func closeClassifier(c *cli.Context, clf *classifier.Classifier) error {
	err := clf.Close()
	if !c.Bool(flagMock) {
		err = multierr.Append(err, inference.Shutdown())
	}
	return err
}

func classifyFiles(c *cli.Context, logger *zap.SugaredLogger) (err error) {
	if c.NArg() == 0 {
		return errors.New("no image files given")
	}
	clf, err := loadClassifier(c, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeClassifier(c, clf)) }()

	for _, path := range c.Args().Slice() {
		f, err := frame.Load(path)
		if err != nil {
			return err
		}
		sig, err := clf.Classify(c.Context, f)
		if err != nil {
			return errors.Wrapf(err, "classifying %s", path)
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%d\n", path, sig, int32(sig))
	}
	return nil
}

func replayBag(c *cli.Context, logger *zap.SugaredLogger) (err error) {
	if c.NArg() != 1 {
		return errors.New("expected exactly one bag file")
	}
	rb, err := rosbag.ReadBag(c.Args().First())
	if err != nil {
		return err
	}

	clf, err := loadClassifier(c, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeClassifier(c, clf)) }()

	limit := c.Int(flagLimit)
	n := 0
	errStop := errors.New("limit reached")
	err = rosbag.EachImage(rb, c.String(flagTopic), func(img rosbag.Image) error {
		sig, err := clf.Classify(c.Context, img.Frame)
		if err != nil {
			return errors.Wrapf(err, "classifying frame %d", img.Seq)
		}
		fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\t%d\n",
			img.Seq, img.Stamp.UTC().Format(time.RFC3339Nano), sig, int32(sig))
		n++
		if limit > 0 && n >= limit {
			return errStop
		}
		return nil
	})
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func classifyRemote(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no image files given")
	}
	conn, err := grpc.DialContext(c.Context, c.String(flagAddr),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return errors.Wrapf(err, "connecting to %s", c.String(flagAddr))
	}
	defer conn.Close()

	client := handler.NewClassifierClient(conn)
	for _, path := range c.Args().Slice() {
		image, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(c.Context, c.Duration(flagTimeout))
		sig, err := client.Classify(ctx, image, c.String(flagCamera))
		cancel()
		if err != nil {
			return errors.Wrapf(err, "classifying %s", path)
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%d\n", path, sig, int32(sig))
	}
	return nil
}
