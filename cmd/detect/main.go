// Package main is the detect command: it runs one image through a detection model and prints
// the detections as JSON.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nvr-ai/go-objectdetection/models/model"
)

const (
	flagConfig         = "config"
	flagModelType      = "model-type"
	flagModelPath      = "model-path"
	flagInputSize      = "input-size"
	flagOutput         = "output"
	flagExtract        = "extract"
	flagObjects        = "objects"
	flagMinProbability = "min-probability"
	flagBackend        = "backend"
	flagLibrary        = "onnxruntime-lib"
	flagLogLevel       = "log-level"
)

func newApp() *cli.App {
	return &cli.App{
		Name:      "detect",
		Usage:     "detect objects in an image with RetinaNet, YOLOv3 or Tiny-YOLOv3",
		ArgsUsage: "<image or directory>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "YAML configuration file; flags override its values",
			},
			&cli.StringFlag{
				Name:    flagModelType,
				Aliases: []string{"m"},
				Usage:   fmt.Sprintf("model architecture, one of %v", model.Names),
			},
			&cli.StringFlag{
				Name:  flagModelPath,
				Usage: "ONNX weights file",
			},
			&cli.IntFlag{
				Name:  flagInputSize,
				Usage: "square input size the weights were exported at",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Usage:   "write the annotated image here, or a directory when the input is one; the extension picks the format",
			},
			&cli.BoolFlag{
				Name:  flagExtract,
				Usage: "also write a crop of every detection next to the output image",
			},
			&cli.StringSliceFlag{
				Name:  flagObjects,
				Usage: "only report these classes, e.g. --objects person --objects cell_phone",
			},
			&cli.Float64Flag{
				Name:  flagMinProbability,
				Usage: "minimum percentage probability, 0-100",
			},
			&cli.StringFlag{
				Name:  flagBackend,
				Usage: "execution provider: cpu, cuda, coreml or openvino",
			},
			&cli.StringFlag{
				Name:    flagLibrary,
				Usage:   "path to the ONNX Runtime shared library",
				EnvVars: []string{"ONNXRUNTIME_SHARED_LIBRARY_PATH"},
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "debug, info, warn or error",
			},
		},
		Action: detectAction,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
