package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-objectdetection/config"
	"github.com/nvr-ai/go-objectdetection/detection"
	"github.com/nvr-ai/go-objectdetection/images"
	"github.com/nvr-ai/go-objectdetection/inference/providers"
	"github.com/nvr-ai/go-objectdetection/logging"
)

func detectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one image argument")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("detect", cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return run(c, cfg, c.Args().First(), c.App.Writer, logger)
}

// loadConfig reads the optional config file and applies the flags that were set on top.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if c.IsSet(flagModelType) {
		cfg.Model.Type = c.String(flagModelType)
	}
	if c.IsSet(flagModelPath) {
		cfg.Model.Path = c.String(flagModelPath)
	}
	if c.IsSet(flagInputSize) {
		cfg.Model.InputSize = c.Int(flagInputSize)
	}
	if c.IsSet(flagExtract) {
		cfg.Detection.ExtractDetectedObjects = c.Bool(flagExtract)
	}
	if c.IsSet(flagObjects) {
		cfg.Detection.CustomObjects = c.StringSlice(flagObjects)
	}
	if c.IsSet(flagMinProbability) {
		cfg.Detection.MinimumPercentageProbability = c.Float64(flagMinProbability)
	}
	if c.IsSet(flagBackend) {
		cfg.Provider.Backend = providers.ProviderBackend(c.String(flagBackend))
	}
	if c.IsSet(flagLibrary) {
		cfg.Provider.SharedLibraryPath = c.String(flagLibrary)
	}
	if c.IsSet(flagLogLevel) {
		cfg.Log.Level = c.String(flagLogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// detectArgs maps the configuration onto a detection call.
func detectArgs(cfg config.DetectionConfig, output string, filter detection.CustomObjects) detection.DetectArgs {
	return detection.DetectArgs{
		OutputType:                   detection.OutputFile,
		OutputImagePath:              output,
		ExtractDetectedObjects:       cfg.ExtractDetectedObjects,
		CustomObjects:                filter,
		MinimumPercentageProbability: cfg.MinimumPercentageProbability,
		DisplayPercentageProbability: cfg.DisplayPercentageProbability,
		DisplayObjectName:            cfg.DisplayObjectName,
		DisplayBox:                   cfg.DisplayBox,
	}
}

func run(c *cli.Context, cfg config.Config, input string, out io.Writer, logger *zap.Logger) error {
	name, err := cfg.ModelName()
	if err != nil {
		return err
	}
	loader, err := providers.NewLoader(cfg.Provider, logger)
	if err != nil {
		return err
	}

	detector, err := detection.NewDetector(detection.Options{
		Loader:    loader,
		Logger:    logger,
		NMS:       cfg.Detection.NMS,
		InputSize: cfg.Model.InputSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = detector.Close() }()

	detector.SetModelType(name)
	detector.SetModelPath(cfg.Model.Path)
	if err := detector.LoadModel(); err != nil {
		return err
	}

	var filter detection.CustomObjects
	if len(cfg.Detection.CustomObjects) > 0 {
		filter, err = detector.CustomObjects(cfg.Detection.CustomObjects...)
		if err != nil {
			return err
		}
	}

	jobs, err := resolveJobs(input, c.String(flagOutput))
	if err != nil {
		return err
	}

	results := make([]imageResult, 0, len(jobs))
	for _, j := range jobs {
		args := detectArgs(cfg.Detection, j.output, filter)
		result, err := detector.DetectObjectsFromImage(c.Context, images.FromPath(j.input), args)
		if err != nil {
			return errors.Wrapf(err, "detecting objects in %s", j.input)
		}
		logger.Info("detection complete",
			zap.String("input", j.input),
			zap.Int("detections", len(result.Detections)),
			zap.String("output", result.OutputImagePath),
		)
		results = append(results, imageResult{Input: j.input, Result: result})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if len(results) == 1 && !isDir(input) {
		return errors.Wrap(enc.Encode(results[0].Result), "writing result")
	}
	return errors.Wrap(enc.Encode(results), "writing results")
}

// imageResult pairs an input file with its detections in directory mode.
type imageResult struct {
	Input string `json:"input"`
	*detection.Result
}

type job struct {
	input  string
	output string
}

// resolveJobs expands a directory input into one job per image. For a directory, output names
// a directory that receives an annotated image per input, under the input's file name.
func resolveJobs(input, output string) ([]job, error) {
	if !isDir(input) {
		return []job{{input: input, output: output}}, nil
	}
	paths, err := images.ListImageFiles(input)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no images in %s", input)
	}
	jobs := make([]job, len(paths))
	for i, p := range paths {
		jobs[i] = job{input: p}
		if output != "" {
			jobs[i].output = filepath.Join(output, filepath.Base(p))
		}
	}
	return jobs, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
