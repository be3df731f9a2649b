package providers

import (
	"go.uber.org/zap"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/model"
)

// Loader opens ONNX Runtime sessions for detection models.
type Loader struct {
	config Config
	logger *zap.Logger
}

// NewLoader creates a loader for the configured execution provider.
//
// Arguments:
//   - config: Provider selection and runtime settings.
//   - logger: Session logging. Nil disables logging.
//
// Returns:
//   - *Loader: The loader.
//   - error: An error if the configuration is invalid.
func NewLoader(config Config, logger *zap.Logger) (*Loader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{config: config, logger: logger}, nil
}

// Load initializes the runtime, checks the weights against the model's tensor contract and
// creates a session.
//
// Arguments:
//   - opts: The model's path and tensor contract.
//
// Returns:
//   - inference.Session: The session, owned by the caller.
//   - error: An error wrapping inference.ErrIncompatibleModel if the weights do not fit the
//     architecture, or a runtime error.
func (l *Loader) Load(opts model.Options) (inference.Session, error) {
	if err := InitializeEnvironment(l.config.SharedLibraryPath); err != nil {
		return nil, err
	}
	if err := CheckCompatibility(opts.Path, opts.Inputs, opts.Outputs); err != nil {
		return nil, err
	}

	providerOpts, err := l.config.ProviderOptions()
	if err != nil {
		return nil, err
	}
	provider, err := NewProvider(providerOpts)
	if err != nil {
		return nil, err
	}

	session, err := NewSession(provider, NewSessionArgs{
		Model:        opts,
		Optimization: l.config.Optimization,
		Logger:       l.logger.With(zap.String("model", string(opts.Name))),
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("loaded model",
		zap.String("model", string(opts.Name)),
		zap.String("path", opts.Path),
		zap.String("backend", string(provider.Backend())),
	)
	return session, nil
}
