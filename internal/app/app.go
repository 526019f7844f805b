package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/ctxlog"
	"github.com/edalgrin/amdloader/internal/loader"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
	loader *loader.Loader
}

// New is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, registry, and
// loader.
func New(outW io.Writer, appConfig *Config, cfgLoader config.Loader, opts ...loader.Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := cfgLoader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded into unified model.", "modules", len(model.Modules))

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		model:  model,
		loader: loader.New(ctx, model, opts...),
	}, nil
}

// Loader exposes the app's module loader.
func (a *App) Loader() *loader.Loader {
	return a.loader
}
