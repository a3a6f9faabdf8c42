package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/applypilot/applypilot/internal/config"
)

// App is the dependency container for the CLI application
type App struct {
	Config     *config.Config
	HTTPClient *http.Client
}

// NewApp initializes and returns a new App instance
func NewApp(ctx context.Context) (*App, error) {
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &App{
		Config:     config.AppConfig,
		HTTPClient: httpClient,
	}, nil
}

// Close closes all resources
func (a *App) Close() error {
	return nil
}
