package browser

import (
	"github.com/pkg/errors"

	"github.com/applypilot/applypilot/internal/config"
)

// New builds a session for the configured backend. The zero value of
// browser_backend means local Chrome.
func New(cfg *config.Config) (Session, error) {
	switch cfg.BrowserBackend {
	case "", "chromedp":
		return NewChromeSession(), nil
	case "gateway":
		if cfg.GatewayURL == "" {
			return nil, errors.New("browser_backend is gateway but gateway_url is not set")
		}
		return NewGatewaySession(cfg.GatewayURL, cfg.GatewayToken), nil
	default:
		return nil, errors.Errorf("unknown browser backend %q", cfg.BrowserBackend)
	}
}
