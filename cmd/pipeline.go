package cmd

import (
	"fmt"

	"github.com/applypilot/applypilot/internal/ai"
	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/ats"
	"github.com/applypilot/applypilot/internal/browser"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/mailbox"
	"github.com/applypilot/applypilot/internal/orchestrator"
	"github.com/applypilot/applypilot/internal/sources"
	"github.com/applypilot/applypilot/internal/verifier"
)

// buildOrchestrator wires the full pipeline from the config: board
// adapters, browser session, ATS engine, verification resolver, and the
// cover letter client.
func buildOrchestrator(a *app.App) (*orchestrator.Orchestrator, error) {
	cfg := a.Config

	user, err := database.GetUser()
	if err != nil {
		return nil, err
	}
	prefs, err := database.GetPreferences(user.ID)
	if err != nil {
		return nil, err
	}

	session, err := browser.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser session: %w", err)
	}

	srcs := orchestrator.BuildSources(cfg, a.HTTPClient, session, prefs.EnabledSources)
	aggregator := sources.NewAggregator(srcs, int(cfg.SourceRateLimit*60))

	var resolver ats.Verifier
	if cfg.MailboxURL != "" {
		mb := mailbox.NewClient(cfg.MailboxURL, cfg.MailboxToken, a.HTTPClient)
		resolver = verifier.New(mb)
	}

	engine := ats.NewEngine(session, ats.NewRules(cfg.ScreeningAnswers), resolver)
	cover := ai.NewClient(cfg, a.HTTPClient)

	return orchestrator.New(cfg, aggregator, engine, cover), nil
}
