package app

import (
	"context"
	"fmt"

	"github.com/edalgrin/amdloader/internal/ctxlog"
	"github.com/edalgrin/amdloader/internal/fetch"
)

// Run executes the main application logic: resolve the requested modules
// into their full dependency order, report the fetch plan, and optionally
// perform the fetches.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "require", a.config.Require)

	order, urls, err := a.loader.Plan(ctx, a.config.Require)
	if err != nil {
		return fmt.Errorf("failed to resolve modules: %w", err)
	}
	a.logger.Info("Modules resolved.", "requested", len(a.config.Require), "resolved", len(order))

	fmt.Fprintln(a.outW, "Dependency order:")
	for _, name := range order {
		fmt.Fprintf(a.outW, "  %s\n", name)
	}
	fmt.Fprintln(a.outW, "Fetch plan:")
	if len(urls) == 0 {
		fmt.Fprintln(a.outW, "  (nothing to fetch)")
	}
	for _, url := range urls {
		fmt.Fprintf(a.outW, "  %s\n", url)
	}

	if !a.config.Fetch {
		a.logger.Debug("Fetch disabled, plan only.")
		return nil
	}

	fetcher := fetch.NewHTTP()
	defer func() {
		if err := fetcher.Close(); err != nil {
			a.logger.Warn("Closing fetcher failed.", "error", err)
		}
	}()

	for _, url := range urls {
		body, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		a.logger.Info("Fetched module resource.", "url", url, "bytes", len(body))
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
