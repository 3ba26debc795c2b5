// A shared test server setup utility, which simplifies all API tests.

package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vrsandeep/shelfie-go/internal/api"
	"github.com/vrsandeep/shelfie-go/internal/config"
	"github.com/vrsandeep/shelfie-go/internal/core"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
)

// TestConfig returns a configuration rooted in temporary directories.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Database.Path = filepath.Join(dir, "shelfie_test.db")
	cfg.Output.Path = filepath.Join(dir, "uploads")
	cfg.Status.LogTail = 50
	cfg.Scraper.UserAgent = config.DefaultUserAgent
	cfg.Scraper.RequestTimeoutSeconds = 5
	return cfg
}

// SetupTestApp builds a full core.App around engine. The app is closed when
// the test completes.
func SetupTestApp(t *testing.T, engine jobs.Engine, opts ...core.Option) *core.App {
	t.Helper()
	app, err := core.NewWithConfig(TestConfig(t), append([]core.Option{core.WithEngine(engine)}, opts...)...)
	if err != nil {
		t.Fatalf("Failed to set up test app: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		app.Close(ctx)
	})
	return app
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T, engine jobs.Engine, opts ...core.Option) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t, engine, opts...)
	return api.NewServer(app), app
}
