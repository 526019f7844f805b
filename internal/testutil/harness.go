package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edalgrin/amdloader/internal/app"
	"github.com/edalgrin/amdloader/internal/hclconf"
	"github.com/edalgrin/amdloader/internal/loader"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output string
	Err    error
	App    *app.App
}

// WriteConfigFiles materializes a map of relative path -> HCL content into a
// temporary directory and returns its root. The directory is removed when
// the test finishes.
func WriteConfigFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}
	return tmpDir
}

// BuildApp constructs a full App from the given HCL files without running
// it, so a test can wire collaborators to the loader first. Loader options
// let a test swap the fetcher or evaluator for fakes.
func BuildApp(t *testing.T, files map[string]string, requireNames []string, opts ...loader.Option) (*app.App, *SafeBuffer, error) {
	t.Helper()

	configDir := WriteConfigFiles(t, files)

	appConfig, err := app.NewConfig(app.Config{
		ConfigPath: configDir,
		Require:    requireNames,
		LogLevel:   "debug",
		LogFormat:  "text",
	})
	require.NoError(t, err)

	out := &SafeBuffer{}
	testApp, err := app.New(out, appConfig, hclconf.NewLoader(), opts...)
	return testApp, out, err
}

// RunIntegrationTest builds a full App from the given HCL files and runs it
// against the requested module names, capturing everything it writes.
func RunIntegrationTest(t *testing.T, files map[string]string, requireNames []string, opts ...loader.Option) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, requireNames, opts...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-provided
// context, for tests that need cancellation or deadlines.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, requireNames []string, opts ...loader.Option) *HarnessResult {
	t.Helper()

	testApp, out, err := BuildApp(t, files, requireNames, opts...)
	if err != nil {
		return &HarnessResult{Output: out.String(), Err: err}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("AMDLOADER_TEST_LOGS") == "true" {
		t.Logf("--- Full Output for %s ---\n%s", t.Name(), out.String())
	}

	return &HarnessResult{
		Output: out.String(),
		Err:    runErr,
		App:    testApp,
	}
}
