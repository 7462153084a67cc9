package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"strmrefresh/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces an enabled config seeded with unique temp directories
// per test. The strm root exists; no media servers are configured.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Plugin.Enabled = true
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Strm.Root = filepath.Join(base, "strm") + "/"
	cfgVal.Strm.RemoteBaseURL = "http://alist.local:5244/d/"
	cfgVal.API.Bind = "127.0.0.1:0"

	if err := os.MkdirAll(cfgVal.Strm.Root, 0o755); err != nil {
		t.Fatalf("mkdir strm root: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPluginDisabled turns the transfer handler off.
func WithPluginDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plugin.Enabled = false
	}
}

// WithDelay sets plugin.delay_seconds.
func WithDelay(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plugin.DelaySeconds = seconds
	}
}

// WithoutStrm clears the strm root so no pointer files are written.
func WithoutStrm() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Strm.Root = ""
	}
}

// WithMediaServer adds a connection and selects it in plugin.media_servers.
func WithMediaServer(server config.MediaServer) ConfigOption {
	return func(b *configBuilder) {
		if server.Name == "" {
			server.Name = server.Type
		}
		b.cfg.MediaServers = append(b.cfg.MediaServers, server)
		b.cfg.Plugin.MediaServers = append(b.cfg.Plugin.MediaServers, server.Name)
	}
}

// WithSpoolDir enables the spool intake under the test base directory.
func WithSpoolDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.SpoolDir = filepath.Join(b.baseDir, "spool")
	}
}

// WithAPIToken requires a bearer token on the API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
