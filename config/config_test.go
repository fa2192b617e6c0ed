package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/astei/anvilmap/coord"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anvilmap.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Limits.Edges() != nil {
		t.Error("default config has limits")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
world: /srv/minecraft/world
blocks: blocks.csv
limits:
  north: -512
  east: 1023
  south: 511
  west: -1024
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		World:  "/srv/minecraft/world",
		Blocks: "blocks.csv",
		Limits: &Limits{North: -512, East: 1023, South: 511, West: -1024},
		Log:    LogConfig{Level: "debug", Format: "text"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&coord.Edges{N: -512, E: 1023, S: 511, W: -1024}, cfg.Limits.Edges()); diff != "" {
		t.Errorf("Edges (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"limits north of south", "limits: {north: 10, south: 0}", "limits.north"},
		{"limits west of east", "limits: {west: 10, east: -10}", "limits.west"},
		{"unknown level", "log: {level: loud}", "log.level"},
		{"unknown format", "log: {format: xml}", "log.format"},
		{"not yaml", "world: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "region", "0,0")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"region":"0,0"`) {
		t.Errorf("unexpected json output: %s", out)
	}

	buf.Reset()
	cfg.Log = LogConfig{Level: "debug", Format: "text"}
	cfg.Logger(&buf).Debug("detail")
	if !strings.Contains(buf.String(), "msg=detail") {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}
