package root

import (
	"bytes"
	"strings"
	"testing"

	"github.com/granitemd/granite/internal/config"
	"github.com/granitemd/granite/internal/constants"
	"github.com/granitemd/granite/internal/session"
	"github.com/granitemd/granite/internal/state"
	"github.com/granitemd/granite/internal/store"
)

func testState(t *testing.T) *state.State {
	t.Helper()

	cfg := &config.Config{
		ServerURL: "http://localhost:8000",
		MaxPanes:  8,
	}
	return &state.State{
		Config: cfg,
		Store:  store.NewMemStore(),
		KV:     session.NewMemKV(),
	}
}

func TestServerFlagRepointsStore(t *testing.T) {
	s := testState(t)
	before := s.Store

	cmd, err := NewCmdRoot(s)
	if err != nil {
		t.Fatalf("NewCmdRoot returned error: %v", err)
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--server", "http://staging.example:9000/", "session"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute returned error: %v", err)
	}

	if s.Config.ServerURL != "http://staging.example:9000" {
		t.Fatalf("override not applied: %q", s.Config.ServerURL)
	}
	if s.Store == before {
		t.Fatalf("store still points at the configured backend")
	}
}

func TestNoServerFlagKeepsConfiguredStore(t *testing.T) {
	s := testState(t)
	before := s.Store

	cmd, err := NewCmdRoot(s)
	if err != nil {
		t.Fatalf("NewCmdRoot returned error: %v", err)
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"session"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute returned error: %v", err)
	}

	if s.Store != before || s.Config.ServerURL != "http://localhost:8000" {
		t.Fatalf("store replaced without an override")
	}
}

func TestVersionFlag(t *testing.T) {
	s := testState(t)

	cmd, err := NewCmdRoot(s)
	if err != nil {
		t.Fatalf("NewCmdRoot returned error: %v", err)
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute returned error: %v", err)
	}

	if !strings.Contains(out.String(), constants.Version) {
		t.Fatalf("version output missing %q: %q", constants.Version, out.String())
	}
}

func TestUsageTemplateWired(t *testing.T) {
	s := testState(t)

	cmd, err := NewCmdRoot(s)
	if err != nil {
		t.Fatalf("NewCmdRoot returned error: %v", err)
	}
	if cmd.UsageTemplate() != constants.Help {
		t.Fatalf("usage template not set from constants")
	}
}
