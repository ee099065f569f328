package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"linotify/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { cfgPath, logLevel = "", "" })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckFailsWithoutToken(t *testing.T) {
	t.Setenv("LINODE_TOKEN", "")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/x")

	_, err := execute(t, "check")
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err = %v, want config.ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), "LINODE_TOKEN is required") {
		t.Fatalf("diagnostic = %q", err.Error())
	}
}

func TestCheckPrintsRedactedConfig(t *testing.T) {
	t.Setenv("LINODE_TOKEN", "super-secret")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/x")

	out, err := execute(t, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatal("token leaked in check output")
	}
	if !strings.Contains(out, "configuration ok") {
		t.Fatalf("output = %q", out)
	}
}

func TestRunDeliversOnceAcrossInvocations(t *testing.T) {
	linode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"id":2,"created":"2024-01-02T00:00:00","action":"linode_boot","username":"alice","status":"finished","entity":{"id":9,"type":"linode","label":"web-1"}},
			{"id":1,"created":"2024-01-01T00:00:00","action":"token_create","username":"alice","status":"notification"}
		]}`))
	}))
	defer linode.Close()

	var posts atomic.Int32
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer slack.Close()

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "linotify.json")
	cfgJSON := `{
		"linode": {"base_url": "` + linode.URL + `"},
		"sink": {"kind": "slack", "slack": {"rate_per_sec": 0}},
		"storage": {"driver": "sqlite", "path": "` + filepath.ToSlash(filepath.Join(dir, "linode.db")) + `"},
		"logging": {"level": "error", "console": true}
	}`
	if err := os.WriteFile(cfgFile, []byte(cfgJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LINODE_TOKEN", "tok")
	t.Setenv("SLACK_WEBHOOK_URL", slack.URL)

	for i := 0; i < 2; i++ {
		if _, err := execute(t, "run", "--config", cfgFile); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if got := posts.Load(); got != 2 {
		t.Fatalf("slack posts = %d, want 2 (one per event, none on the second run)", got)
	}

	out, err := execute(t, "ledger", "list", "--config", cfgFile, "--json")
	if err != nil {
		t.Fatalf("ledger list: %v", err)
	}
	if !strings.Contains(out, `"action": "linode_boot"`) || !strings.Contains(out, `"id": 1`) {
		t.Fatalf("ledger output = %s", out)
	}
}
