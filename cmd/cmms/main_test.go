package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// run executes the root command with args and returns its combined output.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeConfig writes a SQLite-backed config into a temp dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cmms.yaml")
	yaml := fmt.Sprintf(`database:
  driver: sqlite
  dsn: %s
auth:
  jwt_secret: test-secret
uploads:
  dir: %s
`, filepath.Join(dir, "cmms.db"), filepath.Join(dir, "uploads"))
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "cmms dev") {
		t.Errorf("expected output to contain 'cmms dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	for _, want := range []string{"cmms 1.0.0", "commit: abc123", "built: 2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := run(t, "", "--help")
	if err != nil {
		t.Fatalf("root --help failed: %v", err)
	}
	for _, sub := range []string{"serve", "db", "user", "wo", "kpi", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q, got: %s", sub, out)
		}
	}
}

func TestSubcommandHelp(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"serve", "--help"}, []string{"HTTP API", "--port", "--migrate", "cmms.yaml"}},
		{[]string{"db", "--help"}, []string{"Database management", "init", "reset", "seed"}},
		{[]string{"db", "reset", "--help"}, []string{"--yes", "re-created"}},
		{[]string{"db", "seed", "--help"}, []string{"demo accounts", "--password"}},
		{[]string{"user", "add", "--help"}, []string{"--username", "--role", "Teknisi"}},
		{[]string{"wo", "--help"}, []string{"list", "show", "history"}},
		{[]string{"wo", "history", "--help"}, []string{"--output", ".xlsx"}},
		{[]string{"kpi", "--help"}, []string{"MTTR", "--config"}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, "", tt.args...)
			if err != nil {
				t.Fatalf("%v failed: %v", tt.args, err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("expected help to mention %q, got: %s", want, out)
				}
			}
		})
	}
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	ok := &cobra.Command{Use: "ok", RunE: func(*cobra.Command, []string) error { return nil }}
	if code := execute(ok); code != 0 {
		t.Errorf("execute(ok) = %d, want 0", code)
	}
	bad := &cobra.Command{
		Use:           "bad",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          func(*cobra.Command, []string) error { return fmt.Errorf("boom") },
	}
	if code := execute(bad); code != 1 {
		t.Errorf("execute(bad) = %d, want 1", code)
	}
}

func TestConnect_MissingSecret(t *testing.T) {
	t.Setenv("CMMS_JWT_SECRET", "")
	_, err := run(t, "", "kpi", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error without a jwt secret")
	}
	if !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("expected jwt_secret in error, got: %v", err)
	}
}
