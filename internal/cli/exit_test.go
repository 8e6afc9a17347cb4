package cli

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func withoutEnv(keys ...string) []string {
	out := make([]string, 0, len(os.Environ()))
	for _, e := range os.Environ() {
		drop := false
		for _, key := range keys {
			if strings.HasPrefix(e, key+"=") {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, e)
		}
	}
	return out
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	// internal/cli -> repo root
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func goExe() string {
	if runtime.GOOS == "windows" {
		return "go.exe"
	}
	return "go"
}

func buildRepoBriefBinary(t *testing.T) string {
	t.Helper()

	outPath := filepath.Join(t.TempDir(), "repobrief-test")
	if runtime.GOOS == "windows" {
		outPath += ".exe"
	}

	cmd := exec.Command(goExe(), "build", "-o", outPath, "./cmd/repobrief")
	cmd.Dir = repoRoot(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build repobrief binary: %v; output=%s", err, string(out))
	}

	return outPath
}

func exitCode(t *testing.T, err error, out []byte) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v; output=%s", err, err, string(out))
	}
	return exitErr.ProcessState.ExitCode()
}

var configKeys = []string{
	"GITHUB_TOKEN", "GITHUB_API_URL", "GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
	"REPOSITORY_OWNER", "REPOSITORY_NAME", "REPOSITORY_PATH", "REPOSITORY_BRANCH",
	"REPOBRIEF_TRANSPORT", "REPOBRIEF_MCP_COMMAND",
}

func TestAnalyze_ExitCode3_WhenConfigMissing(t *testing.T) {
	binary := buildRepoBriefBinary(t)
	cmd := exec.Command(binary, "analyze")
	// No .env in an empty working directory.
	cmd.Dir = t.TempDir()
	cmd.Env = withoutEnv(configKeys...)

	out, err := cmd.CombinedOutput()
	if code := exitCode(t, err, out); code != 3 {
		t.Fatalf("expected exit code 3, got %d; output=%s", code, string(out))
	}
	for _, want := range []string{
		"Configuration Errors:",
		"  - GEMINI_API_KEY is required in .env file",
		"  - REPOSITORY_OWNER (or --owner) is required",
	} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("expected %q in output; output=%s", want, string(out))
		}
	}
}

func TestAnalyze_ExitCode3_WhenTransportUnknown(t *testing.T) {
	binary := buildRepoBriefBinary(t)
	cmd := exec.Command(binary, "analyze", "--transport", "carrier-pigeon", "--owner", "o", "--repo", "r")
	cmd.Dir = t.TempDir()
	cmd.Env = append(withoutEnv(configKeys...), "GITHUB_TOKEN=ghp_test", "GEMINI_API_KEY=key")

	out, err := cmd.CombinedOutput()
	if code := exitCode(t, err, out); code != 3 {
		t.Fatalf("expected exit code 3, got %d; output=%s", code, string(out))
	}
	if !strings.Contains(string(out), "unsupported --transport: carrier-pigeon") {
		t.Fatalf("expected transport message; output=%s", string(out))
	}
}

func TestVersion_PrintsBuildInfo(t *testing.T) {
	binary := buildRepoBriefBinary(t)
	out, err := exec.Command(binary, "version").CombinedOutput()
	if code := exitCode(t, err, out); code != 0 {
		t.Fatalf("expected exit code 0, got %d; output=%s", code, string(out))
	}
	if !strings.HasPrefix(string(out), "repobrief dev\n") {
		t.Fatalf("unexpected version output: %s", string(out))
	}
}
