package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func buildTestBinary(t *testing.T) string {
	binName := "paydash_it_bin"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Env = os.Environ()
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, string(out))
	}
	return bin
}

func testEnv(t *testing.T) []string {
	return append(os.Environ(), "HOME="+t.TempDir(), "PAYDASH_STORE=memory", "PAYDASH_BASE_URL=")
}

func TestVersionCommand(t *testing.T) {
	bin := buildTestBinary(t)
	cmd := exec.Command(bin, "version")
	cmd.Env = testEnv(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("version failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "Paydash version:") {
		t.Fatalf("unexpected version output: %s", out)
	}
}

// TestUnreachableServerExitCode checks that a network failure maps to exit status 3.
func TestUnreachableServerExitCode(t *testing.T) {
	bin := buildTestBinary(t)
	start := time.Now()
	cmd := exec.Command(bin, "me", "--base-url", "http://127.0.0.1:1/api")
	cmd.Env = testEnv(t)
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected a non-zero exit, got %v\n%s", err, out)
	}
	if exitErr.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %d\n%s", exitErr.ExitCode(), out)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("command took too long: %v", elapsed)
	}
}
