// ABOUTME: Shared helpers for command tests
// ABOUTME: Isolates environment configuration and runs the root command in-process

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

var envKeys = []string{
	"CLASSIFY_PROVIDER", "CLASSIFY_MODEL", "CLASSIFY_BASE_URL", "CLASSIFY_TIMEOUT",
	"CLASSIFY_RETRY_ATTEMPTS", "CLASSIFY_RETRY_DELAY", "CLASSIFY_RETRY_MALFORMED",
	"CLASSIFY_TASK", "CLASSIFY_TASK_FILE", "CLASSIFY_MAX_TOKENS", "CLASSIFY_CONCURRENCY",
	"CLASSIFY_REQUESTS_PER_MINUTE", "CLASSIFY_TOKENIZER", "CLASSIFY_PRICE_PER_MILLION",
	"CLASSIFY_TIE_BREAK", "CLASSIFY_LOG_LEVEL", "CLASSIFY_LOG_FILE",
	"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
}

// isolateEnv blanks every variable the config reads
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// execute runs the root command with args, returning stdout and stderr
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeComments creates one .txt file per id in a fresh directory
func writeComments(t *testing.T, comments map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for id, text := range comments {
		if err := os.WriteFile(filepath.Join(dir, id+".txt"), []byte(text), 0644); err != nil {
			t.Fatalf("failed to write comment %s: %v", id, err)
		}
	}
	return dir
}
