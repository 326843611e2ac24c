// The cmd tests are CLI integration tests: they build the tagd binary once
// and run it against temporary stores, exercising flag parsing, extension
// wiring, the tag service and SQLite together. HOME points at a temporary
// directory so the audit log and global config never touch the real ones.

package cmd

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// buildBinary compiles the tagd binary once for all tests.
func buildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		tmpDir, err := os.MkdirTemp("", "tagd-test-bin-*")
		if err != nil {
			buildErr = err
			return
		}

		binaryName := "tagd"
		if os.PathSeparator == '\\' {
			binaryName = "tagd.exe"
		}
		binaryPath = filepath.Join(tmpDir, binaryName)

		// Project root is the parent of cmd/
		projectRoot := filepath.Dir(mustGetwd())

		cmd := exec.Command("go", "build", "-o", binaryPath, ".")
		cmd.Dir = projectRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = &buildError{err: err, output: string(out)}
			return
		}
	})

	if buildErr != nil {
		t.Fatalf("failed to build binary: %v", buildErr)
	}
	return binaryPath
}

type buildError struct {
	err    error
	output string
}

func (e *buildError) Error() string {
	return e.err.Error() + "\n" + e.output
}

func mustGetwd() string {
	dir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return dir
}

// testEnv holds test environment state.
type testEnv struct {
	t      *testing.T
	dir    string
	home   string
	binary string
	env    []string
}

// newBareEnv creates a temporary working directory without a store.
func newBareEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		t:      t,
		dir:    t.TempDir(),
		home:   t.TempDir(),
		binary: buildBinary(t),
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "TAGD_") || strings.HasPrefix(kv, "HOME=") {
			continue
		}
		e.env = append(e.env, kv)
	}
	e.env = append(e.env, "HOME="+e.home, "TAGD_AUTHOR=tester")
	return e
}

// newTestEnv creates a temporary directory with an initialised tagd store.
func newTestEnv(t *testing.T, initArgs ...string) *testEnv {
	t.Helper()
	e := newBareEnv(t)
	e.run(append([]string{"init"}, initArgs...)...)
	return e
}

// setenv adds or replaces an environment variable for later runs.
func (e *testEnv) setenv(key, value string) {
	prefix := key + "="
	for i, kv := range e.env {
		if strings.HasPrefix(kv, prefix) {
			e.env[i] = prefix + value
			return
		}
	}
	e.env = append(e.env, prefix+value)
}

// run executes tagd with the given args and returns combined output.
func (e *testEnv) run(args ...string) string {
	e.t.Helper()
	out, err := e.runErr(args...)
	if err != nil {
		e.t.Fatalf("tagd %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runErr executes tagd and returns output and any error.
func (e *testEnv) runErr(args ...string) (string, error) {
	e.t.Helper()
	return e.runStdinErr("", args...)
}

// runStdinErr executes tagd with stdin input and returns any error.
func (e *testEnv) runStdinErr(input string, args ...string) (string, error) {
	e.t.Helper()

	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.dir
	cmd.Env = e.env
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// runJSON executes tagd with -o json and decodes stdout into v.
func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()

	cmd := exec.Command(e.binary, append(args, "-o", "json")...)
	cmd.Dir = e.dir
	cmd.Env = e.env
	out, err := cmd.Output()
	require.NoError(e.t, err, "tagd %v", args)
	require.NoError(e.t, json.Unmarshal(out, v), "decode %s", out)
}

// contains checks if output contains expected string.
func (e *testEnv) contains(output, expected string) {
	e.t.Helper()
	assert.Contains(e.t, output, expected)
}

// equals checks if output equals expected string (trimmed).
func (e *testEnv) equals(output, expected string) {
	e.t.Helper()
	assert.Equal(e.t, strings.TrimSpace(expected), strings.TrimSpace(output))
}
