package dexdump

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/deepnoodle-ai/wonton/assert"
)

// fakeDexdump writes a shell script standing in for dexdump. Each run
// appends a line to the returned counter file.
func fakeDexdump(t *testing.T, body string) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	counter := filepath.Join(dir, "runs")
	script := filepath.Join(dir, "dexdump")
	content := "#!/bin/sh\necho run >> " + counter + "\n" + body + "\n"
	assert.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	return script, counter
}

func runs(t *testing.T, counter string) int {
	data, err := os.ReadFile(counter)
	if os.IsNotExist(err) {
		return 0
	}
	assert.NoError(t, err)
	return strings.Count(string(data), "run\n")
}

func input(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.dex")
	assert.NoError(t, os.WriteFile(path, []byte("dex\n035\x00"), 0o644))
	past := time.Now().Add(-time.Hour)
	assert.NoError(t, os.Chtimes(path, past, past))
	return path
}

func options(binary string, timeout time.Duration) *Options {
	nop := zerolog.Nop()
	return &Options{Binary: binary, Timeout: timeout, Logger: &nop}
}

func TestDisassembleCaches(t *testing.T) {
	script, counter := fakeDexdump(t, `cat testdata/sample.disass`)
	path := input(t)

	out, err := Disassemble(context.Background(), path, options(script, 0))
	assert.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(path, ".dex")+".disass", out)
	assert.Equal(t, 1, runs(t, counter))

	_, err = Disassemble(context.Background(), path, options(script, 0))
	assert.NoError(t, err)
	assert.Equal(t, 1, runs(t, counter))

	opts := options(script, 0)
	opts.Force = true
	_, err = Disassemble(context.Background(), path, opts)
	assert.NoError(t, err)
	assert.Equal(t, 2, runs(t, counter))

	d, err := Load(context.Background(), path, options(script, 0))
	assert.NoError(t, err)
	assert.Equal(t, 6, d.Len())
	assert.Equal(t, 2, runs(t, counter))
}

func TestDisassembleStaleCache(t *testing.T) {
	script, counter := fakeDexdump(t, `cat testdata/sample.disass`)
	path := input(t)
	out := DumpPath(path)
	assert.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))
	older := time.Now().Add(-2 * time.Hour)
	assert.NoError(t, os.Chtimes(out, older, older))

	_, err := Disassemble(context.Background(), path, options(script, 0))
	assert.NoError(t, err)
	assert.Equal(t, 1, runs(t, counter))
	data, err := os.ReadFile(out)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Processing"))
}

func TestDisassembleFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		timeout time.Duration
		want    string
	}{
		{name: "stderr", body: `echo "bad magic" >&2`, want: "printed to stderr: bad magic"},
		{name: "exit status", body: `exit 3`, want: "exit status 3"},
		{name: "timeout", body: `exec sleep 5`, timeout: 100 * time.Millisecond, want: "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, _ := fakeDexdump(t, tt.body)
			path := input(t)
			_, err := Disassemble(context.Background(), path, options(script, tt.timeout))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			entries, err := os.ReadDir(filepath.Dir(path))
			assert.NoError(t, err)
			assert.Len(t, entries, 1, "temporary dump left behind")
		})
	}
}

func TestDisassembleNotRegular(t *testing.T) {
	script, _ := fakeDexdump(t, `true`)
	path := input(t)
	assert.NoError(t, os.Mkdir(DumpPath(path), 0o755))
	_, err := Disassemble(context.Background(), path, options(script, 0))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestLoadDumpDirectly(t *testing.T) {
	d, err := Load(context.Background(), "testdata/sample.disass", options("/nonexistent/dexdump", 0))
	assert.NoError(t, err)
	assert.Equal(t, 6, d.Len())
}

func TestDisassembleMissingInput(t *testing.T) {
	_, err := Disassemble(context.Background(), filepath.Join(t.TempDir(), "nope.dex"), nil)
	assert.True(t, os.IsNotExist(err))
}
