package dexdump

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Defaults for running the disassembler.
const (
	DefaultBinary  = "dexdump"
	DefaultTimeout = 10 * time.Second
	DumpExt        = ".disass"
)

// Options configures Disassemble. A nil *Options is valid.
type Options struct {
	// Binary is the dexdump executable, looked up in PATH if bare.
	Binary string

	// Timeout bounds a single dexdump run.
	Timeout time.Duration

	// Force disassembles even when a cached dump is up to date.
	Force bool

	Logger *zerolog.Logger
}

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Binary == "" {
		out.Binary = DefaultBinary
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Logger == nil {
		out.Logger = &log.Logger
	}
	return out
}

// DumpPath returns where the dump of the dex or apk at path is cached.
func DumpPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + DumpExt
}

// Disassemble runs `dexdump -d` on the dex or apk at path and returns the
// path of the dump, stored next to the input. A dump newer than the input
// is reused.
func Disassemble(ctx context.Context, path string, opts *Options) (string, error) {
	o := opts.withDefaults()
	logger := o.Logger.With().Str("input", path).Logger()

	in, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	out := DumpPath(path)
	logger.Debug().Str("dump", out).Msg("checking for cached disassembly")
	cached, err := os.Lstat(out)
	switch {
	case err == nil:
		if !cached.Mode().IsRegular() {
			return "", fmt.Errorf("%s is not a regular file", out)
		}
		if !o.Force && cached.ModTime().After(in.ModTime()) {
			logger.Debug().Str("dump", out).Msg("using cached disassembly")
			return out, nil
		}
	case !os.IsNotExist(err):
		return "", err
	}

	logger.Info().Str("dump", out).Msg("disassembling")
	if err := run(ctx, o, path, out); err != nil {
		return "", err
	}
	return out, nil
}

// run writes the dump to a temporary file in the destination directory
// and renames it into place once dexdump succeeded.
func run(ctx context.Context, o Options, path, out string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(out), filepath.Base(out)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.Binary, "-d", path)
	cmd.Stdout = tmp
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	runErr := cmd.Run()
	closeErr := tmp.Close()

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return fmt.Errorf("%s timed out after %s", o.Binary, o.Timeout)
	case ctx.Err() != nil:
		return ctx.Err()
	case runErr != nil:
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("running %s: %w: %s", o.Binary, runErr, msg)
		}
		return fmt.Errorf("running %s: %w", o.Binary, runErr)
	case strings.TrimSpace(stderr.String()) != "":
		return fmt.Errorf("%s printed to stderr: %s", o.Binary, strings.TrimSpace(stderr.String()))
	case closeErr != nil:
		return closeErr
	}
	return os.Rename(tmp.Name(), out)
}

// Load returns the parsed dump of path. Inputs ending in DumpExt or
// ".txt" are parsed as dumps; anything else is disassembled first.
func Load(ctx context.Context, path string, opts *Options) (*Dump, error) {
	switch filepath.Ext(path) {
	case DumpExt, ".txt":
	default:
		var err error
		if path, err = Disassemble(ctx, path, opts); err != nil {
			return nil, err
		}
	}
	return ParseFile(path)
}
