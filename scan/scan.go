// Package scan builds the control-flow graph of every method in a dump.
//
// A method that fails to build is recorded and skipped; it never stops the
// rest of the scan. Methods are built concurrently by a bounded set of
// workers and the report lists results in dump order.
package scan

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/deepnoodle-ai/dexcfg/bytecode"
	"github.com/deepnoodle-ai/dexcfg/cfg"
	"github.com/deepnoodle-ai/dexcfg/dexdump"
	"github.com/deepnoodle-ai/dexcfg/errors"
)

// Options configures Run. A nil *Options is valid.
type Options struct {
	// Workers bounds concurrent builds. Defaults to GOMAXPROCS.
	Workers int

	// Filter selects the methods to build. Nil selects all.
	Filter func(*dexdump.Method) bool

	Logger *zerolog.Logger
}

// Result is a successfully built method.
type Result struct {
	Method   *dexdump.Method
	Function *bytecode.Function
}

// Failure is a method that could not be built.
type Failure struct {
	Method *dexdump.Method
	Err    error
}

// Report is the outcome of a scan.
type Report struct {
	Built    []Result
	Failures []Failure

	// Err aggregates the failures as a *multierror.Error, or is nil.
	Err error

	Elapsed time.Duration
}

// Total returns the number of methods attempted.
func (r *Report) Total() int {
	return len(r.Built) + len(r.Failures)
}

// Failed returns the number of methods that did not build.
func (r *Report) Failed() int {
	return len(r.Failures)
}

type outcome struct {
	fn  *bytecode.Function
	err error
	ran bool
}

// Run builds every selected method of dump. conf is shared by all builds;
// its name and code offset are replaced per method, so every error names
// the method it came from. The returned error is
// non-nil only when ctx ends the scan early, in which case the report
// covers the methods built so far.
func Run(ctx context.Context, dump *dexdump.Dump, conf *cfg.Config, opts *Options) (*Report, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	logger := &log.Logger
	if o.Logger != nil {
		logger = o.Logger
	}

	var methods []*dexdump.Method
	for _, m := range dump.Methods() {
		if o.Filter == nil || o.Filter(m) {
			methods = append(methods, m)
		}
	}

	start := time.Now()
	outcomes := make([]outcome, len(methods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for i, m := range methods {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var mconf cfg.Config
			if conf != nil {
				mconf = *conf
			}
			mconf.Name = m.Signature()
			fn, err := m.Build(&mconf)
			outcomes[i] = outcome{fn: fn, err: err, ran: true}
			return nil
		})
	}
	waitErr := g.Wait()

	report := &Report{}
	var merr *multierror.Error
	for i, out := range outcomes {
		if !out.ran {
			continue
		}
		m := methods[i]
		if out.err != nil {
			report.Failures = append(report.Failures, Failure{Method: m, Err: out.err})
			merr = multierror.Append(merr, identify(m, out.err))
			logger.Debug().Err(out.err).Str("method", m.Signature()).Msg("method failed to build")
			continue
		}
		report.Built = append(report.Built, Result{Method: m, Function: out.fn})
	}
	report.Err = merr.ErrorOrNil()
	report.Elapsed = time.Since(start)

	logger.Info().
		Int("methods", report.Total()).
		Int("failed", report.Failed()).
		Int("workers", o.Workers).
		Dur("elapsed", report.Elapsed).
		Msg("scan complete")

	if waitErr != nil {
		return report, waitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// identify prefixes errors that do not already name their method.
func identify(m *dexdump.Method, err error) error {
	switch e := err.(type) {
	case *errors.FormatError:
		if e.Location.Function != "" {
			return err
		}
	case *errors.LookupError:
		if e.Location.Function != "" {
			return err
		}
	}
	return fmt.Errorf("%s: %w", m.Signature(), err)
}
