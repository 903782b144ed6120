package scan

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/deepnoodle-ai/wonton/assert"

	"github.com/deepnoodle-ai/dexcfg/cfg"
	"github.com/deepnoodle-ai/dexcfg/dexdump"
	"github.com/deepnoodle-ai/dexcfg/errors"
)

// method renders one dexdump method entry of class LScan; whose code
// starts at file offset base.
func method(name string, base int, code ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "    #0              : (in LScan;)\n")
	fmt.Fprintf(&b, "      name          : '%s'\n", name)
	fmt.Fprintf(&b, "      type          : '()V'\n")
	fmt.Fprintf(&b, "      access        : 0x0009 (PUBLIC STATIC)\n")
	fmt.Fprintf(&b, "      code          -\n")
	fmt.Fprintf(&b, "      registers     : 2\n")
	fmt.Fprintf(&b, "      ins           : 0\n")
	fmt.Fprintf(&b, "      outs          : 0\n")
	fmt.Fprintf(&b, "      insns size    : %d 16-bit code units\n", len(code))
	fmt.Fprintf(&b, "%06x:                                        |[%06x] Scan.%s:()V\n", base-16, base-16, name)
	for i, text := range code {
		fmt.Fprintf(&b, "%06x: 0000                                   |%04x: %s\n", base+2*i, i, text)
	}
	b.WriteString("      catches       : (none)\n")
	b.WriteString("      positions     : \n")
	b.WriteString("      locals        : \n\n")
	return b.String()
}

func dump(t *testing.T) *dexdump.Dump {
	t.Helper()
	text := method("first", 0x100, "const/4 v0, #int 0 // #0", "return-void") +
		method("broken", 0x200, "const/4 v0, #int 0 // #0", "add-int/lit8 v0, v0, #int 1 // #01") +
		method("loop", 0x300, "add-int/lit8 v0, v0, #int 1 // #01", "goto 0000 // -0001") +
		method("lost", 0x400, "goto 0009 // +0009")
	d, err := dexdump.Parse(strings.NewReader(text))
	assert.NoError(t, err)
	assert.Equal(t, 4, d.Len())
	return d
}

func quiet() (*cfg.Config, *Options) {
	nop := zerolog.Nop()
	return &cfg.Config{Logger: &nop}, &Options{Workers: 2, Logger: &nop}
}

func TestRunIsolatesFailures(t *testing.T) {
	conf, opts := quiet()
	report, err := Run(context.Background(), dump(t), conf, opts)
	assert.NoError(t, err)

	assert.Equal(t, 4, report.Total())
	assert.Equal(t, 2, report.Failed())
	assert.Len(t, report.Built, 2)
	assert.Equal(t, "LScan;.first:()V", report.Built[0].Function.Name())
	assert.Equal(t, "LScan;.loop:()V", report.Built[1].Function.Name())

	assert.Equal(t, "broken", report.Failures[0].Method.Name)
	assert.ErrorIs(t, report.Failures[0].Err, errors.ErrFormat)
	assert.Equal(t, "lost", report.Failures[1].Method.Name)
	assert.ErrorIs(t, report.Failures[1].Err, errors.ErrLookup)

	var merr *multierror.Error
	assert.True(t, stderrors.As(report.Err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, merr.Errors[0].Error(), "LScan;.broken:()V")
	assert.ErrorIs(t, report.Err, errors.ErrFormat)
}

func TestRunFilter(t *testing.T) {
	conf, opts := quiet()
	opts.Filter = func(m *dexdump.Method) bool { return m.Name != "broken" && m.Name != "lost" }
	report, err := Run(context.Background(), dump(t), conf, opts)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Total())
	assert.NoError(t, report.Err)
}

func TestRunCancelled(t *testing.T) {
	conf, opts := quiet()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Run(ctx, dump(t), conf, opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Total())
}

func TestIdentify(t *testing.T) {
	m := &dexdump.Method{Class: "LScan;", Name: "x", Type: "()V"}
	plain := identify(m, fmt.Errorf("boom"))
	assert.Equal(t, "LScan;.x:()V: boom", plain.Error())

	named := errors.Formatf(errors.E1006, "no branch").In("LScan;.x:()V")
	assert.True(t, identify(m, named) == error(named))
}

func TestRunMalformedMethodTables(t *testing.T) {
	overlapping := strings.Replace(
		method("guarded", 0x200, "const/4 v0, #int 0 // #0", "return-void"),
		"      catches       : (none)\n",
		"      catches       : 2\n"+
			"        0x0000 - 0x0002\n"+
			"          <any> -> 0x0001\n"+
			"        0x0001 - 0x0002\n"+
			"          <any> -> 0x0001\n",
		1)
	text := overlapping + method("first", 0x100, "const/4 v0, #int 0 // #0", "return-void")
	d, err := dexdump.Parse(strings.NewReader(text))
	assert.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	conf, opts := quiet()
	report, err := Run(context.Background(), d, conf, opts)
	assert.NoError(t, err)
	assert.Len(t, report.Built, 1)
	assert.Equal(t, "LScan;.first:()V", report.Built[0].Function.Name())
	assert.Len(t, report.Failures, 1)
	assert.Equal(t, "guarded", report.Failures[0].Method.Name)

	var fe *errors.FormatError
	assert.True(t, stderrors.As(report.Failures[0].Err, &fe))
	assert.Equal(t, errors.E1008, fe.Code)
	assert.Equal(t, "LScan;.guarded:()V", fe.Location.Function)
}

func TestRunNamesEachMethod(t *testing.T) {
	conf, opts := quiet()
	conf.Name = "shared"
	report, err := Run(context.Background(), dump(t), conf, opts)
	assert.NoError(t, err)
	assert.Equal(t, "LScan;.first:()V", report.Built[0].Function.Name())

	var merr *multierror.Error
	assert.True(t, stderrors.As(report.Err, &merr))
	assert.Contains(t, merr.Errors[0].Error(), "LScan;.broken:()V")
	assert.Contains(t, merr.Errors[1].Error(), "LScan;.lost:()V")
	assert.Equal(t, "shared", conf.Name)
}
