package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	dexerrors "github.com/deepnoodle-ai/dexcfg/errors"
)

var red = color.New(color.FgRed).SprintFunc()

var outputFormatsCompletion = []string{"text", "json", "dot"}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// useColor reports whether output written to w may be colored.
func useColor(v *viper.Viper, w io.Writer) bool {
	return !v.GetBool("no-color") && !color.NoColor && isTerminal(w)
}

// formatError renders err for the terminal. Build failures get the
// compiler-style layout; anything else is printed on one line.
func formatError(err error, colored bool) string {
	f := dexerrors.NewFormatter(colored)
	var merr *multierror.Error
	if errors.As(err, &merr) && len(merr.Errors) > 0 {
		all := make([]*dexerrors.FormattedError, len(merr.Errors))
		for i, e := range merr.Errors {
			all[i] = toFormatted(e)
		}
		return f.FormatMultiple(all)
	}
	var fe dexerrors.FormattableError
	if errors.As(err, &fe) {
		return f.Format(fe.ToFormatted())
	}
	if colored {
		return red(err.Error()) + "\n"
	}
	return err.Error() + "\n"
}

func toFormatted(err error) *dexerrors.FormattedError {
	var fe dexerrors.FormattableError
	if errors.As(err, &fe) {
		return fe.ToFormatted()
	}
	return &dexerrors.FormattedError{
		Kind:     "error",
		Message:  err.Error(),
		Location: dexerrors.Location{Address: dexerrors.NoAddress},
	}
}

// writeJSON prints value as indented JSON, highlighted on a terminal.
func writeJSON(v *viper.Viper, w io.Writer, value any) error {
	var (
		data []byte
		err  error
	)
	if useColor(v, w) {
		data, err = prettyjson.Marshal(value)
	} else {
		data, err = json.MarshalIndent(value, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
