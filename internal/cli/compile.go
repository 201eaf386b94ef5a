package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileResult summarizes a compiled manifest.
type CompileResult struct {
	Manifest    *ir.Manifest   `json:"manifest"`
	Types       int            `json:"types"`
	Collections map[string]int `json:"collections"`
	Output      string         `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [manifest]",
		Short: "Compile a CUE manifest to JSON",
		Long: `Compile a CUE manifest (a file or a package directory) into the
JSON form of its type declarations and initial data. Without an argument
the built-in todo demo manifest is compiled.

Examples:
  weft compile ./app.cue
  weft compile ./manifest -o manifest.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCompile(opts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := LoadManifest(path)
	if err != nil {
		code := ErrCodeGeneric
		var le *LoadError
		if errors.As(err, &le) {
			code = le.Code
		}
		_ = formatter.Error(code, err.Error(), nil)
		if code == ErrCodeNotFound {
			return WrapExitError(ExitCommandError, "manifest not found", err)
		}
		return WrapExitError(ExitFailure, "compilation failed", err)
	}

	res := CompileResult{
		Manifest:    m,
		Types:       len(m.Types),
		Collections: make(map[string]int, len(m.Data)),
		Output:      opts.Output,
	}
	for name, records := range m.Data {
		res.Collections[name] = len(records)
		formatter.VerboseLog("Collection %s: %d record(s)", name, len(records))
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode manifest", err)
	}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}

	return formatter.Success(res, func(w io.Writer) {
		if opts.Output == "" {
			fmt.Fprintln(w, string(data))
			return
		}
		fmt.Fprintf(w, "Compiled %d type(s) and %d collection(s) to %s\n", res.Types, len(res.Collections), opts.Output)
	})
}
