package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/compiler"
	"github.com/roach88/weft/internal/registry"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Registry bool // check declared types against the built-in registry
}

// ValidationIssue is one problem found in a manifest.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Types      int               `json:"types"`
	Undeclared []string          `json:"undeclared,omitempty"`
	Errors     []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Check a manifest's types and initial data",
		Long: `Compile a CUE manifest and check it: every seeded record carries a
unique identity key, and with --registry every declared type is
registered with the declared variant, handlers and initializer.

Without an argument the built-in todo demo is validated, registry
included.

Exit codes:
  0 - Manifest is valid
  1 - Problems found
  2 - Command error

Examples:
  weft validate
  weft validate ./app.cue --registry`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Registry, "registry", false, "check types against registered modules")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := LoadManifest(path)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.Code == ErrCodeNotFound {
			_ = formatter.Error(le.Code, le.Message, nil)
			return WrapExitError(ExitCommandError, "manifest not found", err)
		}
		result := ValidationResult{Errors: []ValidationIssue{issueFromLoad(err)}}
		return reportValidation(formatter, result)
	}

	result := ValidationResult{Types: len(m.Types)}
	for _, err := range compiler.CheckData(m) {
		result.Errors = append(result.Errors, issueFromCompile(err))
	}

	if opts.Registry || path == "" {
		reg, err := newRegistry()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build registry", err)
		}
		for _, err := range reg.Verify(m.Types) {
			result.Errors = append(result.Errors, issueFromRegistry(err))
		}
		result.Undeclared = reg.Undeclared(m.Types)
		formatter.VerboseLog("Checked %d type(s) against %d registered module(s)", len(m.Types), len(reg.Names()))
	}

	return reportValidation(formatter, result)
}

func reportValidation(formatter *OutputFormatter, result ValidationResult) error {
	result.Valid = len(result.Errors) == 0
	text := func(w io.Writer) {
		for _, issue := range result.Errors {
			if issue.Line > 0 {
				fmt.Fprintf(w, "✗ [%s] line %d: %s\n", issue.Code, issue.Line, issue.Message)
			} else {
				fmt.Fprintf(w, "✗ [%s] %s\n", issue.Code, issue.Message)
			}
		}
		if result.Valid {
			fmt.Fprintf(w, "✓ %d type(s) valid\n", result.Types)
		}
		for _, name := range result.Undeclared {
			fmt.Fprintf(w, "note: %s is registered but not declared\n", name)
		}
	}

	if result.Valid {
		return formatter.Success(result, text)
	}
	msg := fmt.Sprintf("%d problem(s) found", len(result.Errors))
	if err := formatter.Failure(result.Errors[0].Code, msg, result, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

func issueFromLoad(err error) ValidationIssue {
	var le *LoadError
	if errors.As(err, &le) {
		issue := ValidationIssue{Code: le.Code, Message: le.Message}
		if le.Pos.IsValid() {
			issue.Line = le.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

func issueFromCompile(err error) ValidationIssue {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		issue := ValidationIssue{Code: MapFieldToErrorCode(ce.Field), Field: ce.Field, Message: ce.Message}
		if ce.Pos.IsValid() {
			issue.Line = ce.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

func issueFromRegistry(err error) ValidationIssue {
	var re *registry.RegistryError
	if errors.As(err, &re) {
		return ValidationIssue{Code: ErrCodeTypeMismatch, Field: "types." + re.TypeName, Message: re.Message}
	}
	return ValidationIssue{Code: ErrCodeTypeMismatch, Message: err.Error()}
}
