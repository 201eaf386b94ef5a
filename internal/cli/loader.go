package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"
	"golang.org/x/net/html"

	"github.com/roach88/weft/internal/compiler"
	"github.com/roach88/weft/internal/datastore"
	"github.com/roach88/weft/internal/demo/todo"
	"github.com/roach88/weft/internal/dom"
	"github.com/roach88/weft/internal/ir"
	"github.com/roach88/weft/internal/registry"
	"github.com/roach88/weft/internal/store"
)

// Error codes shared by all commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeLoadFailed   = "E004" // CUE, page or data file did not load
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeInvalidType  = "E104" // Malformed type declaration
	ErrCodeInvalidData  = "E105" // Malformed record (float, missing or duplicate key)
	ErrCodeTypeMismatch = "E110" // Registered code does not match a declared type
	ErrCodeJournal      = "E201" // Journal unreadable or inconsistent
	ErrCodeScenario     = "E301" // Scenario failed
)

// LoadError is a load failure with a code and, for CUE input, a position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadManifest compiles a manifest file or directory. An empty path
// selects the built-in todo demo.
func LoadManifest(path string) (*ir.Manifest, error) {
	if path == "" {
		m, err := todo.Manifest()
		if err != nil {
			return nil, convertCompileError(err, "demo")
		}
		return m, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path)}
	}
	m, err := compiler.Load(path)
	if err != nil {
		return nil, convertCompileError(err, path)
	}
	return m, nil
}

// convertCompileError keeps the position of a compiler error.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", context, err)}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeLoadFailed
	case strings.HasPrefix(field, "data"):
		return ErrCodeInvalidData
	case strings.HasPrefix(field, "types"),
		field == "variant", field == "initializer", field == "handlers",
		field == "collection", field == "key":
		return ErrCodeInvalidType
	default:
		return ErrCodeGeneric
	}
}

// loadPage parses an HTML page from disk.
func loadPage(path string) (*html.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("page not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return doc, nil
}

// newRegistry returns a registry holding the built-in type modules.
func newRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := todo.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// seedSource says where a run's initial collections came from.
type seedSource struct {
	Kind    string `json:"kind"` // "journal", "file", "demo" or "empty"
	Path    string `json:"path,omitempty"`
	Session string `json:"session,omitempty"`
	LastSeq int64  `json:"last_seq,omitempty"`
}

// seedOrder decides whether a journal or the data file seeds a run when
// both are available.
type seedOrder int

const (
	// journalFirst continues from the journal's latest session.
	journalFirst seedOrder = iota
	// dataFirst reloads the data file; the journal only records the run.
	dataFirst
)

// loadSeeds defines the initial data store. With journalFirst, a journal
// that already holds a session wins and the run continues from that
// session's final state. With dataFirst and a dataPath, the journal is
// not read. Otherwise dataPath is loaded, then fallback.
func loadSeeds(ctx context.Context, st *store.Store, dataPath string, fallback map[string][]ir.Record, order seedOrder) (*datastore.Store, seedSource, error) {
	var (
		initial map[string][]ir.Record
		src     seedSource
	)

	if st != nil && (order == journalFirst || dataPath == "") {
		replayed, err := st.Replay(ctx)
		if err != nil {
			return nil, src, &LoadError{Code: ErrCodeJournal, Message: err.Error()}
		}
		if replayed.Session != "" {
			initial = replayed.Collections
			src = seedSource{Kind: "journal", Session: replayed.Session, LastSeq: replayed.LastSeq}
		}
	}

	if initial == nil {
		switch {
		case dataPath != "":
			data, err := datastore.LoadFile(dataPath)
			if err != nil {
				var compileErr *compiler.CompileError
				if errors.As(err, &compileErr) {
					return nil, src, convertCompileError(err, dataPath)
				}
				return nil, src, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
			}
			initial = data
			src = seedSource{Kind: "file", Path: dataPath}
		case fallback != nil:
			initial = fallback
			src = seedSource{Kind: "demo"}
		default:
			initial = map[string][]ir.Record{}
			src = seedSource{Kind: "empty"}
		}
	}

	seeds := datastore.New()
	if err := seeds.Define(initial); err != nil {
		return nil, src, err
	}
	return seeds, src, nil
}

// openJournal opens the journal at path, or returns nil for an empty path.
// mustExist rejects a path with no database behind it.
func openJournal(path string, mustExist bool) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	if mustExist {
		if _, err := os.Stat(path); err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// exitForLoad turns a load failure into a command error.
func exitForLoad(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return WrapExitError(ExitCommandError, "failed to load", err)
}
