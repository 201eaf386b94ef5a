package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartManifest = `
types: {
	Cart: {
		variant:    "container"
		collection: "cart"
		key:        "sku"
	}
	Line: {
		variant:  "item"
		handlers: ["remove"]
	}
}

data: cart: [
	{sku: "a1", qty: 2},
	{sku: "b7", qty: 1},
]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompileDemoManifest(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)
	assert.Contains(t, out, `"ToDo"`)
	assert.Contains(t, out, `"clean the house"`)
}

func TestCompileManifestFileJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cart.cue", cartManifest)

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   CompileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Types)
	assert.Equal(t, map[string]int{"cart": 2}, resp.Data.Collections)
	require.NotNil(t, resp.Data.Manifest)
	assert.Len(t, resp.Data.Manifest.Data["cart"], 2)
}

func TestCompileOutputToFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cart.cue", cartManifest)
	outPath := filepath.Join(dir, "manifest.json")

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), path, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 2 type(s) and 1 collection(s)")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var manifest map[string]any
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Contains(t, manifest, "types")
	assert.Contains(t, manifest, "data")
}

func TestCompileNonExistentPath(t *testing.T) {
	_, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), "/nonexistent/app.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "manifest not found")
}

func TestCompileFloatRejection(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prices.cue", `data: items: [{id: 1, price: 9.99}]`)

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "floats are not allowed")
}

func TestCompileSyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.cue", `types: {`)

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLoadFailed, resp.Error.Code)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeLoadFailed},
		{"data.list[0]", ErrCodeInvalidData},
		{"data.list", ErrCodeInvalidData},
		{"types.ToDo", ErrCodeInvalidType},
		{"variant", ErrCodeInvalidType},
		{"initializer", ErrCodeInvalidType},
		{"handlers", ErrCodeInvalidType},
		{"something", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
