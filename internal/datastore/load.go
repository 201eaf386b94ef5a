package datastore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/weft/internal/compiler"
	"github.com/roach88/weft/internal/ir"
)

// LoadFile reads initial state from a file. The format is chosen by
// extension:
//
//	.cue         the data section of a manifest (see package compiler)
//	.yaml, .yml  a mapping of collection name to a list of records
//	.json        same shape as YAML
func LoadFile(path string) (map[string][]ir.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		m, err := compiler.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return m.Data, nil
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read initial state: %w", err)
		}
		return ParseYAML(data)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read initial state: %w", err)
		}
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported initial state format: %s", path)
	}
}

// ParseYAML decodes a YAML mapping of collection name to records.
func ParseYAML(data []byte) (map[string][]ir.Record, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse initial state: %w", err)
	}
	return fromRaw(raw)
}

// ParseJSON decodes a JSON object of collection name to records. Large
// integers keep full precision.
func ParseJSON(data []byte) (map[string][]ir.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse initial state: %w", err)
	}
	return fromRaw(raw)
}

func fromRaw(raw map[string]any) (map[string][]ir.Record, error) {
	out := make(map[string][]ir.Record, len(raw))
	for name, v := range raw {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("collection %q: expected a list, got %T", name, v)
		}
		records, err := ir.RecordsFromGo(list)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
		out[name] = records
	}
	return out, nil
}
