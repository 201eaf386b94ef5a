package compiler

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/weft/internal/ir"
)

// CompileManifest compiles a whole manifest value (the root of a loaded
// file or directory). Both the types and data sections are optional.
func CompileManifest(v cue.Value) (*ir.Manifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &ir.Manifest{Data: map[string][]ir.Record{}}

	if typesVal := v.LookupPath(cue.ParsePath("types")); typesVal.Exists() {
		iter, err := typesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileType(iter.Value())
			if err != nil {
				return nil, err
			}
			m.Types = append(m.Types, *spec)
		}
	}

	if dataVal := v.LookupPath(cue.ParsePath("data")); dataVal.Exists() {
		data, err := CompileData(dataVal)
		if err != nil {
			return nil, err
		}
		m.Data = data
	}

	return m, nil
}

// CompileType parses one type declaration. The type name is the struct
// label.
//
//	Item: { variant: "item", handlers: ["itemAdd"], initializer: "newItem" }
func CompileType(v cue.Value) (*ir.TypeSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.TypeSpec{Variant: ir.VariantPlain}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		spec.Name = sels[len(sels)-1].String()
	}

	if variantVal := v.LookupPath(cue.ParsePath("variant")); variantVal.Exists() {
		s, err := variantVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Variant = ir.Variant(s)
		if !ir.ValidVariants[spec.Variant] {
			return nil, &CompileError{
				Field:   "variant",
				Message: fmt.Sprintf("invalid variant %q for type %s (want plain, container or item)", s, spec.Name),
				Pos:     variantVal.Pos(),
			}
		}
	}

	if handlersVal := v.LookupPath(cue.ParsePath("handlers")); handlersVal.Exists() {
		iter, err := handlersVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			h, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.Handlers = append(spec.Handlers, h)
		}
	}

	if initVal := v.LookupPath(cue.ParsePath("initializer")); initVal.Exists() {
		s, err := initVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if !strings.EqualFold(s, InitializerName(spec.Name)) {
			return nil, &CompileError{
				Field:   "initializer",
				Message: fmt.Sprintf("initializer of %s must be named %s, got %q", spec.Name, InitializerName(spec.Name), s),
				Pos:     initVal.Pos(),
			}
		}
		spec.Initializer = s
	}

	for field, dst := range map[string]*string{"collection": &spec.Collection, "key": &spec.KeyField} {
		fv := v.LookupPath(cue.ParsePath(field))
		if !fv.Exists() {
			continue
		}
		if spec.Variant != ir.VariantContainer {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%s is only valid on container types (%s is %s)", field, spec.Name, spec.Variant),
				Pos:     fv.Pos(),
			}
		}
		s, err := fv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		*dst = s
	}

	return spec, nil
}

// InitializerName is the conventional initializer name of a type:
// "new" followed by the type name.
func InitializerName(typeName string) string {
	return "new" + typeName
}

// CheckData validates seeded collections against the container types that
// claim them: every record must carry its identity key and keys must be
// unique. Returns all problems found, sorted by collection.
func CheckData(m *ir.Manifest) []error {
	keyFields := map[string]string{}
	for _, t := range m.Types {
		if t.Variant == ir.VariantContainer && t.Collection != "" {
			kf := t.KeyField
			if kf == "" {
				kf = ir.DefaultKeyField
			}
			keyFields[t.Collection] = kf
		}
	}

	names := make([]string, 0, len(m.Data))
	for name := range m.Data {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		kf, ok := keyFields[name]
		if !ok {
			kf = ir.DefaultKeyField
		}
		seen := map[string]int{}
		for i, rec := range m.Data[name] {
			key, ok := ir.KeyOf(rec, kf)
			if !ok {
				errs = append(errs, &CompileError{
					Field:   fmt.Sprintf("data.%s[%d]", name, i),
					Message: fmt.Sprintf("record has no %q identity key", kf),
				})
				continue
			}
			if prev, dup := seen[key]; dup {
				errs = append(errs, &CompileError{
					Field:   fmt.Sprintf("data.%s[%d]", name, i),
					Message: fmt.Sprintf("duplicate %s %s (first at index %d)", kf, key, prev),
				})
				continue
			}
			seen[key] = i
		}
	}
	return errs
}
