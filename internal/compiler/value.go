package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/weft/internal/ir"
)

// CompileValue converts a concrete CUE value into an ir value.
func CompileValue(v cue.Value) (ir.IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{Field: pathOf(v), Message: "value must be concrete", Pos: v.Pos()}
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: pathOf(v), Message: err.Error(), Pos: v.Pos()}
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := CompileValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := CompileValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: pathOf(v), Message: "floats are not allowed", Pos: v.Pos()}
	default:
		return nil, &CompileError{Field: pathOf(v), Message: fmt.Sprintf("unsupported kind %s", v.Kind()), Pos: v.Pos()}
	}
}

// CompileData converts a struct of lists into named record collections.
func CompileData(v cue.Value) (map[string][]ir.Record, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := map[string][]ir.Record{}
	for iter.Next() {
		name := iter.Label()
		list := iter.Value()
		if list.Kind() != cue.ListKind {
			return nil, &CompileError{Field: "data." + name, Message: "collection must be a list", Pos: list.Pos()}
		}
		conv, err := CompileValue(list)
		if err != nil {
			return nil, err
		}
		records := make([]ir.Record, 0, len(conv.(ir.IRArray)))
		for i, elem := range conv.(ir.IRArray) {
			rec, ok := elem.(ir.IRObject)
			if !ok {
				return nil, &CompileError{
					Field:   fmt.Sprintf("data.%s[%d]", name, i),
					Message: "record must be a struct",
					Pos:     list.Pos(),
				}
			}
			records = append(records, rec)
		}
		out[name] = records
	}
	return out, nil
}

func pathOf(v cue.Value) string {
	if p := v.Path().String(); p != "" {
		return p
	}
	return "value"
}
