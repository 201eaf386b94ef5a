package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysUTF16Order(t *testing.T) {
	// U+FF61 sorts after U+1F600 in UTF-8 but before it in UTF-16.
	obj := IRObject{"\U0001F600": IRInt(1), "｡": IRInt(2)}
	assert.Equal(t, []string{"\U0001F600", "｡"}, obj.SortedKeys())
}

func TestClone_IsDeep(t *testing.T) {
	orig := Obj(
		O("id", IRInt(1)),
		O("tags", IRArray{IRString("a")}),
		O("meta", IRObject{"done": IRBool(false)}),
	)

	cp := orig.Clone()
	cp["id"] = IRInt(2)
	cp["tags"].(IRArray)[0] = IRString("changed")
	cp["meta"].(IRObject)["done"] = IRBool(true)

	assert.Equal(t, IRInt(1), orig["id"])
	assert.Equal(t, IRString("a"), orig["tags"].(IRArray)[0])
	assert.Equal(t, IRBool(false), orig["meta"].(IRObject)["done"])
}

func TestClone_Nil(t *testing.T) {
	var obj IRObject
	assert.Nil(t, obj.Clone())
}

func TestLookup(t *testing.T) {
	rec := Obj(
		O("text", IRString("buy milk")),
		O("author", IRObject{"name": IRString("ann")}),
		O("tags", IRArray{IRString("home"), IRString("food")}),
	)

	tests := []struct {
		path string
		want IRValue
		ok   bool
	}{
		{"text", IRString("buy milk"), true},
		{"author.name", IRString("ann"), true},
		{"tags.1", IRString("food"), true},
		{"tags.5", nil, false},
		{"tags.x", nil, false},
		{"missing", nil, false},
		{"text.deeper", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := rec.Lookup(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "", Text(IRNull{}))
	assert.Equal(t, "walk dog", Text(IRString("walk dog")))
	assert.Equal(t, "-7", Text(IRInt(-7)))
	assert.Equal(t, "true", Text(IRBool(true)))
	assert.Equal(t, `[1,"a"]`, Text(IRArray{IRInt(1), IRString("a")}))
	assert.Equal(t, `{"a":1}`, Text(IRObject{"a": IRInt(1)}))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(IRObject{"a": IRInt(1), "b": IRString("x")}, IRObject{"b": IRString("x"), "a": IRInt(1)}))
	assert.False(t, Equal(IRInt(1), IRString("1")))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"id":    1,
		"big":   int64(1 << 40),
		"text":  "x",
		"done":  false,
		"tags":  []any{"a", uint64(3)},
		"none":  nil,
		"whole": 3.0,
	})
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"id":    IRInt(1),
		"big":   IRInt(1 << 40),
		"text":  IRString("x"),
		"done":  IRBool(false),
		"tags":  IRArray{IRString("a"), IRInt(3)},
		"none":  IRNull{},
		"whole": IRInt(3),
	}, v)
}

func TestFromGo_RejectsFractionalFloat(t *testing.T) {
	_, err := FromGo(map[string]any{"price": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestFromGo_RejectsUnsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	require.Error(t, err)
}

func TestToGoRoundTrip(t *testing.T) {
	rec := Obj(O("id", IRInt(3)), O("tags", IRArray{IRString("a")}))
	back, err := FromGo(ToGo(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestRecordsFromGo(t *testing.T) {
	recs, err := RecordsFromGo([]any{
		map[string]any{"id": 1, "text": "clean the house"},
		map[string]any{"id": 2, "text": "buy milk"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, IRInt(2), recs[1]["id"])

	_, err = RecordsFromGo([]any{"not a record"})
	require.Error(t, err)
}

func TestIRObjectJSON(t *testing.T) {
	var obj IRObject
	require.NoError(t, json.Unmarshal([]byte(`{"id":9007199254740993,"text":"a<b","n":null}`), &obj))
	assert.Equal(t, IRInt(9007199254740993), obj["id"])
	assert.Equal(t, IRNull{}, obj["n"])

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"id":9007199254740993,"n":null,"text":"a<b"}`, string(out))
}

func TestUnmarshalIRValue_RejectsFloat(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{"x":1.25}`))
	require.Error(t, err)
}
