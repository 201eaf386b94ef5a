package ir

import "golang.org/x/net/html"

// Op is a weave operation tag: two sentinels, OpUpdate, and a default.
// Any byte not listed here means render.
type Op byte

const (
	// OpRender (re)renders every fragment of a container.
	OpRender Op = 0
	// OpInsert appends one record and one fragment.
	OpInsert Op = ']'
	// OpDelete removes the record and fragment enclosing the target element.
	OpDelete Op = '-'
	// OpUpdate replaces a record in place, re-rendering only its fragment.
	OpUpdate Op = '~'
)

// Normalize folds unknown tags into OpRender.
func (op Op) Normalize() Op {
	switch op {
	case OpInsert, OpDelete, OpUpdate:
		return op
	default:
		return OpRender
	}
}

// String returns the operation's name.
func (op Op) String() string {
	switch op.Normalize() {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpUpdate:
		return "update"
	default:
		return "render"
	}
}

// ParseOp maps an operation name or its sentinel character to an Op.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "insert", "]":
		return OpInsert, true
	case "delete", "-":
		return OpDelete, true
	case "update", "~":
		return OpUpdate, true
	case "render", "":
		return OpRender, true
	default:
		return OpRender, false
	}
}

// Binding is the descriptor of a bound container, resolved once when the
// container is first attached and cached thereafter.
type Binding struct {
	Collection string `json:"collection"` // data-w-list
	KeyField   string `json:"key_field"`  // data-w-key, default "id"
	TypeName   string `json:"type_name,omitempty"`
}

// DefaultKeyField is the identity-key field used when a container does not
// declare one.
const DefaultKeyField = "id"

// Event is a DOM event delivered to the runtime.
type Event struct {
	Type   string     `json:"type"`             // "click", "submit", ...
	Target *html.Node `json:"-"`                // element the event originated on
	Detail IRObject   `json:"detail,omitempty"` // extra payload merged into handler args
}

// JournalEntry is one successful mutation of a bound collection.
type JournalEntry struct {
	Seq        int64    `json:"seq"`     // logical clock, strictly increasing
	Session    string   `json:"session"` // runtime session token
	Collection string   `json:"collection"`
	KeyField   string   `json:"key_field"`
	Op         string   `json:"op"`            // "seed", "insert", "delete", "update"
	Key        string   `json:"key,omitempty"` // canonical identity key
	Record     IRObject `json:"record,omitempty"`
	RecordHash string   `json:"record_hash,omitempty"`
}

// Journal op names beyond the weave operations.
const (
	JournalSeed = "seed"
)

// Variant names the capability variant of a type module.
type Variant string

const (
	VariantPlain     Variant = "plain"
	VariantContainer Variant = "container"
	VariantItem      Variant = "item"
)

// ValidVariants lists the accepted variant names.
var ValidVariants = map[Variant]bool{
	VariantPlain:     true,
	VariantContainer: true,
	VariantItem:      true,
}

// TypeSpec is a declared type module: what a manifest says a type must
// provide. The registry verifies it against registered Go code.
type TypeSpec struct {
	Name        string   `json:"name"`
	Variant     Variant  `json:"variant"`
	Handlers    []string `json:"handlers"`
	Initializer string   `json:"initializer,omitempty"` // "new<Name>"
	Collection  string   `json:"collection,omitempty"`  // container variant only
	KeyField    string   `json:"key_field,omitempty"`   // container variant only
}

// Manifest is the compiled declaration of an application: its types and
// initial data.
type Manifest struct {
	Types []TypeSpec          `json:"types"`
	Data  map[string][]Record `json:"data"`
}
