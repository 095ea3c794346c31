package schema

import "fmt"

type Kind int

const (
	InvalidKind Kind = iota
	StringKind
	BoolKind
	IntKind
	UintKind
	FloatKind
	BytesKind
	TimeKind
	RecordKind
	ListKind
	OptionalKind
)

func (k Kind) String() string {
	s, ok := map[Kind]string{
		StringKind:   "String",
		BoolKind:     "Bool",
		IntKind:      "Int",
		UintKind:     "Uint",
		FloatKind:    "Float",
		BytesKind:    "Bytes",
		TimeKind:     "Time",
		RecordKind:   "Record",
		ListKind:     "List",
		OptionalKind: "Optional",
	}[k]
	if ok {
		return s
	}
	return fmt.Sprintf("<invalid kind %d>", int(k))
}

// IsLeaf reports whether nodes of this kind map to a single
// replicated scalar rather than a container.
func (k Kind) IsLeaf() bool {
	switch k {
	case RecordKind, ListKind:
		return false
	default:
		return true
	}
}

func Kinds() []Kind {
	return []Kind{
		StringKind,
		BoolKind,
		IntKind,
		UintKind,
		FloatKind,
		BytesKind,
		TimeKind,
		RecordKind,
		ListKind,
		OptionalKind,
	}
}
