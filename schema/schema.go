// Package schema derives walkable field descriptors from Go schema
// types. A descriptor is resolved once per type and cached for the
// lifetime of the process.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Node describes one position in a schema: a scalar leaf, a record of
// named fields, a list of homogeneous elements, or an optional wrapper
// around any of those. Nodes are immutable once resolved.
type Node struct {
	Kind   Kind
	Type   reflect.Type
	Fields []Field // RecordKind
	Elem   *Node   // ListKind, OptionalKind

	byName map[string]int
}

// Field describes one named field of a record node.
type Field struct {
	Name   string // wire name, from the json tag when present
	GoName string
	Index  int // struct field index
	Node   *Node
}

// Optional reports whether the field may be deleted from its record.
func (f Field) Optional() bool {
	return f.Node.Kind == OptionalKind
}

// Field looks up a record field by wire name.
func (n *Node) Field(name string) (Field, bool) {
	i, ok := n.byName[name]
	if !ok {
		return Field{}, false
	}
	return n.Fields[i], true
}

// Default returns the default value for this node: zero for scalars
// and optionals, an empty slice for lists, and a record with each
// field defaulted in turn.
func (n *Node) Default() reflect.Value {
	switch n.Kind {
	case ListKind:
		return reflect.MakeSlice(n.Type, 0, 0)
	case RecordKind:
		v := reflect.New(n.Type).Elem()
		for _, f := range n.Fields {
			v.Field(f.Index).Set(f.Node.Default())
		}
		return v
	default:
		return reflect.Zero(n.Type)
	}
}

var (
	mu    sync.RWMutex
	cache = make(map[reflect.Type]*Node)
)

// Resolve derives the descriptor for t, reusing a previously resolved
// one when available. The cache is process-wide and append-only; when
// two goroutines race to resolve the same type the first write wins.
func Resolve(t reflect.Type) (*Node, error) {
	mu.RLock()
	n := cache[t]
	mu.RUnlock()
	if n != nil {
		return n, nil
	}
	n, err := resolve(t, nil)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	if prev := cache[t]; prev != nil {
		return prev, nil
	}
	cache[t] = n
	return n, nil
}

// For resolves the descriptor for the type parameter.
func For[T any]() (*Node, error) {
	return Resolve(reflect.TypeFor[T]())
}

var timeType = reflect.TypeFor[time.Time]()

func resolve(t reflect.Type, path []reflect.Type) (*Node, error) {
	switch t.Kind() {
	case reflect.String:
		return &Node{Kind: StringKind, Type: t}, nil
	case reflect.Bool:
		return &Node{Kind: BoolKind, Type: t}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Node{Kind: IntKind, Type: t}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Node{Kind: UintKind, Type: t}, nil
	case reflect.Float32, reflect.Float64:
		return &Node{Kind: FloatKind, Type: t}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Node{Kind: BytesKind, Type: t}, nil
		}
		elem, err := resolve(t.Elem(), path)
		if err != nil {
			return nil, err
		}
		if elem.Kind == OptionalKind {
			return nil, fmt.Errorf("%s: list of optionals is not supported", t)
		}
		return &Node{Kind: ListKind, Type: t, Elem: elem}, nil
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Pointer {
			return nil, fmt.Errorf("%s: nested optionals are not supported", t)
		}
		elem, err := resolve(t.Elem(), path)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: OptionalKind, Type: t, Elem: elem}, nil
	case reflect.Struct:
		if t == timeType {
			return &Node{Kind: TimeKind, Type: t}, nil
		}
		return resolveRecord(t, path)
	default:
		return nil, fmt.Errorf("cannot map %s onto a document schema", t)
	}
}

func resolveRecord(t reflect.Type, path []reflect.Type) (*Node, error) {
	for _, seen := range path {
		if seen == t {
			return nil, fmt.Errorf("cyclic schema through %s is not supported", t)
		}
	}
	path = append(path, t)
	n := &Node{
		Kind:   RecordKind,
		Type:   t,
		byName: make(map[string]int),
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := wireName(sf)
		if name == "" {
			continue
		}
		fn, err := resolve(sf.Type, path)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
		}
		if _, dup := n.byName[name]; dup {
			return nil, fmt.Errorf("%s: duplicate field name %q", t, name)
		}
		n.byName[name] = len(n.Fields)
		n.Fields = append(n.Fields, Field{
			Name:   name,
			GoName: sf.Name,
			Index:  i,
			Node:   fn,
		})
	}
	return n, nil
}

func wireName(sf reflect.StructField) string {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return sf.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return sf.Name
	}
	return name
}
