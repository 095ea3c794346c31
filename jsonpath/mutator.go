package jsonpath

import (
	"fmt"

	mutantic "github.com/mutantic/go-mutantic"
)

// Mutator addresses proxy fields by path, inside the mutation block
// that produced the root Record. Each operation resolves its path to
// one field or index and issues one write through the proxy machinery.
type Mutator struct {
	root *mutantic.Record
}

func New(root *mutantic.Record) *Mutator {
	return &Mutator{root: root}
}

// walk resolves segments from the root, returning the proxy or scalar
// the path lands on.
func (m *Mutator) walk(segs []segment) (any, error) {
	cur := any(m.root)
	for i, s := range segs {
		switch c := cur.(type) {
		case *mutantic.Record:
			if s.isIndex {
				return nil, fmt.Errorf("segment %s: cannot index a record", s)
			}
			v, err := c.Get(s.field)
			if err != nil {
				return nil, err
			}
			cur = v
		case *mutantic.Seq:
			if !s.isIndex {
				return nil, fmt.Errorf("segment %s: cannot take a field of a list", s)
			}
			v, err := c.Get(s.index)
			if err != nil {
				return nil, err
			}
			cur = v
		default:
			return nil, fmt.Errorf("segment %s: %s is not a container", s, segString(segs[:i]))
		}
	}
	return cur, nil
}

func segString(segs []segment) string {
	out := "$"
	for _, s := range segs {
		out += s.String()
	}
	return out
}

func (m *Mutator) seqAt(path string) (*mutantic.Seq, error) {
	segs, err := parse(path)
	if err != nil {
		return nil, err
	}
	v, err := m.walk(segs)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*mutantic.Seq)
	if !ok {
		return nil, fmt.Errorf("path %q does not resolve to a list", path)
	}
	return s, nil
}

// target splits a path into its parent container and final segment.
func (m *Mutator) target(path string) (any, segment, error) {
	segs, err := parse(path)
	if err != nil {
		return nil, segment{}, err
	}
	if len(segs) == 0 {
		return nil, segment{}, fmt.Errorf("path %q selects the document root", path)
	}
	parent, err := m.walk(segs[:len(segs)-1])
	if err != nil {
		return nil, segment{}, err
	}
	return parent, segs[len(segs)-1], nil
}

// Set writes one field or element.
func (m *Mutator) Set(path string, value any) error {
	parent, last, err := m.target(path)
	if err != nil {
		return err
	}
	switch p := parent.(type) {
	case *mutantic.Record:
		if last.isIndex {
			return fmt.Errorf("path %q: cannot index a record", path)
		}
		return p.Set(last.field, value)
	case *mutantic.Seq:
		if !last.isIndex {
			return fmt.Errorf("path %q: cannot take a field of a list", path)
		}
		return p.Set(last.index, value)
	default:
		return fmt.Errorf("path %q does not resolve to a container field", path)
	}
}

// Append adds one element to the list the path resolves to.
func (m *Mutator) Append(path string, value any) error {
	s, err := m.seqAt(path)
	if err != nil {
		return err
	}
	return s.Append(value)
}

// Insert inserts one element into the list the path resolves to.
func (m *Mutator) Insert(path string, index int, value any) error {
	s, err := m.seqAt(path)
	if err != nil {
		return err
	}
	return s.Insert(index, value)
}

// Pop removes one element from the list the path resolves to. A
// negative index counts from the end, -1 being the last element.
func (m *Mutator) Pop(path string, index int) error {
	s, err := m.seqAt(path)
	if err != nil {
		return err
	}
	if index < 0 {
		index += s.Len()
	}
	return s.Delete(index)
}

// Delete removes the field or element the path resolves to. Record
// fields must be optional to be deleted.
func (m *Mutator) Delete(path string) error {
	parent, last, err := m.target(path)
	if err != nil {
		return err
	}
	switch p := parent.(type) {
	case *mutantic.Record:
		if last.isIndex {
			return fmt.Errorf("path %q: cannot index a record", path)
		}
		return p.Delete(last.field)
	case *mutantic.Seq:
		if !last.isIndex {
			return fmt.Errorf("path %q: cannot take a field of a list", path)
		}
		return p.Delete(last.index)
	default:
		return fmt.Errorf("path %q does not resolve to a container field", path)
	}
}
