package mutantic

import (
	"fmt"
	"reflect"

	automerge "github.com/automerge/automerge-go"

	"github.com/mutantic/go-mutantic/schema"
)

// Seq is a live, transaction-scoped view of a replicated list. Every
// mutation targets exactly one element, so concurrent edits to
// different positions merge without conflict.
type Seq struct {
	l    *automerge.List
	n    *schema.Node
	tx   *txn
	kids map[int]any
}

func newSeq(l *automerge.List, n *schema.Node, tx *txn) *Seq {
	return &Seq{l: l, n: n, tx: tx, kids: make(map[int]any)}
}

// Len returns the current element count.
func (s *Seq) Len() int {
	return s.l.Len()
}

// Get reads one element: a coerced scalar, or a cached child proxy for
// record and list elements.
func (s *Seq) Get(i int) (any, error) {
	if err := s.tx.guard(); err != nil {
		return nil, err
	}
	if i < 0 || i >= s.l.Len() {
		return nil, fmt.Errorf("index %d out of range (len %d)", i, s.l.Len())
	}
	elem := s.n.Elem
	if elem.Kind.IsLeaf() {
		v, err := s.l.Get(i)
		if err != nil {
			return nil, err
		}
		lv, err := fromLeaf(v, elem)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		return lv.Interface(), nil
	}
	if c, ok := s.kids[i]; ok {
		return c, nil
	}
	v, err := s.l.Get(i)
	if err != nil {
		return nil, err
	}
	var c any
	switch {
	case elem.Kind == schema.RecordKind && v.Kind() == automerge.KindMap:
		c = newRecord(v.Map(), elem, s.tx)
	case elem.Kind == schema.ListKind && v.Kind() == automerge.KindList:
		c = newSeq(v.List(), elem, s.tx)
	default:
		return nil, fmt.Errorf("%w: index %d holds %s, expected %s", ErrValidation, i, v.Kind(), elem.Kind)
	}
	s.kids[i] = c
	return c, nil
}

// Record returns the child proxy of a record element.
func (s *Seq) Record(i int) (*Record, error) {
	v, err := s.Get(i)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Record)
	if !ok {
		return nil, fmt.Errorf("%w: element %d is not a record", ErrSchemaMismatch, i)
	}
	return c, nil
}

// Seq returns the child proxy of a list element.
func (s *Seq) Seq(i int) (*Seq, error) {
	v, err := s.Get(i)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Seq)
	if !ok {
		return nil, fmt.Errorf("%w: element %d is not a list", ErrSchemaMismatch, i)
	}
	return c, nil
}

// Value reads one element as a fully materialized typed value.
func (s *Seq) Value(i int) (any, error) {
	if err := s.tx.guard(); err != nil {
		return nil, err
	}
	if i < 0 || i >= s.l.Len() {
		return nil, fmt.Errorf("index %d out of range (len %d)", i, s.l.Len())
	}
	v, err := s.l.Get(i)
	if err != nil {
		return nil, err
	}
	ev, err := fromCRDT(v, s.n.Elem)
	if err != nil {
		return nil, fmt.Errorf("index %d: %w", i, err)
	}
	return ev.Interface(), nil
}

// Set replaces one element.
func (s *Seq) Set(i int, value any) error {
	if err := s.tx.guard(); err != nil {
		return err
	}
	if i < 0 || i >= s.l.Len() {
		return fmt.Errorf("index %d out of range (len %d)", i, s.l.Len())
	}
	cv, err := toCRDT(reflect.ValueOf(value), s.n.Elem)
	if err != nil {
		return fmt.Errorf("index %d: %w", i, err)
	}
	if err := s.l.Set(i, cv); err != nil {
		return err
	}
	delete(s.kids, i)
	s.tx.wrote()
	return nil
}

// Append adds elements at the end, one engine operation each.
func (s *Seq) Append(values ...any) error {
	if err := s.tx.guard(); err != nil {
		return err
	}
	for _, value := range values {
		cv, err := toCRDT(reflect.ValueOf(value), s.n.Elem)
		if err != nil {
			return err
		}
		if err := s.l.Append(cv); err != nil {
			return err
		}
		s.tx.wrote()
	}
	return nil
}

// Insert inserts one element at position i, shifting the rest.
func (s *Seq) Insert(i int, value any) error {
	if err := s.tx.guard(); err != nil {
		return err
	}
	if i < 0 || i > s.l.Len() {
		return fmt.Errorf("index %d out of range (len %d)", i, s.l.Len())
	}
	cv, err := toCRDT(reflect.ValueOf(value), s.n.Elem)
	if err != nil {
		return fmt.Errorf("index %d: %w", i, err)
	}
	if err := s.l.Insert(i, cv); err != nil {
		return err
	}
	s.shifted(i)
	s.tx.wrote()
	return nil
}

// Delete removes the element at position i.
func (s *Seq) Delete(i int) error {
	if err := s.tx.guard(); err != nil {
		return err
	}
	if i < 0 || i >= s.l.Len() {
		return fmt.Errorf("index %d out of range (len %d)", i, s.l.Len())
	}
	if err := s.l.Delete(i); err != nil {
		return err
	}
	s.shifted(i)
	s.tx.wrote()
	return nil
}

// Pop removes the last element.
func (s *Seq) Pop() error {
	if err := s.tx.guard(); err != nil {
		return err
	}
	if s.l.Len() == 0 {
		return fmt.Errorf("pop from empty list")
	}
	return s.Delete(s.l.Len() - 1)
}

// Clear removes every element.
func (s *Seq) Clear() error {
	if err := s.tx.guard(); err != nil {
		return err
	}
	for s.l.Len() > 0 {
		if err := s.l.Delete(s.l.Len() - 1); err != nil {
			return err
		}
		s.tx.wrote()
	}
	clear(s.kids)
	return nil
}

// Each iterates the list in order, yielding coerced scalars or child
// proxies. Iteration is lazy over the live list and may be restarted
// by calling Each again.
func (s *Seq) Each(fn func(i int, v any) error) error {
	if err := s.tx.guard(); err != nil {
		return err
	}
	for i := 0; i < s.l.Len(); i++ {
		v, err := s.Get(i)
		if err != nil {
			return err
		}
		if err := fn(i, v); err != nil {
			return err
		}
	}
	return nil
}

// positions at or after i moved, so cached child proxies there no
// longer point at the right element
func (s *Seq) shifted(i int) {
	for k := range s.kids {
		if k >= i {
			delete(s.kids, k)
		}
	}
}
