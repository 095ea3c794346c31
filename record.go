package mutantic

import (
	"fmt"
	"reflect"

	automerge "github.com/automerge/automerge-go"

	"github.com/mutantic/go-mutantic/schema"
)

// Record is a live, transaction-scoped view of a replicated map,
// presenting the fields of its record schema. Every write targets
// exactly one child entry of the map; nothing wider is ever replaced.
// A Record is valid only for the lifetime of the mutation block that
// produced it.
type Record struct {
	m    *automerge.Map
	n    *schema.Node
	tx   *txn
	kids map[string]any
}

func newRecord(m *automerge.Map, n *schema.Node, tx *txn) *Record {
	return &Record{m: m, n: n, tx: tx, kids: make(map[string]any)}
}

// Get reads one field. Scalars are coerced to the declared leaf type,
// optional fields read as nil when absent, and nested records or lists
// come back as child proxies, cached for the rest of the transaction.
// A non-optional container that is absent is created from its schema
// defaults first.
func (r *Record) Get(field string) (any, error) {
	if err := r.tx.guard(); err != nil {
		return nil, err
	}
	f, ok := r.n.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrSchemaMismatch, r.n.Type, field)
	}
	node := f.Node
	if node.Kind == schema.OptionalKind {
		v, err := r.m.Get(f.Name)
		if err != nil {
			return nil, err
		}
		if v.Kind() == automerge.KindNull || v.Kind() == automerge.KindVoid {
			return nil, nil
		}
		node = node.Elem
	}
	if node.Kind.IsLeaf() {
		v, err := r.m.Get(f.Name)
		if err != nil {
			return nil, err
		}
		lv, err := fromLeaf(v, node)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return lv.Interface(), nil
	}
	return r.child(f, node)
}

func (r *Record) child(f schema.Field, node *schema.Node) (any, error) {
	if c, ok := r.kids[f.Name]; ok {
		return c, nil
	}
	v, err := r.m.Get(f.Name)
	if err != nil {
		return nil, err
	}
	if v.Kind() == automerge.KindVoid || v.Kind() == automerge.KindNull {
		def, err := toCRDT(node.Default(), node)
		if err != nil {
			return nil, err
		}
		if err := r.m.Set(f.Name, def); err != nil {
			return nil, err
		}
		r.tx.wrote()
		if v, err = r.m.Get(f.Name); err != nil {
			return nil, err
		}
	}
	var c any
	switch {
	case node.Kind == schema.RecordKind && v.Kind() == automerge.KindMap:
		c = newRecord(v.Map(), node, r.tx)
	case node.Kind == schema.ListKind && v.Kind() == automerge.KindList:
		c = newSeq(v.List(), node, r.tx)
	default:
		return nil, fmt.Errorf("%w: field %q holds %s, expected %s", ErrValidation, f.Name, v.Kind(), node.Kind)
	}
	r.kids[f.Name] = c
	return c, nil
}

// Record returns the child proxy of a nested record field.
func (r *Record) Record(field string) (*Record, error) {
	v, err := r.Get(field)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Record)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not a record", ErrSchemaMismatch, field)
	}
	return c, nil
}

// Seq returns the child proxy of a list field.
func (r *Record) Seq(field string) (*Seq, error) {
	v, err := r.Get(field)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Seq)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not a list", ErrSchemaMismatch, field)
	}
	return c, nil
}

// Value reads one field as a fully materialized typed value with no
// link back to the underlying node. Absent optional fields read as the
// field's default.
func (r *Record) Value(field string) (any, error) {
	if err := r.tx.guard(); err != nil {
		return nil, err
	}
	f, ok := r.n.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrSchemaMismatch, r.n.Type, field)
	}
	v, err := r.m.Get(f.Name)
	if err != nil {
		return nil, err
	}
	if v.Kind() == automerge.KindVoid {
		return f.Node.Default().Interface(), nil
	}
	fv, err := fromCRDT(v, f.Node)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return fv.Interface(), nil
}

// Set writes one field. The value is shape-checked against the field's
// schema, converted, and written as a single replacement of that child
// entry. Any cached child proxy for the field is invalidated.
func (r *Record) Set(field string, value any) error {
	if err := r.tx.guard(); err != nil {
		return err
	}
	f, ok := r.n.Field(field)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrSchemaMismatch, r.n.Type, field)
	}
	cv, err := toCRDT(reflect.ValueOf(value), f.Node)
	if err != nil {
		return fmt.Errorf("field %q: %w", field, err)
	}
	if err := r.m.Set(f.Name, cv); err != nil {
		return err
	}
	delete(r.kids, f.Name)
	r.tx.wrote()
	return nil
}

// Delete removes an optional field from the record. Deleting a
// required field is a schema mismatch.
func (r *Record) Delete(field string) error {
	if err := r.tx.guard(); err != nil {
		return err
	}
	f, ok := r.n.Field(field)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrSchemaMismatch, r.n.Type, field)
	}
	if !f.Optional() {
		return fmt.Errorf("%w: field %q is not optional", ErrSchemaMismatch, field)
	}
	if err := r.m.Delete(f.Name); err != nil {
		return err
	}
	delete(r.kids, f.Name)
	r.tx.wrote()
	return nil
}
