package mutantic

import (
	"fmt"
	"reflect"

	automerge "github.com/automerge/automerge-go"

	"github.com/mutantic/go-mutantic/debug"
	"github.com/mutantic/go-mutantic/schema"
)

// Document maps the schema type T onto a replicated tree document.
// Reads produce immutable validated snapshots; writes go through
// transaction-scoped proxies at field granularity, so independent
// edits to different fields merge without conflict.
//
// A Document is not safe for concurrent use; replicas exchange state
// through update blobs instead of sharing a Document.
type Document[T any] struct {
	am *automerge.Doc
	n  *schema.Node
	tx *txn
}

// New builds a document holding the given initial state.
func New[T any](initial T) (*Document[T], error) {
	d, err := empty[T]()
	if err != nil {
		return nil, err
	}
	if err := d.SetState(initial); err != nil {
		return nil, err
	}
	return d, nil
}

// Load builds a document from one binary update blob.
func Load[T any](update []byte) (*Document[T], error) {
	am, err := automerge.Load(update)
	if err != nil {
		return nil, err
	}
	return FromDoc[T](am)
}

// LoadAll builds a document by applying update blobs in order to an
// empty root.
func LoadAll[T any](updates ...[]byte) (*Document[T], error) {
	d, err := empty[T]()
	if err != nil {
		return nil, err
	}
	if err := d.ApplyUpdate(updates...); err != nil {
		return nil, err
	}
	return d, nil
}

// FromDoc wraps an existing engine document handle.
func FromDoc[T any](am *automerge.Doc) (*Document[T], error) {
	d, err := empty[T]()
	if err != nil {
		return nil, err
	}
	d.am = am
	return d, nil
}

func empty[T any]() (*Document[T], error) {
	n, err := schema.For[T]()
	if err != nil {
		return nil, err
	}
	if n.Kind != schema.RecordKind {
		return nil, fmt.Errorf("%w: document schema %s must be a record", ErrSchemaMismatch, n.Type)
	}
	return &Document[T]{am: automerge.New(), n: n}, nil
}

// State rebuilds and validates a fresh snapshot of the current state.
// The snapshot is fully materialized and has no link back to the
// document; cost is proportional to document size.
func (d *Document[T]) State() (T, error) {
	var zero T
	rv, err := decodeState(d.am.RootMap(), d.n)
	if err != nil {
		return zero, err
	}
	return rv.Interface().(T), nil
}

// Update serializes the current state as one opaque binary blob. The
// format is owned by the engine; applying a blob twice is equivalent
// to applying it once, and blobs converge regardless of arrival order.
func (d *Document[T]) Update() []byte {
	return d.am.Save()
}

// ApplyUpdate merges received update blobs into the document.
func (d *Document[T]) ApplyUpdate(updates ...[]byte) error {
	for _, u := range updates {
		if err := d.am.LoadIncremental(u); err != nil {
			return err
		}
	}
	return nil
}

// Doc exposes the underlying engine document.
func (d *Document[T]) Doc() *automerge.Doc {
	return d.am
}

// Mutate runs fn with a root proxy shaped like T. All writes issued
// through the proxy tree are buffered on a fork of the document and
// merged back as one atomic update when fn returns nil. If fn returns
// an error or panics, nothing is applied. A Mutate call made while a
// block is already open on this document joins the open transaction
// instead of nesting a new one.
func (d *Document[T]) Mutate(fn func(root *Record) error) error {
	if d.tx != nil && !d.tx.done {
		return fn(newRecord(d.tx.fork.RootMap(), d.n, d.tx))
	}
	fork, err := automerge.Load(d.am.Save())
	if err != nil {
		return err
	}
	t := &txn{fork: fork}
	d.tx = t
	defer func() {
		t.done = true
		d.tx = nil
	}()
	if err := fn(newRecord(fork.RootMap(), d.n, t)); err != nil {
		if debug.Txn() {
			debug.Logf("txn aborted after %d ops: %v\n", t.ops, err)
		}
		return err
	}
	if t.ops == 0 {
		return nil
	}
	if _, err := fork.Commit("mutate"); err != nil {
		return err
	}
	if debug.Txn() {
		debug.Logf("txn commit, %d ops\n", t.ops)
	}
	_, err = d.am.Merge(fork)
	return err
}

// SetState overwrites the whole state from a typed value.
//
// This is not a granular edit: every root field is rewritten, so it
// overwrites concurrent edits that a field-level write would have
// merged with. Prefer Mutate for anything but initialization.
func (d *Document[T]) SetState(v T) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	cv, err := toCRDT(reflect.ValueOf(v), d.n)
	if err != nil {
		return err
	}
	fields := cv.(map[string]any)
	root := d.am.RootMap()
	keys, err := root.Keys()
	if err != nil {
		return err
	}
	changed := 0
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			if err := root.Delete(k); err != nil {
				return err
			}
			changed++
		}
	}
	for k, fv := range fields {
		if err := root.Set(k, fv); err != nil {
			return err
		}
		changed++
	}
	if changed == 0 {
		return nil
	}
	_, err = d.am.Commit("set state")
	return err
}
