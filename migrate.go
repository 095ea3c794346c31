package mutantic

import (
	"fmt"
	"reflect"

	automerge "github.com/automerge/automerge-go"

	"github.com/mutantic/go-mutantic/debug"
	"github.com/mutantic/go-mutantic/schema"
)

// VersionField is the wire name of the integer field every versioned
// schema must carry. Its value is the 1-based position of the schema
// in its chain.
const VersionField = "schema_version"

// Transform rewrites one schema version into the next. old is a proxy
// over the document's current root; new is a scratch proxy over a root
// pre-populated with the target schema's defaults. The transform must
// copy every field it wants to carry over; fields it leaves at their
// current value cost no replicated edit.
type Transform func(old, new *Record) error

// Step registers one schema version: the model type and the paired
// transforms from and to the previous version. The first step of a
// chain has no previous version, so its transforms may be nil.
type Step struct {
	Model any
	Up    Transform
	Down  Transform
}

type chainStep struct {
	n    *schema.Node
	typ  reflect.Type
	up   Transform
	down Transform
}

// Chain is a totally ordered, non-branching sequence of schema
// versions. A document's schema_version field always names its
// position on the chain.
type Chain struct {
	steps []chainStep
	index map[reflect.Type]int
}

// NewChain builds a chain from steps ordered oldest to newest.
func NewChain(steps ...Step) (*Chain, error) {
	c := &Chain{index: make(map[reflect.Type]int, len(steps))}
	for i, s := range steps {
		t := reflect.TypeOf(s.Model)
		if t == nil {
			return nil, fmt.Errorf("%w: step %d has no model", ErrMigration, i)
		}
		n, err := schema.Resolve(t)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrMigration, i, err)
		}
		if n.Kind != schema.RecordKind {
			return nil, fmt.Errorf("%w: step %d: %s is not a record", ErrMigration, i, t)
		}
		vf, ok := n.Field(VersionField)
		if !ok || vf.Node.Kind != schema.IntKind {
			return nil, fmt.Errorf("%w: %s has no integer %q field", ErrMigration, t, VersionField)
		}
		if _, dup := c.index[t]; dup {
			return nil, fmt.Errorf("%w: %s registered twice", ErrMigration, t)
		}
		c.index[t] = i
		c.steps = append(c.steps, chainStep{n: n, typ: t, up: s.Up, down: s.Down})
	}
	if len(c.steps) == 0 {
		return nil, fmt.Errorf("%w: empty chain", ErrMigration)
	}
	return c, nil
}

// Migration is one pending migration of a document along a chain.
type Migration struct {
	c  *Chain
	am *automerge.Doc
}

// Migrate prepares to migrate the given engine document in place.
func (c *Chain) Migrate(am *automerge.Doc) *Migration {
	return &Migration{c: c, am: am}
}

// To migrates the document to the chain position of the target model,
// one committed transaction per version step, ascending through Up
// transforms or descending through Down ones. Committing per step
// keeps every intermediate version on the replicated history, so a
// concurrent update produced against a pre-migration schema still
// merges cleanly.
func (m *Migration) To(target any) error {
	to, ok := m.c.index[reflect.TypeOf(target)]
	if !ok {
		return fmt.Errorf("%w: %T is not a registered schema version", ErrMigration, target)
	}
	from, err := m.c.current(m.am)
	if err != nil {
		return err
	}
	if debug.Migrate() {
		debug.Logf("migrate v%d -> v%d\n", from+1, to+1)
	}
	for from < to {
		if err := m.c.step(m.am, from, from+1, m.c.steps[from+1].up); err != nil {
			return err
		}
		from++
	}
	for from > to {
		if err := m.c.step(m.am, from, from-1, m.c.steps[from].down); err != nil {
			return err
		}
		from--
	}
	return nil
}

// current reads the document's chain position and checks the document
// is readable under that version's schema.
func (c *Chain) current(am *automerge.Doc) (int, error) {
	v, err := am.RootMap().Get(VersionField)
	if err != nil {
		return 0, err
	}
	if v.Kind() != automerge.KindInt64 {
		return 0, fmt.Errorf("%w: document has no %q field", ErrMigration, VersionField)
	}
	idx := int(v.Int64()) - 1
	if idx < 0 || idx >= len(c.steps) {
		return 0, fmt.Errorf("%w: document version %d is not on the chain", ErrMigration, idx+1)
	}
	if _, err := decodeState(am.RootMap(), c.steps[idx].n); err != nil {
		return 0, fmt.Errorf("%w: reading v%d document: %w", ErrMigration, idx+1, err)
	}
	return idx, nil
}

// step applies one version transition as its own committed
// transaction: transform into a scratch root pre-populated with the
// target schema's defaults, then reconcile the live root against it
// field by field, writing only fields that actually change and
// dropping the ones the target schema no longer has.
func (c *Chain) step(am *automerge.Doc, from, to int, tf Transform) error {
	if tf == nil {
		return fmt.Errorf("%w: no transform from v%d to v%d", ErrMigration, from+1, to+1)
	}
	fork, err := automerge.Load(am.Save())
	if err != nil {
		return err
	}
	t := &txn{fork: fork}
	defer func() {
		t.done = true
	}()

	newN := c.steps[to].n
	scratch := automerge.New()
	defaults, err := toCRDT(newN.Default(), newN)
	if err != nil {
		return err
	}
	for k, v := range defaults.(map[string]any) {
		if err := scratch.RootMap().Set(k, v); err != nil {
			return err
		}
	}

	oldRoot := newRecord(fork.RootMap(), c.steps[from].n, t)
	newRoot := newRecord(scratch.RootMap(), newN, t)
	if err := tf(oldRoot, newRoot); err != nil {
		return fmt.Errorf("%w: transform v%d -> v%d: %w", ErrMigration, from+1, to+1, err)
	}
	if err := newRoot.Set(VersionField, to+1); err != nil {
		return err
	}

	live := fork.RootMap()
	wrote := 0
	for _, f := range newN.Fields {
		want, err := plainAt(scratch.RootMap(), f.Name)
		if err != nil {
			return err
		}
		have, err := plainAt(live, f.Name)
		if err != nil {
			return err
		}
		if reflect.DeepEqual(want, have) {
			continue
		}
		if err := live.Set(f.Name, want); err != nil {
			return err
		}
		wrote++
	}
	keys, err := live.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, ok := newN.Field(k); ok {
			continue
		}
		if err := live.Delete(k); err != nil {
			return err
		}
		wrote++
	}
	if _, err := decodeState(live, newN); err != nil {
		return fmt.Errorf("%w: v%d result: %w", ErrMigration, to+1, err)
	}
	if debug.Migrate() {
		debug.Logf("migrate step v%d -> v%d, %d edits\n", from+1, to+1, wrote)
	}
	if wrote == 0 {
		return nil
	}
	if _, err := fork.Commit(fmt.Sprintf("migrate to v%d", to+1)); err != nil {
		return err
	}
	_, err = am.Merge(fork)
	return err
}

func plainAt(m *automerge.Map, key string) (any, error) {
	v, err := m.Get(key)
	if err != nil {
		return nil, err
	}
	return plain(v)
}

// MigrateTo migrates a copy of the given update blob along the chain
// and returns it as a document of the target schema. The source
// document is left untouched.
func MigrateTo[To any](c *Chain, update []byte) (*Document[To], error) {
	am, err := automerge.Load(update)
	if err != nil {
		return nil, err
	}
	var target To
	if err := c.Migrate(am).To(target); err != nil {
		return nil, err
	}
	return FromDoc[To](am)
}
