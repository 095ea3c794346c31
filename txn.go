package mutantic

import (
	automerge "github.com/automerge/automerge-go"
)

// txn scopes the writes of one mutation block. The engine has no
// general operation rollback, so all writes go to a fork of the
// document and reach the shared document only when the block returns
// cleanly and the fork is merged back as one update.
type txn struct {
	fork *automerge.Doc
	ops  int
	done bool
}

func (t *txn) guard() error {
	if t == nil || t.done {
		return ErrProxyLifetime
	}
	return nil
}

func (t *txn) wrote() {
	t.ops++
}
