package mutantic

import "errors"

var (
	// ErrSchemaMismatch reports a value whose shape disagrees with the
	// schema position it is being written to.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrValidation reports a reconstructed or migrated structure that
	// does not validate against its schema.
	ErrValidation = errors.New("validation failed")

	// ErrProxyLifetime reports use of a proxy after its transaction
	// has ended.
	ErrProxyLifetime = errors.New("proxy used outside its transaction")

	// ErrMigration reports an unregistered migration target, a
	// document off the version chain, or a failing transform.
	ErrMigration = errors.New("migration failed")
)
