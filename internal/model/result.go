package model

// Kind classifies the outcome of one gate invocation.
type Kind string

const (
	// KindNoOp means no migration units were applied anywhere.
	KindNoOp Kind = "noop"

	// KindMigrated means at least one unit was applied and the caller asked
	// not to halt.
	KindMigrated Kind = "migrated"
)

// Result is the outcome of one gate invocation. The halt path produces no
// Result: the process terminates instead of returning.
type Result struct {
	Kind Kind

	// Applied holds the identifiers of every unit applied during this
	// invocation, ascending within each repository and concatenated in
	// configuration order across repositories. Empty for KindNoOp.
	Applied []uint64
}

// Migrated reports whether this invocation applied any migration units.
func (r *Result) Migrated() bool {
	return r != nil && r.Kind == KindMigrated
}
