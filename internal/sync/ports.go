package sync

import (
	"context"

	"github.com/tonimelisma/orcid-go/internal/doctree"
	"github.com/tonimelisma/orcid-go/internal/ror"
)

// ValueStore is the persistence port the engine reconciles against.
// Interfaces are defined here, at the consumer, per "accept interfaces,
// return structs"; internal/store provides the real implementation.
//
// Records are keyed by (scope, field, position). Snapshot records (values
// frozen into a historical snapshot by the host) are invisible to every
// method: Upsert only ever touches live records and DeleteOutside must
// never delete snapshot rows.
type ValueStore interface {
	// Upsert creates or overwrites the live record at (scope, field,
	// position). The match key is the position, not the content, so
	// repeated syncs overwrite rather than duplicate.
	Upsert(ctx context.Context, scope Scope, field string, position int, v Value) error

	// DeleteOutside removes every live record at (scope, field) whose
	// position falls outside 0..n-1. n == 0 removes them all.
	DeleteOutside(ctx context.Context, scope Scope, field string, n int) error

	// GetOrCreateReference ensures the fixed marker record (field set to
	// option) exists at position 0 of the scope. Failure here indicates a
	// misprovisioned environment and is the one store error the
	// orchestrator propagates instead of absorbing.
	GetOrCreateReference(ctx context.Context, scope Scope, field, option string) error
}

// RecordFetcher fetches the external document for one external identifier.
// Implemented by *orcid.Client.
type RecordFetcher interface {
	Record(ctx context.Context, id string) (*doctree.Node, error)
}

// OrgResolver maps a disambiguation entry to a canonical organization
// identifier. Implemented by *ror.Resolver. The second return is false
// when no canonical id could be determined; resolution never fails with
// an error.
type OrgResolver interface {
	Resolve(ctx context.Context, d ror.Disambiguation) (string, bool)
}
