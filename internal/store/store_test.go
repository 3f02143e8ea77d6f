package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/orcid-go/internal/sync"
)

var testScope = sync.Scope{Project: "p1", SetPrefix: "partners", SetIndex: 0}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "values.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestUpsertCreatesAndOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testScope, "role", 0, sync.Value{Text: "PI", XRef: "Institute A"}))

	row, err := s.Get(ctx, testScope, "role", 0)
	require.NoError(t, err)
	assert.Equal(t, Row{Text: "PI", XRef: "Institute A"}, row)

	// Same key, new content: overwrite, not duplicate.
	require.NoError(t, s.Upsert(ctx, testScope, "role", 0, sync.Value{Text: "Director", XRef: "Institute B"}))

	row, err = s.Get(ctx, testScope, "role", 0)
	require.NoError(t, err)
	assert.Equal(t, Row{Text: "Director", XRef: "Institute B"}, row)

	positions, err := s.ListPositions(ctx, testScope, "role")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, positions)
}

func TestUpsertKeysAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	other := sync.Scope{Project: "p1", SetPrefix: "partners", SetIndex: 1}

	require.NoError(t, s.Upsert(ctx, testScope, "role", 0, sync.Value{Text: "a"}))
	require.NoError(t, s.Upsert(ctx, testScope, "affiliation", 0, sync.Value{Text: "b"}))
	require.NoError(t, s.Upsert(ctx, other, "role", 0, sync.Value{Text: "c"}))

	row, err := s.Get(ctx, testScope, "role", 0)
	require.NoError(t, err)
	assert.Equal(t, "a", row.Text)

	row, err = s.Get(ctx, other, "role", 0)
	require.NoError(t, err)
	assert.Equal(t, "c", row.Text)
}

func TestDeleteOutsideEnforcesPositionalInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Upsert(ctx, testScope, "affiliation", i, sync.Value{Text: "org"}))
	}

	// Shrink from N=3 to N=1: positions 1 and 2 go, position 0 stays.
	require.NoError(t, s.DeleteOutside(ctx, testScope, "affiliation", 1))

	positions, err := s.ListPositions(ctx, testScope, "affiliation")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, positions)

	_, err = s.Get(ctx, testScope, "affiliation", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOutsideZeroRemovesAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testScope, "role", 0, sync.Value{Text: "x"}))
	require.NoError(t, s.Upsert(ctx, testScope, "role", 1, sync.Value{Text: "y"}))

	require.NoError(t, s.DeleteOutside(ctx, testScope, "role", 0))

	positions, err := s.ListPositions(ctx, testScope, "role")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestDeleteOutsideScopedToFieldAndScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	other := sync.Scope{Project: "p1", SetPrefix: "partners", SetIndex: 7}

	require.NoError(t, s.Upsert(ctx, testScope, "role", 5, sync.Value{Text: "stale"}))
	require.NoError(t, s.Upsert(ctx, testScope, "affiliation", 5, sync.Value{Text: "keep"}))
	require.NoError(t, s.Upsert(ctx, other, "role", 5, sync.Value{Text: "keep"}))

	require.NoError(t, s.DeleteOutside(ctx, testScope, "role", 1))

	_, err := s.Get(ctx, testScope, "role", 5)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, testScope, "affiliation", 5)
	assert.NoError(t, err)

	_, err = s.Get(ctx, other, "role", 5)
	assert.NoError(t, err)
}

func TestDeleteOutsidePreservesSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testScope, "role", 0, sync.Value{Text: "old"}))
	require.NoError(t, s.Upsert(ctx, testScope, "role", 1, sync.Value{Text: "older"}))
	require.NoError(t, s.Snapshot(ctx, "p1", "snap-2026-01"))

	// Prune all live records; the snapshot copies must survive.
	require.NoError(t, s.DeleteOutside(ctx, testScope, "role", 0))

	positions, err := s.ListPositions(ctx, testScope, "role")
	require.NoError(t, err)
	assert.Empty(t, positions)

	var snapCount int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_values WHERE snapshot_id = 'snap-2026-01'`,
	).Scan(&snapCount)
	require.NoError(t, err)
	assert.Equal(t, 2, snapCount)
}

func TestUpsertAfterSnapshotDoesNotCollide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testScope, "role", 0, sync.Value{Text: "v1"}))
	require.NoError(t, s.Snapshot(ctx, "p1", "snap-1"))

	// The live row and its snapshot copy share the same logical key; only
	// the live row is updated.
	require.NoError(t, s.Upsert(ctx, testScope, "role", 0, sync.Value{Text: "v2"}))

	row, err := s.Get(ctx, testScope, "role", 0)
	require.NoError(t, err)
	assert.Equal(t, "v2", row.Text)

	var snapText string
	err = s.db.QueryRowContext(ctx,
		`SELECT text FROM project_values WHERE snapshot_id = 'snap-1'`,
	).Scan(&snapText)
	require.NoError(t, err)
	assert.Equal(t, "v1", snapText)
}

func TestGetOrCreateReferenceIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const field = "https://example.org/terms/partner/type"
	const option = "https://example.org/terms/options/person"

	require.NoError(t, s.GetOrCreateReference(ctx, testScope, field, option))
	require.NoError(t, s.GetOrCreateReference(ctx, testScope, field, option))

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_values WHERE attribute = ?`, field,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), testScope, "role", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
