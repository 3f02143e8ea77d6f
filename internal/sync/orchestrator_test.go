package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/orcid-go/internal/config"
	"github.com/tonimelisma/orcid-go/internal/doctree"
	"github.com/tonimelisma/orcid-go/internal/ror"
)

// stubFetcher returns a fixed document or error and counts calls.
type stubFetcher struct {
	doc   *doctree.Node
	err   error
	calls int
}

func (f *stubFetcher) Record(_ context.Context, _ string) (*doctree.Node, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.doc, nil
}

// testConfig returns a config with one fully populated mapping.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mappings = []config.Mapping{{
		Trigger:     "trigger",
		ORCID:       "orcid",
		GivenName:   "given_name",
		FamilyName:  "family_name",
		Role:        "role",
		Affiliation: "affiliation",
		Employment: config.EmploymentTargets{
			Role:        "employment/role",
			Affiliation: "employment/affiliation",
			RORID:       "employment/ror_id",
		},
	}}

	return cfg
}

// testEvent is a write of the trigger field carrying an ORCID iD.
func testEvent() WriteEvent {
	return WriteEvent{
		Project:    "p1",
		Field:      "trigger",
		SetPrefix:  "partners",
		SetIndex:   2,
		ExternalID: "0000-0002-1825-0097",
	}
}

func newTestOrchestrator(cfg *config.Config, fetcher *stubFetcher, resolver OrgResolver, store *mockStore) *Orchestrator {
	return NewOrchestrator(cfg, fetcher, resolver, store, testLogger())
}

// upsertFor returns the recorded upserts for one field, keyed by position.
func upsertsFor(store *mockStore, field string) map[int]Value {
	out := make(map[int]Value)

	for _, u := range store.upserts {
		if u.field == field {
			out[u.position] = u.value
		}
	}

	return out
}

func deleteFor(t *testing.T, store *mockStore, field string) deleteCall {
	t.Helper()

	for _, d := range store.deletes {
		if d.field == field {
			return d
		}
	}

	t.Fatalf("no delete pass recorded for field %s", field)

	return deleteCall{}
}

func TestHandleWriteGuards(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		ev       WriteEvent
		bulkLoad bool
	}{
		{
			"no mappings configured",
			config.DefaultConfig(),
			testEvent(),
			false,
		},
		{
			"bulk load",
			testConfig(),
			testEvent(),
			true,
		},
		{
			"no external id",
			testConfig(),
			WriteEvent{Project: "p1", Field: "trigger"},
			false,
		},
		{
			"untracked field",
			testConfig(),
			WriteEvent{Project: "p1", Field: "other", ExternalID: "0000-0002-1825-0097"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{doc: decodeRecord(t, fixtureRecord)}
			resolver := &stubResolver{}
			store := &mockStore{}
			o := newTestOrchestrator(tt.cfg, fetcher, resolver, store)

			require.NoError(t, o.HandleWrite(context.Background(), tt.ev, tt.bulkLoad))

			// A failing guard produces zero collaborator calls.
			assert.Zero(t, fetcher.calls)
			assert.Zero(t, resolver.calls.Load())
			assert.Zero(t, store.totalCalls())
		})
	}
}

func TestHandleWriteFetchFailureAbortsSilently(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	store := &mockStore{}
	o := newTestOrchestrator(testConfig(), fetcher, &stubResolver{}, store)

	require.NoError(t, o.HandleWrite(context.Background(), testEvent(), false))

	assert.Equal(t, 1, fetcher.calls)
	assert.Zero(t, store.totalCalls())
}

func TestHandleWriteSyncsIdentityAndMarker(t *testing.T) {
	fetcher := &stubFetcher{doc: decodeRecord(t, fixtureRecord)}
	store := &mockStore{}
	cfg := testConfig()
	o := newTestOrchestrator(cfg, fetcher, &stubResolver{}, store)

	ev := testEvent()
	require.NoError(t, o.HandleWrite(context.Background(), ev, false))

	scope := ev.Scope()

	require.Len(t, store.refs, 1)
	assert.Equal(t, refCall{scope: scope, field: cfg.PartnerType.Field, option: cfg.PartnerType.Option}, store.refs[0])

	assert.Equal(t, map[int]Value{0: TextValue("https://orcid.org/0000-0002-1825-0097")}, upsertsFor(store, "orcid"))
	assert.Equal(t, map[int]Value{0: TextValue("Josiah")}, upsertsFor(store, "given_name"))
	assert.Equal(t, map[int]Value{0: TextValue("Carberry")}, upsertsFor(store, "family_name"))

	// Identity fields are N=1 lists: the delete pass prunes anything past 0.
	assert.Equal(t, 1, deleteFor(t, store, "orcid").n)
	assert.Equal(t, 1, deleteFor(t, store, "given_name").n)
}

func TestHandleWriteGroupedVariant(t *testing.T) {
	fetcher := &stubFetcher{doc: decodeRecord(t, fixtureRecord)}
	store := &mockStore{}
	o := newTestOrchestrator(testConfig(), fetcher, &stubResolver{}, store)

	ev := testEvent()
	require.NoError(t, o.HandleWrite(context.Background(), ev, false))

	// Two active employments at Institute A: role list ["PI", "Co-I"] with
	// the organization as cross-reference.
	assert.Equal(t, map[int]Value{
		0: {Text: "PI", XRef: "Institute A", Present: true},
		1: {Text: "Co-I", XRef: "Institute A", Present: true},
	}, upsertsFor(store, "role"))
	assert.Equal(t, 2, deleteFor(t, store, "role").n)

	// Affiliation list: Institute A (cross-referenced to its joined roles)
	// and the nameless organization.
	assert.Equal(t, map[int]Value{
		0: {Text: "Institute A", XRef: "PI, Co-I", Present: true},
		1: {Text: "", XRef: "", Present: true},
	}, upsertsFor(store, "affiliation"))
	assert.Equal(t, 2, deleteFor(t, store, "affiliation").n)
}

func TestHandleWriteEmploymentVariant(t *testing.T) {
	fetcher := &stubFetcher{doc: decodeRecord(t, fixtureRecord)}
	resolver := &stubResolver{
		ids: map[ror.Disambiguation]string{
			{Source: "ROR", ID: "https://ror.org/02aaa0001"}: "https://ror.org/02aaa0001",
		},
	}
	store := &mockStore{}
	o := newTestOrchestrator(testConfig(), fetcher, resolver, store)

	require.NoError(t, o.HandleWrite(context.Background(), testEvent(), false))

	assert.Equal(t, map[int]Value{
		0: {Text: "PI", Present: true},
		1: {Text: "Co-I", Present: true},
	}, upsertsFor(store, "employment/role"))

	assert.Equal(t, map[int]Value{
		0: {Text: "Institute A", Present: true},
		1: {Text: "Institute A", Present: true},
	}, upsertsFor(store, "employment/affiliation"))

	assert.Equal(t, map[int]Value{
		0: {Text: "https://ror.org/02aaa0001", Present: true},
		1: {Text: "https://ror.org/02aaa0001", Present: true},
	}, upsertsFor(store, "employment/ror_id"))

	// Three active employments (the fully empty one included): every
	// parallel field's delete pass covers the full count even though the
	// empty position wrote nothing.
	assert.Equal(t, 3, deleteFor(t, store, "employment/role").n)
	assert.Equal(t, 3, deleteFor(t, store, "employment/affiliation").n)
	assert.Equal(t, 3, deleteFor(t, store, "employment/ror_id").n)
}

func TestHandleWriteIdempotence(t *testing.T) {
	run := func() *mockStore {
		fetcher := &stubFetcher{doc: decodeRecord(t, fixtureRecord)}
		store := &mockStore{}
		o := newTestOrchestrator(testConfig(), fetcher, &stubResolver{}, store)
		require.NoError(t, o.HandleWrite(context.Background(), testEvent(), false))

		return store
	}

	first := run()
	second := run()

	assert.Equal(t, first.upserts, second.upserts)
	assert.Equal(t, first.deletes, second.deletes)
	assert.Equal(t, first.refs, second.refs)
}

func TestHandleWriteMarkerFailurePropagates(t *testing.T) {
	fetcher := &stubFetcher{doc: decodeRecord(t, fixtureRecord)}
	store := &mockStore{refErr: errors.New("reference field missing")}
	o := newTestOrchestrator(testConfig(), fetcher, &stubResolver{}, store)

	err := o.HandleWrite(context.Background(), testEvent(), false)
	require.Error(t, err)
	assert.Empty(t, store.upserts)
}

func TestHandleWriteIdentityOnlyMapping(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mappings = []config.Mapping{{Trigger: "trigger", ORCID: "orcid"}}

	fetcher := &stubFetcher{doc: decodeRecord(t, fixtureRecord)}
	resolver := &stubResolver{}
	store := &mockStore{}
	o := newTestOrchestrator(cfg, fetcher, resolver, store)

	require.NoError(t, o.HandleWrite(context.Background(), testEvent(), false))

	// No affiliation targets: the aggregator (and resolver) never run.
	assert.Zero(t, resolver.calls.Load())
	assert.Equal(t, map[int]Value{0: TextValue("https://orcid.org/0000-0002-1825-0097")}, upsertsFor(store, "orcid"))
}

func TestHandleWriteAbsentIdentityValuePrunes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mappings = []config.Mapping{{Trigger: "trigger", GivenName: "given_name"}}

	fetcher := &stubFetcher{doc: decodeRecord(t, `{}`)}
	store := &mockStore{}
	o := newTestOrchestrator(cfg, fetcher, &stubResolver{}, store)

	require.NoError(t, o.HandleWrite(context.Background(), testEvent(), false))

	// Nothing to write, but the stale record at position 0 is pruned.
	assert.Empty(t, upsertsFor(store, "given_name"))
	assert.Equal(t, 0, deleteFor(t, store, "given_name").n)
}
