package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tonimelisma/orcid-go/internal/config"
	"github.com/tonimelisma/orcid-go/internal/doctree"
	"github.com/tonimelisma/orcid-go/internal/orcid"
)

// Orchestrator is the engine's entry point. The host calls HandleWrite
// synchronously for every value write; the orchestrator decides whether the
// write triggers a sync, fetches the external record, and drives the
// aggregator and reconciler for every configured target field.
//
// The engine is event-agnostic: it knows nothing about how the host detects
// writes, only that it is handed the written field and its scope.
type Orchestrator struct {
	cfg        *config.Config
	fetcher    RecordFetcher
	aggregator *Aggregator
	reconciler *Reconciler
	store      ValueStore
	logger     *slog.Logger
}

// NewOrchestrator wires an Orchestrator from its collaborators. The config
// is read-only for the orchestrator's lifetime.
func NewOrchestrator(cfg *config.Config, fetcher RecordFetcher, resolver OrgResolver, store ValueStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		cfg:        cfg,
		fetcher:    fetcher,
		aggregator: NewAggregator(resolver, logger),
		reconciler: NewReconciler(store, logger),
		store:      store,
		logger:     logger,
	}
}

// HandleWrite processes one host write event. Four guards are evaluated in
// order, each aborting silently with no side effects:
//
//  1. no mapping table configured (feature disabled)
//  2. the write originates from a bulk/fixture load (avoid sync storms)
//  3. the written field carries no external identifier
//  4. the written field is not a configured trigger
//
// Past the guards, a fetch failure also aborts without error: the
// triggering write must succeed whether or not the registry is reachable,
// and derived fields simply go stale. The only error that propagates from
// a fetched record is a store failure, including the missing partner-type
// marker — that indicates a misprovisioned environment, not a sync problem.
func (o *Orchestrator) HandleWrite(ctx context.Context, ev WriteEvent, isBulkLoad bool) error {
	if len(o.cfg.Mappings) == 0 {
		return nil
	}

	if isBulkLoad {
		o.logger.Debug("skipping sync for bulk load", slog.String("field", ev.Field))
		return nil
	}

	if ev.ExternalID == "" {
		return nil
	}

	mapping := o.cfg.MappingFor(ev.Field)
	if mapping == nil {
		return nil
	}

	syncID := uuid.NewString()
	logger := o.logger.With(
		slog.String("sync_id", syncID),
		slog.String("scope", ev.Scope().String()),
		slog.String("orcid", ev.ExternalID),
	)

	record, err := o.fetcher.Record(ctx, ev.ExternalID)
	if err != nil {
		logger.Warn("record fetch failed, leaving local state unchanged",
			slog.String("error", err.Error()),
		)

		return nil
	}

	scope := ev.Scope()

	// The marker record categorizes the synced entity as a person. Its
	// field and option are required configuration; a store failure here
	// propagates.
	if err := o.store.GetOrCreateReference(ctx, scope, o.cfg.PartnerType.Field, o.cfg.PartnerType.Option); err != nil {
		return fmt.Errorf("sync: ensuring partner-type marker in %s: %w", scope, err)
	}

	if err := o.syncIdentity(ctx, scope, mapping, record, logger); err != nil {
		return err
	}

	if mapping.HasGrouped() || mapping.HasEmployment() {
		idx := o.aggregator.Aggregate(ctx, record)

		if err := o.syncGrouped(ctx, scope, mapping, idx); err != nil {
			return err
		}

		if err := o.syncEmployments(ctx, scope, mapping, idx); err != nil {
			return err
		}
	}

	logger.Info("sync complete")

	return nil
}

// syncIdentity reconciles the single-valued identity targets. Each is an
// N=1 list at position 0 when the record carries the value, and an empty
// list (pruning any stale record) when it does not.
func (o *Orchestrator) syncIdentity(ctx context.Context, scope Scope, mapping *config.Mapping, record *doctree.Node, logger *slog.Logger) error {
	targets := []struct {
		field string
		path  string
	}{
		{mapping.ORCID, orcid.PathIdentifierURI},
		{mapping.GivenName, orcid.PathGivenNames},
		{mapping.FamilyName, orcid.PathFamilyName},
	}

	for _, t := range targets {
		if t.field == "" {
			continue
		}

		var values []Value
		if s, ok := record.MustGet(t.path).Str(); ok {
			values = []Value{TextValue(s)}
		} else {
			logger.Debug("identity value absent in record", slog.String("path", t.path))
		}

		if err := o.reconciler.Reconcile(ctx, scope, t.field, values); err != nil {
			return err
		}
	}

	return nil
}

// syncGrouped reconciles the grouped-variant targets: the flat role list
// (cross-referenced to each role's organization) and the distinct
// organization list (cross-referenced to its comma-joined roles).
func (o *Orchestrator) syncGrouped(ctx context.Context, scope Scope, mapping *config.Mapping, idx *AffiliationIndex) error {
	if mapping.Role != "" {
		values := make([]Value, len(idx.Roles))
		for i, r := range idx.Roles {
			values[i] = Value{Text: r.Title, XRef: r.Organization, Present: true}
		}

		if err := o.reconciler.Reconcile(ctx, scope, mapping.Role, values); err != nil {
			return err
		}
	}

	if mapping.Affiliation != "" {
		values := make([]Value, len(idx.Organizations))
		for i, org := range idx.Organizations {
			values[i] = Value{
				Text:    org,
				XRef:    strings.Join(idx.RolesByOrg[org], ", "),
				Present: true,
			}
		}

		if err := o.reconciler.Reconcile(ctx, scope, mapping.Affiliation, values); err != nil {
			return err
		}
	}

	return nil
}

// syncEmployments reconciles the per-employment variant: three parallel
// fields sharing employment positions. Absent members skip their write but
// every field's delete pass runs against the full employment count, so the
// three fields can never drift apart positionally.
func (o *Orchestrator) syncEmployments(ctx context.Context, scope Scope, mapping *config.Mapping, idx *AffiliationIndex) error {
	if !mapping.HasEmployment() {
		return nil
	}

	n := len(idx.Employments)

	roles := make([]Value, n)
	orgs := make([]Value, n)
	ids := make([]Value, n)

	for i, e := range idx.Employments {
		roles[i] = Value{Text: e.Role, Present: e.Role != ""}
		orgs[i] = Value{Text: e.OrgName, Present: e.OrgName != ""}
		ids[i] = Value{Text: e.OrgID, Present: e.OrgID != ""}
	}

	fields := []struct {
		field  string
		values []Value
	}{
		{mapping.Employment.Role, roles},
		{mapping.Employment.Affiliation, orgs},
		{mapping.Employment.RORID, ids},
	}

	for _, f := range fields {
		if err := o.reconciler.Reconcile(ctx, scope, f.field, f.values); err != nil {
			return err
		}
	}

	return nil
}
