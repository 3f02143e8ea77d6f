package sync

import (
	"context"
	"log/slog"
	gosync "sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/orcid-go/internal/doctree"
	"github.com/tonimelisma/orcid-go/internal/ror"
)

// Paths within an ORCID record consumed by the aggregator.
const (
	pathAffiliationGroups = "/activities-summary/employments/affiliation-group"
	pathEndDate           = "/employment-summary/end-date"
	pathOrgName           = "/employment-summary/organization/name"
	pathRoleTitle         = "/employment-summary/role-title"
	pathDisambiguated     = "/employment-summary/organization/disambiguated-organization"
	keyDisambSource       = "disambiguation-source"
	keyDisambID           = "disambiguated-organization-identifier"
)

// resolveLimit bounds concurrent registry lookups per aggregation.
const resolveLimit = 4

// Aggregator turns an external record into the affiliation/role lists the
// reconciler projects onto local records. Only currently active employments
// (no end date) contribute.
type Aggregator struct {
	resolver OrgResolver
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator that consults the given resolver for
// canonical organization ids.
func NewAggregator(resolver OrgResolver, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{resolver: resolver, logger: logger}
}

// activeEntry is one currently active employment summary before resolution.
type activeEntry struct {
	orgName string // NFC-normalized; "" when absent
	role    string // "" when absent
	disamb  ror.Disambiguation
}

// Aggregate walks the record's employment affiliation groups, keeps active
// entries, resolves organization ids, and builds the AffiliationIndex.
// Distinct disambiguation entries are resolved concurrently (the resolver
// degrades to "no id" on its own failures, so aggregation itself cannot
// fail on registry trouble).
func (a *Aggregator) Aggregate(ctx context.Context, record *doctree.Node) *AffiliationIndex {
	entries := collectActive(record)
	resolved := a.resolveAll(ctx, entries)

	idx := &AffiliationIndex{
		RolesByOrg: make(map[string][]string),
	}

	for _, e := range entries {
		orgID := resolved[e.disamb]

		// Grouped variant: organizations in first-seen order, roles grouped
		// per organization. An absent organization name is still a valid
		// grouping key.
		if _, seen := idx.RolesByOrg[e.orgName]; !seen {
			idx.Organizations = append(idx.Organizations, e.orgName)
			idx.RolesByOrg[e.orgName] = nil
		}

		if e.role != "" {
			idx.RolesByOrg[e.orgName] = append(idx.RolesByOrg[e.orgName], e.role)
			idx.Roles = append(idx.Roles, RoleEntry{Title: e.role, Organization: e.orgName})
		}

		// Per-employment variant: one triple per active employment, in
		// document order. The organization name is only recorded alongside
		// a resolved canonical id; without one the name is not considered
		// reliable enough to persist.
		emp := Employment{Role: e.role, OrgID: orgID}
		if orgID != "" {
			emp.OrgName = e.orgName
		}

		idx.Employments = append(idx.Employments, emp)
	}

	a.logger.Debug("aggregation complete",
		slog.Int("active_employments", len(idx.Employments)),
		slog.Int("organizations", len(idx.Organizations)),
		slog.Int("roles", len(idx.Roles)),
	)

	return idx
}

// collectActive extracts the currently active employment entries from the
// record, in document order.
func collectActive(record *doctree.Node) []activeEntry {
	var entries []activeEntry

	for _, group := range record.MustGet(pathAffiliationGroups).Seq() {
		for _, summary := range group.Key("summaries").Seq() {
			// An end date means the employment has concluded.
			if !summary.MustGet(pathEndDate).IsAbsent() {
				continue
			}

			disambNode := summary.MustGet(pathDisambiguated)

			entries = append(entries, activeEntry{
				orgName: norm.NFC.String(summary.MustGet(pathOrgName).StrOr("")),
				role:    summary.MustGet(pathRoleTitle).StrOr(""),
				disamb: ror.Disambiguation{
					Source: disambNode.Key(keyDisambSource).StrOr(""),
					ID:     disambNode.Key(keyDisambID).StrOr(""),
				},
			})
		}
	}

	return entries
}

// resolveAll resolves every distinct disambiguation entry, at most
// resolveLimit lookups in flight. Unresolvable entries map to "".
func (a *Aggregator) resolveAll(ctx context.Context, entries []activeEntry) map[ror.Disambiguation]string {
	resolved := make(map[ror.Disambiguation]string)
	for _, e := range entries {
		if e.disamb.ID != "" {
			resolved[e.disamb] = ""
		}
	}

	// Snapshot the keys: goroutines write into the map while it would
	// otherwise still be iterated.
	distinct := make([]ror.Disambiguation, 0, len(resolved))
	for d := range resolved {
		distinct = append(distinct, d)
	}

	var mu gosync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveLimit)

	for _, d := range distinct {
		g.Go(func() error {
			id, ok := a.resolver.Resolve(gctx, d)
			if !ok {
				return nil
			}

			mu.Lock()
			resolved[d] = id
			mu.Unlock()

			return nil
		})
	}

	// No goroutine returns an error; Wait only synchronizes.
	_ = g.Wait()

	return resolved
}
