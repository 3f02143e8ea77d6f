// Package sync implements the reconciliation engine that projects an
// external researcher record (ORCID) onto locally persisted, positionally
// keyed value records. The host triggers it synchronously on every write to
// a tracked field; the engine fetches the external record, aggregates
// active affiliations, and upserts/deletes local records so that the set of
// live positions for each target field exactly matches the freshly computed
// list. Repeated syncs with an unchanged record are no-ops by construction:
// records are matched by position, never by content.
package sync

import "fmt"

// Scope identifies the group of fields a record belongs to: the project,
// the question-set prefix within it, and the set index of the entity (here:
// the project partner the triggering field was written for).
type Scope struct {
	Project   string
	SetPrefix string
	SetIndex  int
}

// String renders the scope for log lines.
func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%d", s.Project, s.SetPrefix, s.SetIndex)
}

// Value is one element of a freshly computed list for a target field.
// XRef carries the paired cross-reference string for affiliation and role
// records (the organization for a role, the joined role list for an
// affiliation) so the next sync can re-associate them. Present=false marks
// a position that must not be written but still counts toward the list
// length for the delete pass (per-employment variant).
type Value struct {
	Text    string
	XRef    string
	Present bool
}

// TextValue returns a present Value with the given text and no cross-reference.
func TextValue(text string) Value {
	return Value{Text: text, Present: true}
}

// WriteEvent describes the host write that triggered a sync: which field
// was written, in which scope, and the external identifier it carries.
type WriteEvent struct {
	Project    string
	Field      string
	SetPrefix  string
	SetIndex   int
	ExternalID string
}

// Scope returns the scope the triggering write belongs to.
func (ev WriteEvent) Scope() Scope {
	return Scope{Project: ev.Project, SetPrefix: ev.SetPrefix, SetIndex: ev.SetIndex}
}

// Employment is one currently active employment from the external record,
// in document order. Empty strings mean absent: the per-employment variant
// records a position for every active employment even when the role, the
// resolvable organization name, or the canonical id is missing, so that
// position counts stay aligned across the three parallel target fields.
type Employment struct {
	Role    string
	OrgName string
	OrgID   string
}

// RoleEntry is one role in the flat, document-ordered role list, paired
// with the organization it belongs to.
type RoleEntry struct {
	Title        string
	Organization string
}

// AffiliationIndex is the aggregation output for one external record:
// organizations in first-seen order, their roles, the flat role list, and
// the raw per-employment triples.
//
// Invariant: every entry in Roles appears in exactly one organization's
// RolesByOrg list, and Organizations preserves first-seen order so
// positions stay stable across repeated syncs of an unchanged record.
type AffiliationIndex struct {
	Organizations []string
	RolesByOrg    map[string][]string
	Roles         []RoleEntry
	Employments   []Employment
}
