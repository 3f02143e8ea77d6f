// Package ror resolves organization disambiguation entries against the ROR
// registry (the canonical organization-identity source). Entries already
// sourced from ROR pass through; entries from configured alternate
// registries (GRID, FUNDREF) are resolved with an exact-match query.
//
// The resolver never returns an error: every failure mode — malformed
// entry, unknown source, network error, undecodable response, ambiguous
// match — degrades to "no canonical id" so a registry outage cannot break
// the sync that consulted it.
package ror

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// SourceROR is the disambiguation-source tag of the canonical registry
// itself. Identifiers with this tag are already canonical.
const SourceROR = "ROR"

// DefaultBaseURL is the public ROR API endpoint.
const DefaultBaseURL = "https://api.ror.org/v1"

// DefaultAlternateSources are the registries resolved via lookup when no
// explicit set is configured.
var DefaultAlternateSources = []string{"GRID", "FUNDREF"}

// Disambiguation is one disambiguated-organization entry from an external
// document: the registry it came from and the identifier within it.
type Disambiguation struct {
	Source string
	ID     string
}

// Resolver maps Disambiguation entries to canonical ROR identifiers.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	alternates map[string]bool
	logger     *slog.Logger
}

// NewResolver creates a Resolver. baseURL is typically DefaultBaseURL; a
// trailing slash is trimmed. alternates lists the source tags resolved via
// lookup; nil uses DefaultAlternateSources.
func NewResolver(baseURL string, httpClient *http.Client, headers map[string]string, alternates []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if alternates == nil {
		alternates = DefaultAlternateSources
	}

	alt := make(map[string]bool, len(alternates))
	for _, s := range alternates {
		alt[s] = true
	}

	return &Resolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		headers:    headers,
		alternates: alt,
		logger:     logger,
	}
}

// lookupResponse is the subset of the ROR query response we consume.
type lookupResponse struct {
	NumberOfResults int `json:"number_of_results"`
	Items           []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// Resolve returns the canonical ROR identifier for a disambiguation entry.
// The second return is false when no canonical id could be determined.
func (r *Resolver) Resolve(ctx context.Context, d Disambiguation) (string, bool) {
	if d.ID == "" {
		return "", false
	}

	if d.Source == SourceROR {
		return d.ID, true
	}

	if !r.alternates[d.Source] {
		r.logger.Debug("unrecognized disambiguation source",
			slog.String("source", d.Source),
			slog.String("id", d.ID),
		)

		return "", false
	}

	return r.lookup(ctx, d)
}

// lookup issues a single exact-match query against the registry. Exactly
// one result resolves; zero or multiple results are ambiguous and resolve
// to nothing.
func (r *Resolver) lookup(ctx context.Context, d Disambiguation) (string, bool) {
	// The quoted query requests exact matching on the alternate identifier.
	lookupURL := fmt.Sprintf("%s/organizations?query=%s", r.baseURL, url.QueryEscape(`"`+d.ID+`"`))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", false
	}

	req.Header.Set("Accept", "application/json")

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("registry lookup failed",
			slog.String("source", d.Source),
			slog.String("id", d.ID),
			slog.String("error", err.Error()),
		)

		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("registry lookup returned non-OK status",
			slog.String("id", d.ID),
			slog.Int("status", resp.StatusCode),
		)

		return "", false
	}

	var parsed lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		r.logger.Warn("registry lookup response undecodable",
			slog.String("id", d.ID),
			slog.String("error", err.Error()),
		)

		return "", false
	}

	if parsed.NumberOfResults != 1 || len(parsed.Items) != 1 {
		r.logger.Debug("registry lookup ambiguous",
			slog.String("id", d.ID),
			slog.Int("results", parsed.NumberOfResults),
		)

		return "", false
	}

	return parsed.Items[0].ID, true
}
