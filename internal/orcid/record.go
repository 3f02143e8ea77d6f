package orcid

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tonimelisma/orcid-go/internal/doctree"
)

// recordSizeLimit caps how much of a record response is read. Full ORCID
// records for prolific researchers run to a few hundred KB; 8 MiB is far
// beyond anything the public API returns.
const recordSizeLimit = 8 << 20

// Well-known paths within an ORCID record.
const (
	PathIdentifierURI = "/orcid-identifier/uri"
	PathGivenNames    = "/person/name/given-names/value"
	PathFamilyName    = "/person/name/family-name/value"
)

// Record fetches the full public record for one ORCID iD and returns it as
// a document tree. The id is the bare iD ("0000-0002-1825-0097"), not a URI.
func (c *Client) Record(ctx context.Context, id string) (*doctree.Node, error) {
	resp, err := c.Get(ctx, "/"+id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, recordSizeLimit))
	if err != nil {
		return nil, fmt.Errorf("orcid: reading record %s: %w", id, err)
	}

	doc, err := doctree.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("orcid: record %s: %w", id, err)
	}

	c.logger.Debug("record fetched",
		slog.String("orcid", id),
		slog.Int("bytes", len(body)),
	)

	return doc, nil
}
