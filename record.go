package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/orcid-go/internal/orcid"
	"github.com/tonimelisma/orcid-go/internal/sync"
)

// newRecordCmd builds the record command: fetch a public ORCID record and
// print the identity and active affiliations the engine would sync.
func newRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record ORCID-ID",
		Short: "Fetch and display an ORCID record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, args[0])
		},
	}
}

func runRecord(cmd *cobra.Command, orcidID string) error {
	ctx := cmd.Context()

	client := newORCIDClient(ctx, loadedCfg)

	record, err := client.Record(ctx, orcidID)
	if err != nil {
		return err
	}

	printKV("ORCID", record.MustGet(orcid.PathIdentifierURI).StrOr(""))
	printKV("Given name", record.MustGet(orcid.PathGivenNames).StrOr(""))
	printKV("Family name", record.MustGet(orcid.PathFamilyName).StrOr(""))

	agg := sync.NewAggregator(newRORResolver(loadedCfg), logger)
	idx := agg.Aggregate(ctx, record)

	if len(idx.Organizations) > 0 {
		fmt.Println()
	}

	for _, org := range idx.Organizations {
		name := org
		if name == "" {
			name = "(unnamed organization)"
		}

		printKV("Affiliation", name)
		printKV("  Roles", strings.Join(idx.RolesByOrg[org], ", "))
	}

	return nil
}
