package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/orcid-go/internal/ror"
)

// newResolveCmd builds the resolve command: map a disambiguation entry
// ("GRID:grid.4372.2", "FUNDREF:501100001659") to its canonical ROR id.
func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve SOURCE:ID",
		Short: "Resolve an organization identifier against the ROR registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, id, ok := strings.Cut(args[0], ":")
			if !ok {
				return fmt.Errorf("argument must be SOURCE:ID, got %q", args[0])
			}

			resolver := newRORResolver(loadedCfg)

			rorID, found := resolver.Resolve(cmd.Context(), ror.Disambiguation{Source: source, ID: id})
			if !found {
				return fmt.Errorf("no canonical id for %s", args[0])
			}

			fmt.Println(rorID)

			return nil
		},
	}
}
