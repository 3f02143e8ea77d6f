package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/orcid-go/internal/store"
	"github.com/tonimelisma/orcid-go/internal/sync"
)

// Flags for the sync command.
var (
	flagProject   string
	flagSetPrefix string
	flagSetIndex  int
	flagField     string
	flagBulkLoad  bool
)

// newSyncCmd builds the sync command: a one-shot invocation of the engine,
// equivalent to the host writing the trigger field with the given ORCID iD.
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync ORCID-ID",
		Short: "Sync one ORCID record into the local value store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&flagProject, "project", "p", "", "project the synced values belong to (required)")
	cmd.Flags().StringVar(&flagSetPrefix, "set-prefix", "", "question-set prefix within the project")
	cmd.Flags().IntVar(&flagSetIndex, "set-index", 0, "set index of the partner within the project")
	cmd.Flags().StringVar(&flagField, "field", "", "trigger field URI (defaults to the sole configured mapping)")
	cmd.Flags().BoolVar(&flagBulkLoad, "bulk-load", false, "mark the write as a bulk load (sync is skipped)")
	cmd.MarkFlagRequired("project")

	return cmd
}

func runSync(cmd *cobra.Command, orcidID string) error {
	field := flagField
	if field == "" {
		if len(loadedCfg.Mappings) != 1 {
			return fmt.Errorf("--field is required when %d mappings are configured", len(loadedCfg.Mappings))
		}

		field = loadedCfg.Mappings[0].Trigger
	}

	st, err := store.New(loadedCfg.Store.Path, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()

	orch := sync.NewOrchestrator(loadedCfg,
		newORCIDClient(ctx, loadedCfg), newRORResolver(loadedCfg), st, logger)

	ev := sync.WriteEvent{
		Project:    flagProject,
		Field:      field,
		SetPrefix:  flagSetPrefix,
		SetIndex:   flagSetIndex,
		ExternalID: orcidID,
	}

	if err := orch.HandleWrite(ctx, ev, flagBulkLoad); err != nil {
		return err
	}

	statusf("synced %s into project %s\n", orcidID, flagProject)

	return nil
}
