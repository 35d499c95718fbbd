package main

import (
	"fmt"
	"strings"

	"github.com/nijaru/swing-analysis/errors"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return fmt.Errorf("analysis history is disabled; set DB_PATH or database.path")
			}

			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.service.ListRecent(cmd.Context(), limit)
			if err != nil {
				return describeError(err)
			}

			if useJSON(cmd, jsonOutput) {
				return writeJSON(cmd, records)
			}
			renderHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of analyses to show (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the analyses as JSON")

	return cmd
}

// describeError flattens an application error and its field details into a
// single CLI message.
func describeError(err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok || len(appErr.Details) == 0 {
		return err
	}

	parts := make([]string, 0, len(appErr.Details))
	for _, d := range appErr.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return fmt.Errorf("%s: %s", appErr.Message, strings.Join(parts, "; "))
}
