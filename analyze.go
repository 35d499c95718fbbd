package main

import (
	"github.com/nijaru/swing-analysis/models"
	"github.com/spf13/cobra"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		perspective    string
		playerHeightCM float64
		clubLengthCM   float64
		jsonOutput     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <video-url>",
		Short: "Analyze a swing video without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			input := models.VideoInput{VideoURL: args[0]}
			flags := cmd.Flags()
			if flags.Changed("perspective") {
				input.Perspective = &perspective
			}
			if flags.Changed("player-height-cm") {
				input.PlayerHeightCM = &playerHeightCM
			}
			if flags.Changed("club-length-cm") {
				input.ClubLengthCM = &clubLengthCM
			}

			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.validator.ValidateInput(input); err != nil {
				return describeError(err)
			}

			record, err := a.service.Analyze(cmd.Context(), input)
			if err != nil {
				return describeError(err)
			}

			if useJSON(cmd, jsonOutput) {
				return writeJSON(cmd, record.Response)
			}
			renderAnalysis(cmd.OutOrStdout(), record)
			return nil
		},
	}

	cmd.Flags().StringVar(&perspective, "perspective", "", `Camera perspective, e.g. "down-the-line" or "face-on"`)
	cmd.Flags().Float64Var(&playerHeightCM, "player-height-cm", 0, "Player height in centimeters")
	cmd.Flags().Float64Var(&clubLengthCM, "club-length-cm", 0, "Club length in centimeters")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the analysis as JSON")

	return cmd
}
