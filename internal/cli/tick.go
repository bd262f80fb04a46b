package cli

import (
	"fmt"

	"github.com/google/logger"
	"github.com/spf13/cobra"
	"locus-quiz-service/internal/config"
)

// NewTickCmd runs a single scheduler pass, for cron-driven deployments.
func NewTickCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Start due live quizzes and complete elapsed ones, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			report, err := newLiveService(b).Tick(cmd.Context())
			if err != nil {
				return err
			}
			logger.Infof("tick: started=%v completed=%v failed=%d", report.Started, report.Completed, report.Failed)
			fmt.Fprintf(cmd.OutOrStdout(), "started=%d completed=%d failed=%d\n", len(report.Started), len(report.Completed), report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d live quizzes failed to advance", report.Failed)
			}
			return nil
		},
	}
}
