package cli

import (
	"fmt"
	"os"

	"github.com/google/logger"
	"github.com/spf13/cobra"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/config"
	"locus-quiz-service/internal/domain"
)

// NewImportCmd stores a quiz JSON file as a draft owned by --owner.
func NewImportCmd(configPath *string) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import a quiz JSON file as a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				return fmt.Errorf("--owner is required")
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			quiz, err := app.NewQuizService(b.quizzes, b.results, b.cache).Import(cmd.Context(), domain.User{ID: owner}, raw)
			if err != nil {
				return err
			}
			logger.Infof("imported %q as %s (%d questions)", quiz.Title, quiz.ID, len(quiz.Questions))
			fmt.Fprintln(cmd.OutOrStdout(), quiz.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "user ID that will own the quiz")
	return cmd
}
