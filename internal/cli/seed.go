package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trivia-session-service/internal/infra/memory"
	"trivia-session-service/internal/infra/postgres"
)

// NewSeedCmd loads the sample question bank and users into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with sample questions and users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			questions := memory.SampleQuestions()
			if err := postgres.Seed(cmd.Context(), db, questions, memory.SampleUserIDs); err != nil {
				return err
			}
			log.Info().Int("questions", len(questions)).Int("users", len(memory.SampleUserIDs)).Msg("seed complete")
			return nil
		},
	}
}
