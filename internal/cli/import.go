package cli

import (
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"maipocket-quiz/internal/config"
	"maipocket-quiz/internal/infra/postgres"
)

// NewImportCmd loads a YAML question bank into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var bank string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the YAML question bank into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if bank == "" {
				bank = cfg.Questions.Bank
			}
			entries, err := loadBank(bank)
			if err != nil {
				return err
			}
			if err := RunMigrations(cmd.Context(), cfg.Postgres.URL); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return errors.Wrap(err, "connect postgres")
			}
			defer pool.Close()

			if err := postgres.NewQuestionLoader(pool).Import(cmd.Context(), entries); err != nil {
				return err
			}
			log.Printf("imported %d questions", len(entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&bank, "bank", "", "question bank to import (defaults to questions.bank)")
	return cmd
}
