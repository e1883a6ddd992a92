package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javajoker/scentdb-backend/internal/models"
	"github.com/javajoker/scentdb-backend/internal/services"
)

// seedReliability is assigned to manual_seed the first time it is seen.
const seedReliability = 10

var seedSource = models.SourceDescriptor{Name: "manual_seed", BaseURL: "https://example.com"}

func seedRecord() *models.CandidateRecord {
	year := 2015
	gender := models.GenderMale
	concentration := "EDT"
	return &models.CandidateRecord{
		URL:           "https://example.com/perfume/seed",
		Brand:         "Dior",
		Name:          "Sauvage",
		Year:          &year,
		Gender:        &gender,
		Concentration: &concentration,
		Perfumers:     []string{"François Demachy"},
		Notes: []models.CandidateNote{
			{Name: "Bergamot", Position: models.NotePositionTop},
			{Name: "Pepper", Position: models.NotePositionTop},
			{Name: "Ambroxan", Position: models.NotePositionBase},
		},
	}
}

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reconcile the built-in Dior Sauvage record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(a.autoMigrate)
			if err != nil {
				return err
			}
			defer a.closeDB()

			cfg := a.cfg.Reconcile
			cfg.DefaultReliability = seedReliability
			id, err := services.NewReconcileService(db, cfg).Reconcile(cmd.Context(), seedRecord(), seedSource)
			if err != nil {
				return fmt.Errorf("seeding: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded perfume %s\n", id)
			return nil
		},
	}
}
