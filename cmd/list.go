package cmd

import (
	"context"
	"fmt"
	"log"

	"paroles/model"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Liste les chansons du catalogue",
	Long: `Reconstruit le catalogue depuis le backend et l'affiche : une ligne par
chanson jouable, puis les dossiers exclus avec leur raison.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, backend, manager := setup()

		songs, warnings, err := manager.ListSongs(context.Background())
		if err != nil {
			log.Fatalf("Listing échoué: %v", err)
		}

		fmt.Printf("📚 Chansons (%s) :\n", backend.Name())
		if len(songs) == 0 {
			fmt.Println("  (vide)")
		} else {
			rows := make([][]string, 0, len(songs))
			for _, s := range songs {
				rows = append(rows, []string{
					s.ID,
					s.Title,
					s.Artist,
					s.Difficulty,
					formatSeconds(s.CutPointSeconds),
					formatSeconds(s.DurationSeconds),
					videoMark(s),
				})
			}
			fmt.Println(renderTable(
				[]string{"Id", "Titre", "Artiste", "Difficulté", "Cut", "Durée", "Vidéo"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
		}
		fmt.Printf("\nTotal : %d chanson(s)\n", len(songs))

		if len(warnings) > 0 {
			fmt.Printf("\n⚠️  %d dossier(s) exclu(s) :\n", len(warnings))
			for _, w := range warnings {
				fmt.Printf("  - %s\n", w)
			}
		}
	},
}

// formatSeconds renders an optional duration, "-" when unset.
func formatSeconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1fs", *v)
}

func videoMark(s model.Song) string {
	if s.HasVideo {
		return "🎬"
	}
	return "-"
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Example = `  # Afficher le catalogue du backend configuré
  paroles list`
}
