package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"paroles/playback"

	"github.com/spf13/cobra"
)

var cuesAt float64

var cuesCmd = &cobra.Command{
	Use:   "cues <id>",
	Short: "Affiche les répliques d'une chanson",
	Long: `Charge une chanson depuis le backend, analyse ses sous-titres et
affiche la séquence de répliques. Les répliques qui commencent au point
de cut ou après sont marquées 🔒, ce sont celles que le jeu cache
jusqu'à la révélation.

Avec --at la commande affiche aussi l'état d'affichage à cette position
d'horloge : phase et réplique visible.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, _, manager := setup()

		loaded, err := manager.LoadSong(context.Background(), args[0])
		if err != nil {
			log.Fatalf("Chargement échoué: %v", err)
		}

		song := loaded.Song
		fmt.Printf("🎵 %s : %s (%s)\n", song.Artist, song.Title, song.ID)
		if song.CutPointSeconds != nil {
			fmt.Printf("   Cut à %s", formatSeconds(song.CutPointSeconds))
			if song.DurationSeconds != nil {
				fmt.Printf(", durée %s", formatSeconds(song.DurationSeconds))
			}
			fmt.Println()
		}
		for _, w := range loaded.Warnings {
			fmt.Printf("   ⚠️  %s\n", w)
		}

		rows := make([][]string, 0, len(loaded.Cues))
		for i, c := range loaded.Cues {
			marker := ""
			if song.CutPointSeconds != nil && c.StartSeconds >= *song.CutPointSeconds {
				marker = "🔒"
			}
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				fmt.Sprintf("%.3f", c.StartSeconds),
				fmt.Sprintf("%.3f", c.EndSeconds),
				c.Text,
				marker,
			})
		}
		fmt.Println(renderTable(
			[]string{"#", "Début", "Fin", "Texte", "Cut"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
		))

		if cuesAt >= 0 {
			machine := playback.NewSynchronizer(song.ID, loaded.Cues, song.CutPointSeconds)
			u := machine.Advance(cuesAt)
			fmt.Printf("\nÉtat à %.1fs : phase=%s", cuesAt, u.Phase)
			if u.CueIndex >= 0 {
				fmt.Printf(", réplique %d : %q", u.CueIndex+1, u.Caption)
			} else {
				fmt.Print(", aucune réplique visible")
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(cuesCmd)

	cuesCmd.Flags().Float64Var(&cuesAt, "at", -1, "prévisualiser l'état d'affichage à cette position (secondes)")

	cuesCmd.Example = `  # Lister les répliques
  paroles cues les-rois-du-monde

  # Prévisualiser l'affichage 45 secondes après le début
  paroles cues les-rois-du-monde --at 45`
}
