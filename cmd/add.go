package cmd

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"
)

var addID string

var addCmd = &cobra.Command{
	Use:   "add <dossier>",
	Short: "Ajoute une chanson au catalogue",
	Long: `Valide un dossier local (sous-titres .srt obligatoires, vidéo et
config.json facultatifs) puis l'envoie vers le backend sous sa forme
canonique : video.<ext>, subtitles.srt, config.json. Sans config.json un
fichier par défaut est généré, point de cut à la moitié des paroles.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, backend, manager := setup()
		source := args[0]

		fmt.Printf("📤 Upload de '%s' vers %s...\n", filepath.Base(source), backend.Name())
		song, err := manager.AddSong(context.Background(), source, addID)
		if err != nil {
			log.Fatalf("Upload échoué: %v", err)
		}

		fmt.Printf("✨ '%s' uploadé avec succès !\n", song.Title)
		fmt.Printf("   Id      : %s\n", song.ID)
		fmt.Printf("   Artiste : %s\n", song.Artist)
		if song.HasVideo {
			fmt.Printf("🔗 URL vidéo : %s\n", song.VideoRef)
		} else {
			fmt.Println("🎵 Paroles seules, aucune vidéo dans le dossier.")
		}
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVarP(&addID, "id", "i", "", "identifiant de la chanson (défaut: nom du dossier, en slug)")

	addCmd.Example = `  # Ajouter une chanson, l'id dérive du nom du dossier
  paroles add "./brouillons/Les Rois Du Monde"

  # Forcer l'identifiant
  paroles add ./brouillons/rois-du-monde -i les-rois-du-monde`
}
