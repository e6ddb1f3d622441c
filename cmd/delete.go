package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Supprime une chanson du catalogue",
	Long: `Supprime tous les fichiers d'une chanson sur le backend. La suppression
est définitive, une confirmation est demandée sauf avec --yes.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, backend, manager := setup()
		id := args[0]
		ctx := context.Background()

		objects, err := backend.Assets(ctx, id)
		if err != nil {
			log.Fatalf("Lecture du backend échouée: %v", err)
		}
		if len(objects) == 0 {
			fmt.Printf("❌ '%s' introuvable.\n", id)
			return
		}

		fmt.Printf("🗑  Suppression de '%s' (%d fichiers)...\n", id, len(objects))
		if !deleteYes && !confirm() {
			fmt.Println("Annulé.")
			return
		}

		count, err := manager.DeleteSong(ctx, id)
		if err != nil {
			log.Fatalf("Suppression échouée: %v", err)
		}
		fmt.Printf("✅ '%s' supprimé (%d fichiers).\n", id, count)
	},
}

// confirm asks on stdin; oui, o, yes and y all pass.
func confirm() bool {
	fmt.Print("Confirmer ? (oui/non) : ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "oui", "o", "yes", "y":
		return true
	}
	return false
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "supprimer sans demander confirmation")

	deleteCmd.Example = `  # Supprimer avec confirmation
  paroles delete les-rois-du-monde

  # Supprimer sans confirmation
  paroles delete les-rois-du-monde -y`
}
