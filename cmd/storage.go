package cmd

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var storagePrefix string

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inventaire brut du backend de stockage",
	Long: `Affiche le contenu du backend fichier par fichier : taille, date de
dernière modification et type de chaque objet, puis les totaux. Utile
pour vérifier ce qui occupe le bucket sans passer par le catalogue.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, backend, _ := setup()

		snap, err := backend.Snapshot(context.Background())
		if err != nil {
			log.Fatalf("Lecture du backend échouée: %v", err)
		}

		ids := make([]string, 0, len(snap))
		for id := range snap {
			if storagePrefix != "" && !strings.HasPrefix(id, storagePrefix) {
				continue
			}
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Printf("📦 Stockage %s :\n", backend.Name())
		if len(ids) == 0 {
			fmt.Println("  (vide)")
			return
		}

		var rows [][]string
		var files int
		var totalSize int64
		for _, id := range ids {
			for _, obj := range snap[id] {
				rows = append(rows, []string{
					id,
					obj.Key,
					formatSize(obj.Size),
					obj.LastModified.Format("2006-01-02 15:04"),
					obj.ContentType,
				})
				files++
				totalSize += obj.Size
			}
		}
		fmt.Println(renderTable(
			[]string{"Id", "Fichier", "Taille", "Modifié", "Type"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
		))
		fmt.Printf("\nTotal : %d chanson(s), %d fichier(s), %s\n", len(ids), files, formatSize(totalSize))
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)

	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "", "filtrer les chansons dont l'id commence par ce préfixe")

	storageCmd.Example = `  # Inventaire complet
  paroles storage

  # Seulement les ids commençant par "les-"
  paroles storage -p les-`
}
