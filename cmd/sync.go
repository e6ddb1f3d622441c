package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"paroles/catalog"

	"github.com/spf13/cobra"
)

var (
	syncWatch    bool
	syncDebounce time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync [dossier]",
	Short: "Synchronise une bibliothèque locale vers le backend",
	Long: `Parcourt les sous-dossiers d'une bibliothèque locale et envoie les
chansons nouvelles ou modifiées vers le backend. Les chansons présentes
uniquement côté backend sont signalées, jamais supprimées. Sans
argument le dossier est VIDEOS_DIR.

Avec --watch la commande reste active et resynchronise après chaque
période de calme suivant un changement du dossier.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, backend, manager := setup()

		root := cfg.VideosDir
		if len(args) == 1 {
			root = args[0]
		}

		fmt.Printf("📤 Sync de '%s' vers %s...\n\n", root, backend.Name())
		report, err := manager.SyncDirectory(context.Background(), root)
		if err != nil {
			log.Fatalf("Sync échoué: %v", err)
		}
		printSyncReport(report)

		if !syncWatch {
			if !report.InSync() {
				os.Exit(1)
			}
			return
		}

		watcher, err := catalog.NewWatcher(manager, root, syncDebounce)
		if err != nil {
			log.Fatalf("Surveillance impossible: %v", err)
		}
		defer watcher.Close()
		watcher.OnReport = printSyncReport

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("\n👀 Surveillance du dossier, Ctrl+C pour arrêter.")
		if err := watcher.Run(ctx); err != nil {
			log.Fatalf("Surveillance interrompue: %v", err)
		}
		fmt.Println("Arrêt de la surveillance.")
	},
}

// printSyncReport prints one sync run, grouped by outcome.
func printSyncReport(r *catalog.SyncReport) {
	for _, id := range r.Uploaded {
		fmt.Printf("  📤 %s ✅\n", id)
	}
	for _, id := range r.Diff.Unchanged {
		fmt.Printf("  ✓ %s (à jour)\n", id)
	}
	for _, w := range r.Skipped {
		fmt.Printf("  ⏭  %s (%s)\n", w.ID, w.Reason)
	}
	for _, f := range r.Failed {
		fmt.Printf("  ❌ %s : %v\n", f.ID, f.Err)
	}
	if len(r.Diff.RemoteOnly) > 0 {
		fmt.Printf("  ☁️  Uniquement sur %s : %s\n", r.Backend, strings.Join(r.Diff.RemoteOnly, ", "))
	}

	if r.InSync() {
		fmt.Println("\n✨ Sync terminé !")
	} else {
		fmt.Printf("\n⚠️  Sync terminé avec %d échec(s).\n", len(r.Failed))
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false, "resynchroniser en continu quand le dossier change")
	syncCmd.Flags().DurationVar(&syncDebounce, "debounce", 0, "période de calme avant resync en mode --watch (défaut 2s)")

	syncCmd.Example = `  # Synchroniser la bibliothèque VIDEOS_DIR
  paroles sync

  # Synchroniser un autre dossier puis surveiller les changements
  paroles sync ./ma-bibliotheque -w`
}
