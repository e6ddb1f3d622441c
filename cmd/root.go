package cmd

import (
	"fmt"
	"log"
	"os"

	"paroles/catalog"
	"paroles/config"
	"paroles/logger"
	"paroles/storage"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "paroles",
	Short: "🎤 Gestion des chansons karaoké sur Cloudflare R2",
	Long: `Paroles gère le catalogue de chansons du jeu : pour chaque chanson une
vidéo, des sous-titres SRT et un config.json, rangés dans un dossier
local ou sur un bucket S3 compatible (Cloudflare R2). Les commandes
couvrent l'ajout, la liste, la suppression, l'inventaire du stockage et
la synchronisation d'une bibliothèque complète.

Le backend se choisit par l'environnement : R2_BUCKET_NAME présent =
cloud, absent = dossier local VIDEOS_DIR.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup wires what every subcommand needs: configuration, logging, the
// storage backend and the catalog manager on top of it.
func setup() (*config.Config, storage.Backend, catalog.Manager) {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration invalide: %v", err)
	}

	backend, err := storage.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Impossible d'initialiser le stockage: %v", err)
	}

	manager := catalog.NewManager(backend, catalog.Options{
		SyncWorkers:   cfg.SyncWorkers,
		UploadsPerSec: cfg.SyncUploadsPerSec,
	})
	return cfg, backend, manager
}
