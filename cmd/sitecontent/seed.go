package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitecontent/internal/content"
	"sitecontent/internal/content/defaults"
	"sitecontent/internal/content/domain/repository"
	"sitecontent/internal/shared/errors"
	"sitecontent/internal/shared/logger"
)

var (
	seedForce    bool
	seedMapFile  string
	seedDocument string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the bundled defaults into the configured store",
	Long: `Write the bundled site content into the configured document store.

An existing document is left alone unless --force is given. Image fields can
be rewritten to CDN URLs with --cloudinary-map, a YAML or JSON file mapping
file names to URLs.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "Overwrite an existing document")
	seedCmd.Flags().StringVar(&seedMapFile, "cloudinary-map", "", "File name to CDN URL map (YAML or JSON)")
	seedCmd.Flags().StringVar(&seedDocument, "path", "", "Document path (default: CONTENT_DOCUMENT_PATH)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	path := seedDocument
	if path == "" {
		path = cfg.Content.DocumentPath
	}
	mapFile := seedMapFile
	if mapFile == "" {
		mapFile = cfg.Content.CloudinaryMapFile
	}
	var cloudMap defaults.CloudinaryMap
	if mapFile != "" {
		if cloudMap, err = defaults.LoadCloudinaryMap(mapFile); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	store, err := content.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	return seedStore(ctx, cmd.OutOrStdout(), store, path, cloudMap, seedForce, log)
}

// seedStore writes the seed payload to path unless a document exists and
// force is false.
func seedStore(ctx context.Context, out io.Writer, store repository.DocumentStore, path string, cloudMap defaults.CloudinaryMap, force bool, log logger.Logger) error {
	_, err := store.Get(ctx, path)
	switch {
	case err == nil && !force:
		fmt.Fprintf(out, "document %s already exists, use --force to overwrite\n", path)
		return nil
	case err != nil && !errors.IsDocumentMissing(err):
		return err
	}
	if err := store.Set(ctx, path, defaults.SeedPayload(cloudMap)); err != nil {
		return err
	}
	log.Info("seeded content document", zap.String("path", path), zap.Int("mapped_images", len(cloudMap)))
	fmt.Fprintf(out, "seeded %s\n", path)
	return nil
}
