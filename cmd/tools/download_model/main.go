// download-model pre-fetches a Whisper model so the bot does not pay the
// download cost on its first transcription.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/talkscribe/talkscribe/internal/config"
	"github.com/talkscribe/talkscribe/internal/models"
)

func main() {
	var (
		variant = flag.String("variant", config.DefaultModel, "model variant to fetch (base, small, medium)")
		dataDir = flag.String("data-dir", config.DefaultDataDir, "bot data directory; the model lands under <data-dir>/models")
	)
	flag.Parse()

	if strings.TrimSpace(*dataDir) == "" {
		fmt.Fprintln(os.Stderr, "download-model: --data-dir must not be empty")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	manager, err := models.NewManager(filepath.Clean(*dataDir), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "download-model: init manager: %v\n", err)
		os.Exit(1)
	}

	manifest, err := models.DefaultManifest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "download-model: load manifest: %v\n", err)
		os.Exit(1)
	}

	path, err := manager.EnsureVariant(ctx, *variant, models.EnsureOptions{
		Manifest: manifest,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "download-model: fetch variant %q: %v\n", *variant, err)
		os.Exit(1)
	}

	fmt.Printf("Whisper model %q ready at %s\n", *variant, path)
}
