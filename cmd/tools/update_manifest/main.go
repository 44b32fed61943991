// update-manifest downloads every model named in the manifest and records its
// sha256 digest and size, so the bot can verify future downloads.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/talkscribe/talkscribe/internal/models"
)

func main() {
	manifestPath := flag.String("manifest", "internal/models/embedded_manifest.json", "manifest file to refresh in place")
	flag.Parse()

	file, err := os.Open(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "update-manifest: open manifest: %v\n", err)
		os.Exit(1)
	}
	manifest, err := models.LoadManifest(file)
	file.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "update-manifest: parse manifest: %v\n", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(manifest.Variants))
	for name := range manifest.Variants {
		names = append(names, name)
	}
	sort.Strings(names)

	client := &http.Client{Timeout: 10 * time.Minute}
	for _, name := range names {
		variant := manifest.Variants[name]
		if variant.URL == "" {
			fmt.Printf("%s: skipped, no download URL\n", name)
			continue
		}

		fmt.Printf("%s: fetching %s\n", name, variant.URL)
		resp, err := client.Get(variant.URL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: download failed: %v\n", name, err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "%s: unexpected status %s\n", name, resp.Status)
			resp.Body.Close()
			continue
		}

		hasher := sha256.New()
		written, err := io.Copy(hasher, resp.Body)
		resp.Body.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: read failed: %v\n", name, err)
			continue
		}

		variant.SHA256 = hex.EncodeToString(hasher.Sum(nil))
		variant.SizeBytes = written
		manifest.Variants[name] = variant
		fmt.Printf("%s: %d bytes, sha256 %s\n", name, written, variant.SHA256)
	}

	out, err := os.Create(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "update-manifest: write manifest: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(manifest); err != nil {
		fmt.Fprintf(os.Stderr, "update-manifest: encode manifest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Manifest refreshed: %s\n", *manifestPath)
}
