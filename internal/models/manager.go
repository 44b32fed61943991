// Package models resolves and downloads the ggml model files the inference
// engine loads.
package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Manager stores model files under <baseDir>/models.
type Manager struct {
	baseDir string
	log     *slog.Logger
	client  *http.Client
}

// EnsureOptions configures EnsureVariant.
type EnsureOptions struct {
	Manifest Manifest
	// Override points at an explicit model file and bypasses the manifest.
	Override string
}

// NewManager creates the models directory if needed.
func NewManager(baseDir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("models: base directory required")
	}
	m := &Manager{
		baseDir: filepath.Clean(baseDir),
		log:     logger.With("component", "models.manager"),
		client:  &http.Client{Timeout: 30 * time.Minute},
	}
	if err := os.MkdirAll(m.ModelsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("models: create models dir: %w", err)
	}
	return m, nil
}

// ModelsDir returns the directory model files are stored in.
func (m *Manager) ModelsDir() string {
	return filepath.Join(m.baseDir, "models")
}

// Resolve returns the local path for a variant, or the override when set.
// It does not download; the file must already exist.
func (m *Manager) Resolve(variant, override string) (string, error) {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		if _, err := os.Stat(trimmed); err != nil {
			return "", fmt.Errorf("models: override %s: %w", trimmed, err)
		}
		return trimmed, nil
	}

	manifest, err := DefaultManifest()
	if err != nil {
		return "", err
	}
	v, ok := manifest.Variants[variant]
	if !ok {
		return "", fmt.Errorf("models: unknown variant %q", variant)
	}
	path := filepath.Join(m.ModelsDir(), v.Filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("models: variant %q not downloaded: %w", variant, err)
	}
	return path, nil
}

// EnsureVariant returns the local path for a variant, downloading the model
// file first when it is missing.
func (m *Manager) EnsureVariant(ctx context.Context, variant string, opts EnsureOptions) (string, error) {
	if trimmed := strings.TrimSpace(opts.Override); trimmed != "" {
		if _, err := os.Stat(trimmed); err != nil {
			return "", fmt.Errorf("models: override %s: %w", trimmed, err)
		}
		return trimmed, nil
	}

	v, ok := opts.Manifest.Variants[variant]
	if !ok {
		return "", fmt.Errorf("models: unknown variant %q", variant)
	}

	dest := filepath.Join(m.ModelsDir(), v.Filename)
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	if strings.TrimSpace(v.URL) == "" {
		return "", fmt.Errorf("models: variant %q has no download URL", variant)
	}

	m.log.Info("downloading model",
		"variant", variant,
		"url", v.URL,
		"dest", dest,
	)
	if err := m.download(ctx, v, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (m *Manager) download(ctx context.Context, v Variant, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return fmt.Errorf("models: build request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("models: download %s: %w", v.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: download %s: unexpected status %s", v.Filename, resp.Status)
	}

	tmp, err := os.CreateTemp(m.ModelsDir(), v.Filename+".partial-*")
	if err != nil {
		return fmt.Errorf("models: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("models: write %s: %w", v.Filename, err)
	}

	if v.SHA256 != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(sum, v.SHA256) {
			return fmt.Errorf("models: checksum mismatch for %s: want %s, got %s", v.Filename, v.SHA256, sum)
		}
	}
	if v.SizeBytes > 0 && written != v.SizeBytes {
		return fmt.Errorf("models: size mismatch for %s: want %d bytes, got %d", v.Filename, v.SizeBytes, written)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("models: move %s into place: %w", v.Filename, err)
	}
	m.log.Info("model downloaded", "file", v.Filename, "bytes", written)
	return nil
}
