package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// downloadAudio fetches the Telegram file into a temporary file and returns
// its path. The caller removes the file when done. The original extension is
// preserved because the decoder picks its path by extension.
func (b *Bot) downloadAudio(ctx context.Context, fileID string) (string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("bot: resolve file %s: %w", fileID, err)
	}

	ext := path.Ext(file.FilePath)
	if ext == "" {
		ext = ".oga"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return "", fmt.Errorf("bot: build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("bot: download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bot: download file: unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "talkscribe-*"+ext)
	if err != nil {
		return "", fmt.Errorf("bot: create temp file: %w", err)
	}

	n, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("bot: write temp file: %w", err)
	}
	if n == 0 {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("bot: downloaded file %s is empty", fileID)
	}
	return tmp.Name(), nil
}
