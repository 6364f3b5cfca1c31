// grbwatch/scraper/downloader.go
package scraper

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DownloadFile downloads url to localSavePath. The body is written to a
// temporary file next to localSavePath and renamed once complete, so an
// interrupted download never leaves a truncated file behind.
func DownloadFile(url string, localSavePath string) error {
	log.Infof("Attempting to download file from URL: %s to local path: %s", url, localSavePath)

	// Dust maps are ~64MB each.
	client := http.Client{
		Timeout: 10 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make GET request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file from %s: received status code %d", url, resp.StatusCode)
	}

	dir := filepath.Dir(localSavePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	outFile, err := os.CreateTemp(dir, "."+filepath.Base(localSavePath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create local file for %s: %w", localSavePath, err)
	}
	tmpName := outFile.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(outFile, resp.Body)
	if err != nil {
		outFile.Close()
		return fmt.Errorf("failed to copy downloaded content to %s: %w", localSavePath, err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, localSavePath); err != nil {
		return fmt.Errorf("failed to move download into place at %s: %w", localSavePath, err)
	}

	log.Infof("Successfully downloaded %s to %s (%d bytes)", url, localSavePath, n)
	return nil
}
