package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"marketswimmer/internal/config"
	apperrors "marketswimmer/internal/errors"
)

// DiscoverWorkbook locates the most recent downloaded workbook for a
// ticker in dir. Export filenames embed the ticker (for example
// "financials_export_nwn_...xlsx"); when several match, the newest by
// modification time wins. Temporary Excel lock files are ignored.
func DiscoverWorkbook(dir, ticker string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", apperrors.NewParseError("failed to read downloads directory", err).
			WithContext("dir", dir)
	}

	needle := strings.ToLower(strings.ReplaceAll(config.CleanTicker(ticker), "_", "."))
	cleaned := strings.ToLower(config.CleanTicker(ticker))

	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".xlsx") || strings.HasPrefix(name, "~$") {
			continue
		}
		lower := strings.ToLower(name)
		if !strings.Contains(lower, cleaned) && !strings.Contains(lower, needle) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = name
			newestTime = info.ModTime()
		}
	}

	if newest == "" {
		return "", apperrors.NewParseError(
			fmt.Sprintf("no workbook found for ticker %s", ticker), nil).
			WithContext("dir", dir)
	}

	return filepath.Join(dir, newest), nil
}
