package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations: where downloaded
// workbooks are discovered and where analysis results are written.
type Paths struct {
	BaseDir      string
	DownloadsDir string
	ResultsDir   string
	LogsDir      string
}

// NewPaths builds the path set from configuration. An empty BaseDir means
// paths are resolved relative to the current working directory.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		base = wd
	}

	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}

	return &Paths{
		BaseDir:      base,
		DownloadsDir: resolve(cfg.DownloadsDir),
		ResultsDir:   resolve(cfg.ResultsDir),
		LogsDir:      resolve(cfg.LogsDir),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.DownloadsDir, p.ResultsDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetLogPath returns the full path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// EarningsCSVPath returns the deterministic per-ticker, per-cadence path for
// the owner earnings time-series table. Re-running the same ticker produces
// the same, overwritable filename.
func (p *Paths) EarningsCSVPath(ticker, cadence string) string {
	name := fmt.Sprintf("owner_earnings_%s_%s.csv", CleanTicker(ticker), strings.ToLower(cadence))
	return filepath.Join(p.ResultsDir, name)
}

// FairValueReportPath returns the deterministic per-ticker path for the
// detailed fair value report.
func (p *Paths) FairValueReportPath(ticker string) string {
	name := fmt.Sprintf("fair_value_%s.txt", CleanTicker(ticker))
	return filepath.Join(p.ResultsDir, name)
}

// CleanTicker sanitizes a ticker symbol for use in filenames.
// "BRK.B" becomes "BRK_B".
func CleanTicker(ticker string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(ticker), ".", "_"))
}
