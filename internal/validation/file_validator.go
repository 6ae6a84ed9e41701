package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "marketswimmer/internal/errors"
)

// FileValidator checks workbook inputs and output locations before a run
// starts, so path problems surface as clear errors instead of mid-pipeline
// failures.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateWorkbookFile checks that path names a readable statement workbook.
// Excel lock files ("~$...") are rejected: they appear while the workbook is
// open in Excel and do not contain statement data.
func (v *FileValidator) ValidateWorkbookFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("workbook does not exist",
			slog.String("file", path))
		return apperrors.NewValidationError(fmt.Sprintf("workbook %s does not exist", path))
	}
	if err != nil {
		v.logger.Error("failed to stat workbook",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat workbook %s: %w", path, err)
	}
	if info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory, not a workbook", path))
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xls" {
		v.logger.Error("file is not an Excel workbook",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewValidationError(
			fmt.Sprintf("file %s is not an Excel workbook (extension: %s)", path, ext))
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewValidationError(
			fmt.Sprintf("file %s is a temporary Excel lock file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("workbook is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewValidationError(fmt.Sprintf("workbook %s is not readable", path))
	}
	file.Close()

	v.logger.Debug("workbook validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateInputDirectory checks that the downloads directory exists and
// reports how many workbooks it holds. An empty directory is not an error,
// just nothing to analyze yet.
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("downloads directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewValidationError(fmt.Sprintf("downloads directory %s does not exist", dir))
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	count, err := v.CountWorkbooks(dir)
	if err != nil {
		return err
	}
	if count == 0 {
		v.logger.Warn("no workbooks found in downloads directory",
			slog.String("directory", dir))
		return nil
	}

	v.logger.Info("downloads directory validated",
		slog.String("directory", dir),
		slog.Int("workbooks_found", count))
	return nil
}

// ValidateOutputDirectory ensures the results directory exists and is
// writable before any stage produces output.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewValidationError(fmt.Sprintf("output directory %s is not writable", dir))
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

// CountWorkbooks counts workbook files in a directory, ignoring Excel lock
// files and subdirectories.
func (v *FileValidator) CountWorkbooks(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return 0, fmt.Errorf("failed to count workbooks: %w", err)
	}

	count := 0
	for _, match := range matches {
		if strings.HasPrefix(filepath.Base(match), "~$") {
			continue
		}
		info, err := os.Stat(match)
		if err == nil && !info.IsDir() {
			count++
		}
	}
	return count, nil
}
