package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "marketswimmer/internal/errors"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestValidateWorkbookFile(t *testing.T) {
	dir := t.TempDir()
	v := NewFileValidator(nil)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid_xlsx", writeFile(t, dir, "financials_export_acme.xlsx"), false},
		{"valid_xls", writeFile(t, dir, "legacy.xls"), false},
		{"wrong_extension", writeFile(t, dir, "notes.txt"), true},
		{"lock_file", writeFile(t, dir, "~$financials_export_acme.xlsx"), true},
		{"missing", filepath.Join(dir, "absent.xlsx"), true},
		{"directory", dir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateWorkbookFile(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateInputDirectory(t *testing.T) {
	v := NewFileValidator(nil)

	dir := t.TempDir()
	writeFile(t, dir, "financials_export_acme.xlsx")
	assert.NoError(t, v.ValidateInputDirectory(dir))

	// An empty directory is fine, just nothing to do.
	assert.NoError(t, v.ValidateInputDirectory(t.TempDir()))

	err := v.ValidateInputDirectory(filepath.Join(dir, "nope"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestValidateOutputDirectory_CreatesMissing(t *testing.T) {
	v := NewFileValidator(nil)
	dir := filepath.Join(t.TempDir(), "analysis_output")

	require.NoError(t, v.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCountWorkbooks(t *testing.T) {
	dir := t.TempDir()
	v := NewFileValidator(nil)

	writeFile(t, dir, "financials_export_a.xlsx")
	writeFile(t, dir, "financials_export_b.xlsx")
	writeFile(t, dir, "~$financials_export_b.xlsx")
	writeFile(t, dir, "readme.txt")

	count, err := v.CountWorkbooks(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
