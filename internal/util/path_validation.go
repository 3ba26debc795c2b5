package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidFileName is returned for artifact names that are empty or try
// to escape the output directory.
var ErrInvalidFileName = errors.New("invalid file name")

var (
	controlChars   = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	forbiddenChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	dashRuns       = regexp.MustCompile(`-+`)
	dotRuns        = regexp.MustCompile(`\.{2,}`)
)

// EnsureOutputDir makes sure the artifact directory exists and is writable,
// creating it (and its parents) when missing.
func EnsureOutputDir(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	cleanPath := filepath.Clean(dirPath)

	info, err := os.Stat(cleanPath)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", cleanPath)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(cleanPath, 0755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
	default:
		return fmt.Errorf("cannot access path: %w", err)
	}

	if err := checkWritePermission(cleanPath); err != nil {
		return fmt.Errorf("no write permission for output directory: %w", err)
	}
	return nil
}

// ResolveArtifact joins a client-supplied file name onto baseDir, refusing
// anything that is not a plain file name.
func ResolveArtifact(baseDir, name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", ErrInvalidFileName
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", ErrInvalidFileName
	}
	if filepath.Base(name) != name {
		return "", ErrInvalidFileName
	}
	return filepath.Join(baseDir, name), nil
}

// checkWritePermission checks if we have write permission to a directory
func checkWritePermission(dirPath string) error {
	// Try to create a temporary file in the directory
	tempFile := filepath.Join(dirPath, ".shelfie_temp_check")
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}
	file.Close()

	// Clean up the temporary file
	os.Remove(tempFile)
	return nil
}

// SanitizeFileName removes characters that cannot be used in file names on
// Windows, macOS and Linux. The result always passes ResolveArtifact. Use
// this for single components, not full paths.
func SanitizeFileName(name string) string {
	safeName := controlChars.ReplaceAllString(name, "")
	safeName = forbiddenChars.ReplaceAllString(safeName, "-")
	safeName = dotRuns.ReplaceAllString(safeName, ".")
	safeName = strings.ReplaceAll(safeName, " ", "_")

	// Windows doesn't allow leading/trailing dots and spaces
	safeName = strings.Trim(safeName, " .")
	safeName = dashRuns.ReplaceAllString(safeName, "-")
	safeName = strings.Trim(safeName, "-")

	if safeName == "" {
		return "untitled"
	}
	return safeName
}
