package utils

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (
	workingDirectorySearchPathConstant = "."
)

// DefaultConfigurationSearchPaths lists the working directory followed by the XDG configuration directory for the application.
func DefaultConfigurationSearchPaths(applicationName string) []string {
	searchPaths := []string{workingDirectorySearchPathConstant}
	trimmedApplicationName := strings.TrimSpace(applicationName)
	if len(trimmedApplicationName) == 0 || len(xdg.ConfigHome) == 0 {
		return searchPaths
	}
	return append(searchPaths, filepath.Join(xdg.ConfigHome, trimmedApplicationName))
}
