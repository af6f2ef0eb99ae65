package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/perfgate/internal/model"
)

const (
	artifactFileTemplateConstant           = "report%d.%s"
	xmlExtensionConstant                   = "xml"
	junitFormatConstant                    = "junit"
	artifactDirectoryPermissionsConstant   = 0o755
	artifactFilePermissionsConstant        = 0o644
	artifactDirectoryErrorTemplateConstant = "unable to create report directory %s: %w"
	artifactWriteErrorTemplateConstant     = "unable to write report for %s: %w"
	reportPathMissingMessageConstant       = "report path not configured"
)

// ErrReportPathNotConfigured indicates that machine mode has nowhere to write artifacts.
var ErrReportPathNotConfigured = errors.New(reportPathMissingMessageConstant)

// ArtifactWriter stores raw machine reports, one file per target.
type ArtifactWriter struct {
	reportPath string
	extension  string
}

// NewArtifactWriter constructs an ArtifactWriter for the given directory and report format.
func NewArtifactWriter(reportPath string, format string) (*ArtifactWriter, error) {
	trimmedPath := strings.TrimSpace(reportPath)
	if len(trimmedPath) == 0 {
		return nil, ErrReportPathNotConfigured
	}
	return &ArtifactWriter{reportPath: trimmedPath, extension: ArtifactExtension(format)}, nil
}

// ArtifactExtension maps a report format to the file extension of its artifact.
func ArtifactExtension(format string) string {
	normalizedFormat := strings.ToLower(strings.TrimSpace(format))
	switch normalizedFormat {
	case "", junitFormatConstant, xmlExtensionConstant:
		return xmlExtensionConstant
	default:
		return normalizedFormat
	}
}

// ArtifactPath returns the file a target's report is written to.
func (writer *ArtifactWriter) ArtifactPath(target model.ResolvedTarget) string {
	return filepath.Join(writer.reportPath, fmt.Sprintf(artifactFileTemplateConstant, target.Index, writer.extension))
}

// Write stores the captured output unmodified and returns the artifact path.
func (writer *ArtifactWriter) Write(target model.ResolvedTarget, standardOutput string) (string, error) {
	if directoryError := os.MkdirAll(writer.reportPath, artifactDirectoryPermissionsConstant); directoryError != nil {
		return "", fmt.Errorf(artifactDirectoryErrorTemplateConstant, writer.reportPath, directoryError)
	}
	artifactPath := writer.ArtifactPath(target)
	if writeError := os.WriteFile(artifactPath, []byte(standardOutput), artifactFilePermissionsConstant); writeError != nil {
		return "", fmt.Errorf(artifactWriteErrorTemplateConstant, target.Source, writeError)
	}
	return artifactPath, nil
}
