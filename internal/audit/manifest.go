package audit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/temirov/perfgate/internal/model"
	pathutils "github.com/temirov/perfgate/internal/utils/path"
)

const (
	manifestReadErrorTemplateConstant  = "unable to read target manifest %s: %w"
	manifestParseErrorTemplateConstant = "unable to parse target manifest %s: %w"
	missingSourceErrorTemplateConstant = "target %d has no src"
	invalidSourceErrorTemplateConstant = "target %d has an invalid src: %w"
	noTargetsMessageConstant           = "no audit targets configured; add files to the configuration or pass --targets"
)

// ErrNoTargets indicates that neither configuration nor manifest declared any target.
var ErrNoTargets = errors.New(noTargetsMessageConstant)

// TargetManifest is a standalone YAML document listing audit targets.
type TargetManifest struct {
	BaseURL string              `yaml:"baseUrl"`
	Files   []FileConfiguration `yaml:"files"`
}

// LoadTargetManifest reads a manifest file. Relative paths are resolved against baseDirectory.
func LoadTargetManifest(manifestPath string, baseDirectory string) (TargetManifest, error) {
	resolvedPath := pathutils.NewHomeExpander().Expand(strings.TrimSpace(manifestPath))
	if !filepath.IsAbs(resolvedPath) && len(baseDirectory) > 0 {
		resolvedPath = filepath.Join(baseDirectory, resolvedPath)
	}

	manifestContent, readError := os.ReadFile(resolvedPath)
	if readError != nil {
		return TargetManifest{}, fmt.Errorf(manifestReadErrorTemplateConstant, resolvedPath, readError)
	}

	var manifest TargetManifest
	if parseError := yaml.Unmarshal(manifestContent, &manifest); parseError != nil {
		return TargetManifest{}, fmt.Errorf(manifestParseErrorTemplateConstant, resolvedPath, parseError)
	}
	return manifest, nil
}

// BuildTargets converts declared files into targets indexed by their position.
func BuildTargets(files []FileConfiguration) ([]model.Target, error) {
	targets := make([]model.Target, 0, len(files))
	for index, file := range files {
		source, sourceError := firstSource(file.Source)
		if sourceError != nil {
			return nil, fmt.Errorf(invalidSourceErrorTemplateConstant, index, sourceError)
		}
		if len(source) == 0 {
			return nil, fmt.Errorf(missingSourceErrorTemplateConstant, index)
		}
		targets = append(targets, model.Target{
			Index:  index,
			Source: source,
			Overrides: model.OptionNamespaces{
				thresholdsNamespaceConstant:   file.Thresholds,
				yslowOptionsNamespaceConstant: file.YSlowOptions,
			},
		})
	}
	return targets, nil
}

func firstSource(rawSource any) (string, error) {
	switch typedSource := rawSource.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(typedSource), nil
	default:
		sources, conversionError := cast.ToStringSliceE(typedSource)
		if conversionError != nil {
			return "", conversionError
		}
		if len(sources) == 0 {
			return "", nil
		}
		return strings.TrimSpace(sources[0]), nil
	}
}

// GlobalDefaults exposes the configured option namespaces for resolution.
func (configuration OptionsConfiguration) GlobalDefaults() model.OptionNamespaces {
	return model.OptionNamespaces{
		thresholdsNamespaceConstant:   configuration.Thresholds,
		yslowOptionsNamespaceConstant: configuration.YSlowOptions,
	}
}
