package phantom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/perfgate/internal/execshell"
	pathutils "github.com/temirov/perfgate/internal/utils/path"
)

const (
	nodeModulesDirectoryConstant        = "node_modules"
	phantomPrebuiltPackageConstant      = "phantomjs-prebuilt"
	phantomPackageConstant              = "phantomjs"
	windowsOperatingSystemConstant      = "windows"
	windowsExecutableSuffixConstant     = ".exe"
	scriptAncestorDepthConstant         = 4
	parentDirectoryConstant             = ".."
	strategyConfiguredNameConstant      = "configured"
	strategyInstalledNameConstant       = "installed"
	strategyAncestorNameConstant        = "ancestor"
	strategySearchPathNameConstant      = "search-path"
	binaryNotConfiguredMessageConstant  = "no phantomjs binary configured"
	binaryMissingTemplateConstant       = "phantomjs binary not found at %s"
	packageMissingTemplateConstant      = "phantomjs package not installed under %s"
	binaryIsDirectoryTemplateConstant   = "phantomjs path %s is a directory"
	logMessageResolverSkippedConstant   = "phantomjs lookup skipped"
	logMessageBinaryLocatedConstant     = "phantomjs binary located"
	logMessageFallingBackToPathConstant = "falling back to phantomjs from PATH"
	logFieldStrategyConstant            = "strategy"
	logFieldPathConstant                = "path"
	logFieldReasonConstant              = "reason"
)

// ErrBinaryNotFound signals that a resolver could not locate the binary and the chain should continue.
var ErrBinaryNotFound = errors.New("phantomjs binary not found")

// FileSystem exposes the filesystem queries needed for discovery.
type FileSystem interface {
	Stat(path string) (os.FileInfo, error)
}

// OSFileSystem implements FileSystem with the os package.
type OSFileSystem struct{}

// Stat delegates to os.Stat.
func (OSFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// BinaryResolver is one discovery strategy.
type BinaryResolver interface {
	Name() string
	Resolve() (string, error)
}

// LocatedBinary reports the resolved binary and the strategy that produced it.
type LocatedBinary struct {
	Path     string
	Strategy string
}

// ConfiguredBinaryResolver accepts an explicitly configured binary path.
type ConfiguredBinaryResolver struct {
	BinaryPath string
	FileSystem FileSystem
}

// Name identifies the strategy.
func (resolver ConfiguredBinaryResolver) Name() string {
	return strategyConfiguredNameConstant
}

// Resolve returns the configured path when it points at a file.
func (resolver ConfiguredBinaryResolver) Resolve() (string, error) {
	trimmedPath := strings.TrimSpace(resolver.BinaryPath)
	if len(trimmedPath) == 0 {
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, binaryNotConfiguredMessageConstant)
	}
	return statExecutable(resolver.FileSystem, trimmedPath, binaryMissingTemplateConstant)
}

// InstalledPackageResolver looks for the npm-installed PhantomJS package below a project directory.
type InstalledPackageResolver struct {
	Label            string
	ProjectDirectory string
	FileSystem       FileSystem
}

// Name identifies the strategy.
func (resolver InstalledPackageResolver) Name() string {
	if len(resolver.Label) == 0 {
		return strategyInstalledNameConstant
	}
	return resolver.Label
}

// Resolve returns the first installed package binary found under the project directory.
func (resolver InstalledPackageResolver) Resolve() (string, error) {
	for _, candidatePath := range InstalledBinaryCandidates(resolver.ProjectDirectory) {
		binaryPath, statError := statExecutable(resolver.FileSystem, candidatePath, binaryMissingTemplateConstant)
		if statError == nil {
			return binaryPath, nil
		}
	}
	return "", fmt.Errorf("%w: "+packageMissingTemplateConstant, ErrBinaryNotFound, resolver.ProjectDirectory)
}

// SearchPathResolver defers to the executable search path and never fails.
type SearchPathResolver struct{}

// Name identifies the strategy.
func (SearchPathResolver) Name() string {
	return strategySearchPathNameConstant
}

// Resolve returns the bare executable name.
func (SearchPathResolver) Resolve() (string, error) {
	return string(execshell.CommandPhantomJS), nil
}

// InstalledBinaryCandidates lists the binary locations of the supported npm packages under projectDirectory.
func InstalledBinaryCandidates(projectDirectory string) []string {
	binaryName := phantomPackageConstant
	if runtime.GOOS == windowsOperatingSystemConstant {
		binaryName += windowsExecutableSuffixConstant
	}
	candidates := make([]string, 0, 2)
	for _, packageName := range []string{phantomPrebuiltPackageConstant, phantomPackageConstant} {
		candidates = append(candidates, filepath.Join(projectDirectory, nodeModulesDirectoryConstant, packageName, "lib", "phantom", "bin", binaryName))
	}
	return candidates
}

// ScriptAncestorDirectory returns the project directory that owns the node_modules tree holding the audit script.
func ScriptAncestorDirectory(scriptPath string) string {
	ancestorDirectory := filepath.Dir(scriptPath)
	for level := 0; level < scriptAncestorDepthConstant; level++ {
		ancestorDirectory = filepath.Join(ancestorDirectory, parentDirectoryConstant)
	}
	return filepath.Clean(ancestorDirectory)
}

func statExecutable(fileSystem FileSystem, candidatePath string, missingTemplate string) (string, error) {
	if fileSystem == nil {
		fileSystem = OSFileSystem{}
	}
	fileInfo, statError := fileSystem.Stat(candidatePath)
	if statError != nil {
		return "", fmt.Errorf("%w: "+missingTemplate, ErrBinaryNotFound, candidatePath)
	}
	if fileInfo.IsDir() {
		return "", fmt.Errorf("%w: "+binaryIsDirectoryTemplateConstant, ErrBinaryNotFound, candidatePath)
	}
	return candidatePath, nil
}

// DiscoveryConfiguration feeds the default resolver chain.
type DiscoveryConfiguration struct {
	ConfiguredBinary string
	WorkingDirectory string
	ScriptPath       string
}

// Discovery tries resolvers in order and returns the first located binary.
type Discovery struct {
	resolvers []BinaryResolver
	logger    *zap.Logger
}

// NewDiscovery constructs a Discovery over an explicit resolver chain.
func NewDiscovery(logger *zap.Logger, resolvers ...BinaryResolver) *Discovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{resolvers: append([]BinaryResolver{}, resolvers...), logger: logger}
}

// NewDefaultDiscovery builds the configured, installed, ancestor, and search-path chain.
func NewDefaultDiscovery(logger *zap.Logger, fileSystem FileSystem, configuration DiscoveryConfiguration) *Discovery {
	homeExpander := pathutils.NewHomeExpander()
	workingDirectory := configuration.WorkingDirectory
	if len(workingDirectory) == 0 {
		if currentDirectory, directoryError := os.Getwd(); directoryError == nil {
			workingDirectory = currentDirectory
		}
	}

	scriptPath := homeExpander.Expand(configuration.ScriptPath)
	if !filepath.IsAbs(scriptPath) {
		scriptPath = filepath.Join(workingDirectory, scriptPath)
	}

	return NewDiscovery(
		logger,
		ConfiguredBinaryResolver{BinaryPath: homeExpander.Expand(configuration.ConfiguredBinary), FileSystem: fileSystem},
		InstalledPackageResolver{Label: strategyInstalledNameConstant, ProjectDirectory: workingDirectory, FileSystem: fileSystem},
		InstalledPackageResolver{Label: strategyAncestorNameConstant, ProjectDirectory: ScriptAncestorDirectory(scriptPath), FileSystem: fileSystem},
		SearchPathResolver{},
	)
}

// Locate walks the resolver chain. Failed strategies are logged and skipped; when every strategy
// fails the bare executable name is returned without further validation.
func (discovery *Discovery) Locate() LocatedBinary {
	for _, resolver := range discovery.resolvers {
		if resolver == nil {
			continue
		}
		binaryPath, resolveError := resolver.Resolve()
		if resolveError != nil {
			discovery.logger.Debug(
				logMessageResolverSkippedConstant,
				zap.String(logFieldStrategyConstant, resolver.Name()),
				zap.String(logFieldReasonConstant, resolveError.Error()),
			)
			continue
		}
		if resolver.Name() == strategySearchPathNameConstant {
			discovery.logger.Warn(logMessageFallingBackToPathConstant, zap.String(logFieldPathConstant, binaryPath))
		} else {
			discovery.logger.Info(logMessageBinaryLocatedConstant, zap.String(logFieldStrategyConstant, resolver.Name()), zap.String(logFieldPathConstant, binaryPath))
		}
		return LocatedBinary{Path: binaryPath, Strategy: resolver.Name()}
	}

	discovery.logger.Warn(logMessageFallingBackToPathConstant, zap.String(logFieldPathConstant, string(execshell.CommandPhantomJS)))
	return LocatedBinary{Path: string(execshell.CommandPhantomJS), Strategy: strategySearchPathNameConstant}
}
