package audit

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/temirov/perfgate/internal/model"
	"github.com/temirov/perfgate/internal/yslow"
)

const (
	thresholdsNamespaceConstant   = "thresholds"
	yslowOptionsNamespaceConstant = "yslowOptions"

	thresholdWeightKeyConstant   = "weight"
	thresholdRequestsKeyConstant = "requests"
	thresholdScoreKeyConstant    = "score"
	thresholdSpeedKeyConstant    = "speed"

	optionUserAgentKeyConstant = "userAgent"
	optionCDNsKeyConstant      = "cdns"
	optionViewportKeyConstant  = "viewport"
	optionHeadersKeyConstant   = "headers"

	cdnSeparatorConstant = ","

	thresholdDecoderErrorTemplateConstant = "unable to prepare threshold decoder: %w"
	thresholdDecodeErrorTemplateConstant  = "invalid thresholds for %s: %w"
	optionDecodeErrorTemplateConstant     = "invalid yslow option %s for %s: %w"
	logMessageThresholdUnresolvedConstant = "threshold not configured"
	logFieldSourceConstant                = "source"
	logFieldThresholdConstant             = "threshold"
)

var thresholdKeys = []string{
	thresholdRequestsKeyConstant,
	thresholdScoreKeyConstant,
	thresholdSpeedKeyConstant,
	thresholdWeightKeyConstant,
}

// Resolve looks up namespace.key in the target overrides, then in the global defaults.
// Namespace and key match case-insensitively. The value is returned as configured.
func Resolve(namespace string, key string, targetOverrides model.OptionNamespaces, globalDefaults model.OptionNamespaces) (any, bool) {
	if value, found := lookupOption(targetOverrides, namespace, key); found {
		return value, true
	}
	return lookupOption(globalDefaults, namespace, key)
}

func lookupOption(namespaces model.OptionNamespaces, namespace string, key string) (any, bool) {
	for namespaceName, options := range namespaces {
		if !strings.EqualFold(namespaceName, namespace) {
			continue
		}
		for optionName, optionValue := range options {
			if strings.EqualFold(optionName, key) {
				return optionValue, true
			}
		}
	}
	return nil, false
}

// ResolveThresholds resolves the four thresholds of a target and lists those left unresolved.
func ResolveThresholds(target model.Target, globalDefaults model.OptionNamespaces) (model.ThresholdSet, []string, error) {
	resolvedValues := make(map[string]any, len(thresholdKeys))
	var unresolvedKeys []string
	for _, thresholdKey := range thresholdKeys {
		value, found := Resolve(thresholdsNamespaceConstant, thresholdKey, target.Overrides, globalDefaults)
		if !found || value == nil {
			unresolvedKeys = append(unresolvedKeys, thresholdKey)
			continue
		}
		resolvedValues[thresholdKey] = value
	}

	var thresholdSet model.ThresholdSet
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &thresholdSet,
	})
	if decoderError != nil {
		return model.ThresholdSet{}, nil, fmt.Errorf(thresholdDecoderErrorTemplateConstant, decoderError)
	}
	if decodeError := decoder.Decode(resolvedValues); decodeError != nil {
		return model.ThresholdSet{}, nil, fmt.Errorf(thresholdDecodeErrorTemplateConstant, target.Source, decodeError)
	}
	return thresholdSet, unresolvedKeys, nil
}

// ResolveAuditOptions resolves the YSlow options forwarded to the audit script.
func ResolveAuditOptions(target model.Target, globalDefaults model.OptionNamespaces) (model.AuditOptions, error) {
	var options model.AuditOptions

	if value, found := Resolve(yslowOptionsNamespaceConstant, optionUserAgentKeyConstant, target.Overrides, globalDefaults); found && value != nil {
		userAgent, conversionError := cast.ToStringE(value)
		if conversionError != nil {
			return model.AuditOptions{}, fmt.Errorf(optionDecodeErrorTemplateConstant, optionUserAgentKeyConstant, target.Source, conversionError)
		}
		options.UserAgent = userAgent
	}

	if value, found := Resolve(yslowOptionsNamespaceConstant, optionCDNsKeyConstant, target.Overrides, globalDefaults); found && value != nil {
		cdns, conversionError := toCDNList(value)
		if conversionError != nil {
			return model.AuditOptions{}, fmt.Errorf(optionDecodeErrorTemplateConstant, optionCDNsKeyConstant, target.Source, conversionError)
		}
		options.CDNs = cdns
	}

	if value, found := Resolve(yslowOptionsNamespaceConstant, optionViewportKeyConstant, target.Overrides, globalDefaults); found && value != nil {
		viewport, conversionError := cast.ToStringE(value)
		if conversionError != nil {
			return model.AuditOptions{}, fmt.Errorf(optionDecodeErrorTemplateConstant, optionViewportKeyConstant, target.Source, conversionError)
		}
		options.Viewport = viewport
	}

	if value, found := Resolve(yslowOptionsNamespaceConstant, optionHeadersKeyConstant, target.Overrides, globalDefaults); found && value != nil {
		headers, conversionError := cast.ToStringMapStringE(value)
		if conversionError != nil {
			return model.AuditOptions{}, fmt.Errorf(optionDecodeErrorTemplateConstant, optionHeadersKeyConstant, target.Source, conversionError)
		}
		if len(headers) > 0 {
			options.Headers = headers
		}
	}

	return options, nil
}

func toCDNList(value any) ([]string, error) {
	if joined, isString := value.(string); isString {
		return splitAndTrim(joined, cdnSeparatorConstant), nil
	}
	entries, conversionError := cast.ToStringSliceE(value)
	if conversionError != nil {
		return nil, conversionError
	}
	trimmedEntries := make([]string, 0, len(entries))
	for _, entry := range entries {
		if trimmedEntry := strings.TrimSpace(entry); len(trimmedEntry) > 0 {
			trimmedEntries = append(trimmedEntries, trimmedEntry)
		}
	}
	return trimmedEntries, nil
}

func splitAndTrim(joined string, separator string) []string {
	var entries []string
	for _, entry := range strings.Split(joined, separator) {
		if trimmedEntry := strings.TrimSpace(entry); len(trimmedEntry) > 0 {
			entries = append(entries, trimmedEntry)
		}
	}
	return entries
}

// TargetResolver turns declared targets into resolved targets before any process is spawned.
type TargetResolver struct {
	logger         *zap.Logger
	baseURL        string
	globalDefaults model.OptionNamespaces
}

// NewTargetResolver constructs a TargetResolver.
func NewTargetResolver(logger *zap.Logger, baseURL string, globalDefaults model.OptionNamespaces) TargetResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return TargetResolver{logger: logger, baseURL: baseURL, globalDefaults: globalDefaults}
}

// ResolveAll resolves every target, failing on the first invalid configuration.
func (resolver TargetResolver) ResolveAll(targets []model.Target) ([]model.ResolvedTarget, error) {
	resolvedTargets := make([]model.ResolvedTarget, 0, len(targets))
	for _, target := range targets {
		resolvedTarget, resolveError := resolver.ResolveTarget(target)
		if resolveError != nil {
			return nil, resolveError
		}
		resolvedTargets = append(resolvedTargets, resolvedTarget)
	}
	return resolvedTargets, nil
}

// ResolveTarget resolves the URL, thresholds, and options of one target.
func (resolver TargetResolver) ResolveTarget(target model.Target) (model.ResolvedTarget, error) {
	thresholdSet, unresolvedKeys, thresholdError := ResolveThresholds(target, resolver.globalDefaults)
	if thresholdError != nil {
		return model.ResolvedTarget{}, thresholdError
	}
	for _, unresolvedKey := range unresolvedKeys {
		resolver.logger.Warn(
			logMessageThresholdUnresolvedConstant,
			zap.String(logFieldSourceConstant, target.Source),
			zap.String(logFieldThresholdConstant, unresolvedKey),
		)
	}

	auditOptions, optionsError := ResolveAuditOptions(target, resolver.globalDefaults)
	if optionsError != nil {
		return model.ResolvedTarget{}, optionsError
	}

	return model.ResolvedTarget{
		Target:     target,
		URL:        yslow.JoinURL(resolver.baseURL, target.Source),
		Thresholds: thresholdSet,
		Options:    auditOptions,
	}, nil
}
