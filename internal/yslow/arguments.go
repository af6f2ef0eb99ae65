package yslow

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/temirov/perfgate/internal/model"
)

const (
	ignoreSSLErrorsFlagConstant   = "--ignore-ssl-errors=true"
	formatFlagConstant            = "--format"
	infoFlagConstant              = "--info"
	infoGradeConstant             = "grade"
	infoBasicConstant             = "basic"
	userAgentFlagConstant         = "--ua"
	cdnsFlagConstant              = "--cdns"
	viewportFlagConstant          = "--viewport"
	headersFlagConstant           = "--headers"
	thresholdFlagTemplateConstant = "--threshold=%d"
	cdnSeparatorConstant          = ","
	headersEncodingErrorConstant  = "unable to encode headers for %s: %w"

	// DefaultReportFormat is the machine report format used when none is configured.
	DefaultReportFormat = "junit"
)

// Invocation holds the run-wide settings that shape every argument vector.
type Invocation struct {
	Mode       model.RunMode
	Format     string
	ScriptPath string
}

// BuildArguments assembles the PhantomJS argument vector for a resolved target.
// Flags and their values are separate entries; no shell quoting is applied.
func BuildArguments(target model.ResolvedTarget, invocation Invocation) ([]string, error) {
	arguments := []string{ignoreSSLErrorsFlagConstant, invocation.ScriptPath}

	if invocation.Mode == model.RunModeMachine {
		format := strings.TrimSpace(invocation.Format)
		if len(format) == 0 {
			format = DefaultReportFormat
		}
		arguments = append(arguments, formatFlagConstant, format, infoFlagConstant, infoGradeConstant)
	} else {
		arguments = append(arguments, infoFlagConstant, infoBasicConstant)
	}

	options := target.Options
	if len(options.UserAgent) > 0 {
		arguments = append(arguments, userAgentFlagConstant, options.UserAgent)
	}
	if len(options.CDNs) > 0 {
		arguments = append(arguments, cdnsFlagConstant, strings.Join(options.CDNs, cdnSeparatorConstant))
	}
	if len(options.Viewport) > 0 {
		arguments = append(arguments, viewportFlagConstant, options.Viewport)
	}
	if len(options.Headers) > 0 {
		encodedHeaders, encodingError := json.Marshal(options.Headers)
		if encodingError != nil {
			return nil, fmt.Errorf(headersEncodingErrorConstant, target.Source, encodingError)
		}
		arguments = append(arguments, headersFlagConstant, string(encodedHeaders))
	}

	if invocation.Mode == model.RunModeMachine && target.Thresholds.Score != nil {
		arguments = append(arguments, fmt.Sprintf(thresholdFlagTemplateConstant, int(math.Trunc(*target.Thresholds.Score))))
	}

	return append(arguments, target.URL), nil
}

// JoinURL concatenates the base URL and a target source without inserting a separator.
func JoinURL(baseURL string, source string) string {
	return baseURL + source
}
