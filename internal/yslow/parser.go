package yslow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/temirov/perfgate/internal/model"
)

const (
	excerptLimitConstant               = 200
	excerptEllipsisConstant            = "..."
	decodeErrorTemplateConstant        = "unable to decode audit result for %s: %v"
	decodeErrorExcerptTemplateConstant = "%s (output: %q)"
	emptyOutputMessageConstant         = "audit produced no output"
	missingFieldsTemplateConstant      = "audit result is missing fields: %s"
	trailingDataMessageConstant        = "audit result has trailing data"
	missingFieldSeparatorConstant      = ", "
	unknownSourcePlaceholderConstant   = "target"
)

// ErrEmptyOutput indicates that the audit process printed nothing.
var ErrEmptyOutput = errors.New(emptyOutputMessageConstant)

// DecodeError reports audit output that could not be decoded into metrics.
type DecodeError struct {
	Source  string
	Excerpt string
	Cause   error
}

// NewDecodeError builds a DecodeError for source with a truncated excerpt of the output.
func NewDecodeError(source string, output string, cause error) *DecodeError {
	return &DecodeError{Source: source, Excerpt: excerpt(output), Cause: cause}
}

// Error describes the failure.
func (decodeError *DecodeError) Error() string {
	source := decodeError.Source
	if len(source) == 0 {
		source = unknownSourcePlaceholderConstant
	}
	message := fmt.Sprintf(decodeErrorTemplateConstant, source, decodeError.Cause)
	if len(decodeError.Excerpt) == 0 {
		return message
	}
	return fmt.Sprintf(decodeErrorExcerptTemplateConstant, message, decodeError.Excerpt)
}

// Unwrap exposes the underlying cause.
func (decodeError *DecodeError) Unwrap() error {
	return decodeError.Cause
}

type wireMetrics struct {
	Requests    *int `json:"r"`
	Score       *int `json:"o"`
	LoadTimeMs  *int `json:"lt"`
	WeightBytes *int `json:"w"`
}

// ParseMetrics decodes the JSON object printed by the YSlow script in basic info mode.
func ParseMetrics(standardOutput string) (model.AuditMetrics, error) {
	trimmedOutput := strings.TrimSpace(standardOutput)
	if len(trimmedOutput) == 0 {
		return model.AuditMetrics{}, NewDecodeError("", standardOutput, ErrEmptyOutput)
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(trimmedOutput)))
	var decoded wireMetrics
	if decodeError := decoder.Decode(&decoded); decodeError != nil {
		return model.AuditMetrics{}, NewDecodeError("", standardOutput, decodeError)
	}
	if decoder.More() {
		return model.AuditMetrics{}, NewDecodeError("", standardOutput, errors.New(trailingDataMessageConstant))
	}

	var missingFields []string
	if decoded.Requests == nil {
		missingFields = append(missingFields, "r")
	}
	if decoded.Score == nil {
		missingFields = append(missingFields, "o")
	}
	if decoded.LoadTimeMs == nil {
		missingFields = append(missingFields, "lt")
	}
	if decoded.WeightBytes == nil {
		missingFields = append(missingFields, "w")
	}
	if len(missingFields) > 0 {
		return model.AuditMetrics{}, NewDecodeError("", standardOutput, fmt.Errorf(missingFieldsTemplateConstant, strings.Join(missingFields, missingFieldSeparatorConstant)))
	}

	return model.AuditMetrics{
		Requests:    *decoded.Requests,
		Score:       *decoded.Score,
		LoadTimeMs:  *decoded.LoadTimeMs,
		WeightBytes: *decoded.WeightBytes,
	}, nil
}

func excerpt(output string) string {
	trimmedOutput := strings.TrimSpace(output)
	if utf8.RuneCountInString(trimmedOutput) <= excerptLimitConstant {
		return trimmedOutput
	}
	runes := []rune(trimmedOutput)
	return string(runes[:excerptLimitConstant]) + excerptEllipsisConstant
}
