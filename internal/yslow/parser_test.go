package yslow_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/perfgate/internal/model"
	"github.com/temirov/perfgate/internal/yslow"
)

func TestParseMetrics(testInstance *testing.T) {
	testCases := []struct {
		name            string
		output          string
		expectedMetrics model.AuditMetrics
		expectError     bool
	}{
		{
			name:            "basic info object",
			output:          `{"w":300000,"o":85,"u":"http%3A%2F%2Fexample.com%2F","r":40,"i":"ydefault","lt":1500}`,
			expectedMetrics: model.AuditMetrics{Requests: 40, Score: 85, LoadTimeMs: 1500, WeightBytes: 300000},
		},
		{
			name:            "surrounding whitespace is ignored",
			output:          "\n  {\"r\":1,\"o\":99,\"lt\":10,\"w\":1000}\n",
			expectedMetrics: model.AuditMetrics{Requests: 1, Score: 99, LoadTimeMs: 10, WeightBytes: 1000},
		},
		{name: "plain text", output: "ReferenceError: Can't find variable: YSLOW", expectError: true},
		{name: "empty output", output: "   ", expectError: true},
		{name: "missing fields", output: `{"r":40,"o":85}`, expectError: true},
		{name: "trailing data", output: `{"r":1,"o":2,"lt":3,"w":4} extra`, expectError: true},
		{name: "json array", output: `[1,2,3]`, expectError: true},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			metrics, parseError := yslow.ParseMetrics(testCase.output)
			if testCase.expectError {
				var decodeError *yslow.DecodeError
				require.ErrorAs(subTest, parseError, &decodeError)
				return
			}
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expectedMetrics, metrics)
		})
	}
}

func TestParseMetricsReportsEmptyOutput(testInstance *testing.T) {
	_, parseError := yslow.ParseMetrics("")
	require.ErrorIs(testInstance, parseError, yslow.ErrEmptyOutput)
}

func TestDecodeErrorTruncatesExcerpt(testInstance *testing.T) {
	longOutput := strings.Repeat("x", 500)
	decodeError := yslow.NewDecodeError(testSourceConstant, longOutput, errors.New("invalid character"))

	require.Equal(testInstance, strings.Repeat("x", 200)+"...", decodeError.Excerpt)
	require.Contains(testInstance, decodeError.Error(), testSourceConstant)
	require.Contains(testInstance, decodeError.Error(), "invalid character")
}
