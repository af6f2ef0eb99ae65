package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/perfgate/internal/model"
)

const (
	bannerTemplateConstant            = "Testing %d URLs, this might take a few moments...\n"
	headerTemplateConstant            = "Test %d: %s"
	artifactCollectedTemplateConstant = "Report for %s collected\n"
	linePrefixConstant                = ">> "
	passStatusConstant                = "[PASS]"
	failStatusConstant                = "[FAIL]"
	skipStatusConstant                = "[SKIP]"
	failThresholdTemplateConstant     = " threshold is %s"
	skipDescriptionConstant           = " threshold not configured"
	requestsLabelConstant             = "Requests"
	scoreLabelConstant                = "YSlow score"
	loadTimeLabelConstant             = "Page load time"
	weightLabelConstant               = "Page size"
	requestsUnitConstant              = " requests"
	scoreSuffixConstant               = "/100"
	millisecondsUnitConstant          = "ms"
	kilobytesUnitConstant             = "Kb"
	labelColumnWidthConstant          = 20
	valueColumnWidthConstant          = 15
	statusColumnWidthConstant         = 55
	successColorConstant              = "2"
	failureColorConstant              = "1"
	skipColorConstant                 = "3"
)

type consoleStyles struct {
	pass    lipgloss.Style
	fail    lipgloss.Style
	skip    lipgloss.Style
	header  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	status  lipgloss.Style
}

// ConsoleReporter prints interactive audit results.
type ConsoleReporter struct {
	writer   io.Writer
	renderer *lipgloss.Renderer
	styles   consoleStyles
}

type unwrappingWriter interface {
	Unwrap() io.Writer
}

// NewConsoleReporter constructs a ConsoleReporter. Colors are only emitted when writer, or the
// writer it wraps, is a terminal.
func NewConsoleReporter(writer io.Writer) *ConsoleReporter {
	renderer := lipgloss.NewRenderer(terminalWriter(writer))
	return &ConsoleReporter{
		writer:   writer,
		renderer: renderer,
		styles: consoleStyles{
			pass:    renderer.NewStyle().Foreground(lipgloss.Color(successColorConstant)).Bold(true),
			fail:    renderer.NewStyle().Foreground(lipgloss.Color(failureColorConstant)).Bold(true),
			skip:    renderer.NewStyle().Foreground(lipgloss.Color(skipColorConstant)).Bold(true),
			header:  renderer.NewStyle().Bold(true).Underline(true),
			success: renderer.NewStyle().Foreground(lipgloss.Color(successColorConstant)),
			failure: renderer.NewStyle().Foreground(lipgloss.Color(failureColorConstant)),
			label:   renderer.NewStyle().Width(labelColumnWidthConstant),
			value:   renderer.NewStyle().Width(valueColumnWidthConstant),
			status:  renderer.NewStyle().Width(statusColumnWidthConstant),
		},
	}
}

// terminalWriter returns the innermost writer so terminal detection sees the real output file.
func terminalWriter(writer io.Writer) io.Writer {
	for {
		wrapper, isWrapper := writer.(unwrappingWriter)
		if !isWrapper {
			return writer
		}
		unwrapped := wrapper.Unwrap()
		if unwrapped == nil {
			return writer
		}
		writer = unwrapped
	}
}

// Start prints the run banner.
func (reporter *ConsoleReporter) Start(totalTargets int) error {
	_, writeError := fmt.Fprintf(reporter.writer, bannerTemplateConstant, totalTargets)
	return writeError
}

// ReportEvaluation prints the metric table of one target.
func (reporter *ConsoleReporter) ReportEvaluation(target model.ResolvedTarget, metrics model.AuditMetrics, outcome model.EvaluationOutcome) error {
	header := reporter.styles.header.Render(fmt.Sprintf(headerTemplateConstant, target.DisplayNumber(), target.Source))
	if _, writeError := fmt.Fprintf(reporter.writer, "\n%s\n", header); writeError != nil {
		return writeError
	}

	prefixStyle := reporter.styles.success
	if outcome.AnyFailed() {
		prefixStyle = reporter.styles.failure
	}

	var builder strings.Builder
	for _, metricResult := range outcome.Metrics {
		builder.WriteString(prefixStyle.Render(linePrefixConstant))
		builder.WriteString(reporter.renderRow(metricResult, metrics))
		builder.WriteString("\n")
	}
	_, writeError := io.WriteString(reporter.writer, builder.String())
	return writeError
}

// ReportArtifact confirms that a machine report was written.
func (reporter *ConsoleReporter) ReportArtifact(target model.ResolvedTarget, _ string) error {
	_, writeError := fmt.Fprintf(reporter.writer, linePrefixConstant+artifactCollectedTemplateConstant, target.Source)
	return writeError
}

func (reporter *ConsoleReporter) renderRow(metricResult model.MetricResult, metrics model.AuditMetrics) string {
	label, measured, threshold := describeMetric(metricResult, metrics)
	return reporter.styles.label.Render(label) + reporter.styles.value.Render(measured) + reporter.styles.status.Render(reporter.renderStatus(metricResult.Status, threshold))
}

func (reporter *ConsoleReporter) renderStatus(status model.MetricStatus, threshold string) string {
	switch status {
	case model.MetricStatusPassed:
		return reporter.styles.pass.Render(passStatusConstant)
	case model.MetricStatusSkipped:
		return reporter.styles.skip.Render(skipStatusConstant) + skipDescriptionConstant
	default:
		return reporter.styles.fail.Render(failStatusConstant) + fmt.Sprintf(failThresholdTemplateConstant, threshold)
	}
}

// describeMetric returns the row label, the measured value, and the threshold in display units.
func describeMetric(metricResult model.MetricResult, metrics model.AuditMetrics) (string, string, string) {
	threshold := formatThreshold(metricResult.Threshold)
	switch metricResult.Name {
	case model.MetricRequests:
		return requestsLabelConstant, strconv.Itoa(metrics.Requests), threshold + requestsUnitConstant
	case model.MetricScore:
		return scoreLabelConstant, strconv.Itoa(metrics.Score) + scoreSuffixConstant, threshold
	case model.MetricLoadTime:
		return loadTimeLabelConstant, strconv.Itoa(metrics.LoadTimeMs) + millisecondsUnitConstant, threshold + millisecondsUnitConstant
	default:
		return weightLabelConstant, formatNumber(metrics.WeightKilobytes()) + kilobytesUnitConstant, threshold + kilobytesUnitConstant
	}
}

func formatThreshold(threshold *float64) string {
	if threshold == nil {
		return "unset"
	}
	return formatNumber(*threshold)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
