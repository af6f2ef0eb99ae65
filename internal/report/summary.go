package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/temirov/perfgate/internal/model"
)

const (
	summaryTitleConstant                = "perfgate run summary"
	summaryRunTemplateConstant          = "Run `%s` in %s mode: %d of %d targets completed, result **%s**."
	summaryResultPassedConstant         = "passed"
	summaryResultFailedConstant         = "failed"
	summaryTargetsHeadingConstant       = "Targets"
	summaryNoTargetsConstant            = "No targets completed."
	summaryErrorCellTemplateConstant    = "error: %s"
	summaryEmptyCellConstant            = "-"
	summaryDirectoryPermissionsConstant = 0o755
	summaryWriteErrorTemplateConstant   = "unable to write run summary %s: %w"
	summaryStatusPassedConstant         = "PASS"
	summaryStatusFailedConstant         = "FAIL"
	summaryStatusSkippedConstant        = "SKIP"
)

// RunDigest is the run-level data rendered into the Markdown summary.
type RunDigest struct {
	RunID        string
	Mode         model.RunMode
	TotalTargets int
	Failed       bool
	Outcomes     []model.TargetOutcome
}

// SummaryWriter renders a RunDigest as Markdown.
type SummaryWriter struct {
	output io.Writer
}

// NewSummaryWriter constructs a SummaryWriter.
func NewSummaryWriter(output io.Writer) *SummaryWriter {
	return &SummaryWriter{output: output}
}

// WriteSummaryFile renders digest into the file at summaryPath, creating parent directories.
func WriteSummaryFile(summaryPath string, digest RunDigest) error {
	if directoryError := os.MkdirAll(filepath.Dir(summaryPath), summaryDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, summaryPath, directoryError)
	}
	summaryFile, createError := os.Create(summaryPath)
	if createError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, summaryPath, createError)
	}
	writeError := NewSummaryWriter(summaryFile).Write(digest)
	closeError := summaryFile.Close()
	if writeError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, summaryPath, writeError)
	}
	if closeError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, summaryPath, closeError)
	}
	return nil
}

// Write renders the digest.
func (writer *SummaryWriter) Write(digest RunDigest) error {
	md := markdown.NewMarkdown(writer.output)
	md.H1(summaryTitleConstant)
	md.PlainText("")

	result := summaryResultPassedConstant
	if digest.Failed {
		result = summaryResultFailedConstant
	}
	md.PlainTextf(summaryRunTemplateConstant, digest.RunID, digest.Mode, len(digest.Outcomes), digest.TotalTargets, result)
	md.PlainText("")

	md.H2(summaryTargetsHeadingConstant)
	md.PlainText("")
	if len(digest.Outcomes) == 0 {
		md.PlainText(summaryNoTargetsConstant)
		return md.Build()
	}

	if digest.Mode == model.RunModeMachine {
		writer.writeArtifactTable(md, digest.Outcomes)
	} else {
		writer.writeMetricTable(md, digest.Outcomes)
	}
	return md.Build()
}

func (writer *SummaryWriter) writeMetricTable(md *markdown.Markdown, outcomes []model.TargetOutcome) {
	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		row := []string{fmt.Sprintf("%d", outcome.Target.DisplayNumber()), outcome.Target.Source}
		if outcome.Err != nil || outcome.Evaluation == nil || outcome.Metrics == nil {
			row = append(row, errorCell(outcome.Err), summaryEmptyCellConstant, summaryEmptyCellConstant, summaryEmptyCellConstant)
			rows = append(rows, row)
			continue
		}
		for _, metricResult := range outcome.Evaluation.Metrics {
			_, measured, _ := describeMetric(metricResult, *outcome.Metrics)
			row = append(row, fmt.Sprintf("%s %s", measured, statusCell(metricResult.Status)))
		}
		rows = append(rows, row)
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Source", requestsLabelConstant, scoreLabelConstant, loadTimeLabelConstant, weightLabelConstant},
		Rows:   rows,
	})
}

func (writer *SummaryWriter) writeArtifactTable(md *markdown.Markdown, outcomes []model.TargetOutcome) {
	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		artifactCell := outcome.ArtifactPath
		if outcome.Err != nil {
			artifactCell = errorCell(outcome.Err)
		}
		rows = append(rows, []string{fmt.Sprintf("%d", outcome.Target.DisplayNumber()), outcome.Target.Source, artifactCell})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Source", "Report"},
		Rows:   rows,
	})
}

func statusCell(status model.MetricStatus) string {
	switch status {
	case model.MetricStatusPassed:
		return summaryStatusPassedConstant
	case model.MetricStatusSkipped:
		return summaryStatusSkippedConstant
	default:
		return summaryStatusFailedConstant
	}
}

func errorCell(err error) string {
	if err == nil {
		return summaryEmptyCellConstant
	}
	return fmt.Sprintf(summaryErrorCellTemplateConstant, strings.ReplaceAll(err.Error(), "|", "/"))
}
