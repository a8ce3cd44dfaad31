package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates the counts shown once a run ends.
type SummaryData struct {
	Command     string
	Total       int
	Completed   int
	Finished    bool
	Cancelled   bool
	FailedStage int
	Failed      []string
	Err         string
}

// Summary renders a textual run summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Targets: %d/%d completed", s.data.Completed, s.data.Total))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Run cancelled")
	case len(s.data.Failed) > 0:
		lines = append(lines, fmt.Sprintf("Stage %d: %s failed to %s",
			s.data.FailedStage, strings.Join(s.data.Failed, ", "), s.data.Command))
	case s.data.Err != "":
		lines = append(lines, "Run failed: "+s.data.Err)
	case s.data.Finished && s.data.Total > 0:
		if s.data.Completed == s.data.Total {
			lines = append(lines, fmt.Sprintf("%s finished successfully", s.data.Command))
		} else {
			lines = append(lines, "Run finished with pending targets")
		}
	}

	return strings.Join(lines, "\n")
}
