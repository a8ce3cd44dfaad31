package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress renders how many targets of a run have finished.
type Progress struct {
	bar   progress.Model
	total int
}

// NewProgress creates a progress component for total targets.
func NewProgress(total int) Progress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30
	return Progress{bar: bar, total: total}
}

// View renders the bar for the number of finished targets.
func (p Progress) View(completed int) string {
	ratio := 0.0
	if p.total > 0 {
		ratio = math.Min(1.0, float64(completed)/float64(p.total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d targets", completed, p.total))
	return lipgloss.JoinHorizontal(lipgloss.Left, p.bar.ViewAs(ratio), " ", label)
}
