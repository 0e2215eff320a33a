package progress

import (
	"fmt"
	"io"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/gitembed/internal/ui/styles"
)

// progressUpdate is sent to update the progress bar
type progressUpdate struct {
	current int
	message string
}

// ProgressBar shows how many of a known number of steps are done.
type ProgressBar struct {
	d     *display[progressUpdate]
	total int
	last  progressUpdate
}

type progressBarModel struct {
	progress progress.Model
	total    int
	current  int
	message  string
	updates  <-chan progressUpdate
}

func (m progressBarModel) Init() tea.Cmd {
	return waitFor(m.updates)
}

func (m progressBarModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressUpdate:
		m.current = msg.current
		m.message = msg.message
		return m, waitFor(m.updates)
	default:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}
}

func (m progressBarModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m progressBarModel) render() string {
	if m.message == "" {
		return ""
	}
	return renderBar(m.progress, m.current, m.total, m.message)
}

// renderBar formats "[████░░░░] 2/5 message".
func renderBar(p progress.Model, current, total int, message string) string {
	return fmt.Sprintf("%s %d/%d %s", p.ViewAs(fraction(current, total)), current, total, message)
}

func fraction(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(current) / float64(total)
	return min(max(f, 0), 1)
}

// NewProgressBar creates a progress bar for total steps that renders to out.
func NewProgressBar(out io.Writer, total int, message string) *ProgressBar {
	return &ProgressBar{
		d:     newDisplay[progressUpdate](out),
		total: total,
		last:  progressUpdate{message: message},
	}
}

// Start begins the progress bar display.
func (p *ProgressBar) Start() {
	bar := progress.New(
		progress.WithWidth(30),
		progress.WithoutPercentage(),
		progress.WithColors(styles.Primary, styles.Success),
	)
	p.d.start(progressBarModel{
		progress: bar,
		total:    p.total,
		current:  p.last.current,
		message:  p.last.message,
		updates:  p.d.updates,
	})
}

// SetProgress updates the number of completed steps and the message.
func (p *ProgressBar) SetProgress(current int, message string) {
	u := progressUpdate{current: current, message: message}
	if !p.d.send(u) {
		p.last = u
	}
}

// Stop stops the progress bar and clears the line.
func (p *ProgressBar) Stop() {
	p.d.stop()
}

// Total returns the total count for the progress bar.
func (p *ProgressBar) Total() int {
	return p.total
}
