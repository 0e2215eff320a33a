package progress

import (
	"io"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/raphi011/gitembed/internal/ui/styles"
)

// messageUpdate is sent to update the spinner message
type messageUpdate string

// Spinner shows an animated indicator next to a status message.
type Spinner struct {
	d *display[messageUpdate]

	lastMsg string
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	updates <-chan messageUpdate
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitFor(m.updates))
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messageUpdate:
		m.message = string(msg)
		return m, waitFor(m.updates)
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m spinnerModel) render() string {
	if m.message == "" {
		return ""
	}
	return m.spinner.View() + " " + m.message
}

// NewSpinner creates a spinner that renders to out.
func NewSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{
		d:       newDisplay[messageUpdate](out),
		lastMsg: message,
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.PrimaryStyle),
	)
	s.d.start(spinnerModel{
		spinner: sp,
		message: s.lastMsg,
		updates: s.d.updates,
	})
}

// UpdateMessage changes the spinner message.
func (s *Spinner) UpdateMessage(message string) {
	if !s.d.send(messageUpdate(message)) {
		s.lastMsg = message
	}
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	s.d.stop()
}
