// Package progress provides progress indication components.
//
// A [Spinner] covers a single install whose duration is unknown; a
// [ProgressBar] covers a batch where the number of installs is known. Both
// render to the writer they are given (stderr in the CLI) so stdout stays
// clean for piping, and both are safe to update from the installing goroutine.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
)

// stopTimeout bounds how long Stop waits for the program to exit.
const stopTimeout = 500 * time.Millisecond

// display runs a Bubbletea program fed by a channel of updates of type T.
type display[T any] struct {
	out     io.Writer
	updates chan T
	done    chan struct{}

	mu      sync.Mutex
	program *tea.Program
	running bool
}

func newDisplay[T any](out io.Writer) *display[T] {
	return &display[T]{
		out:     out,
		updates: make(chan T, 10),
		done:    make(chan struct{}),
	}
}

// start launches model unless already running. Reports false if the display
// was already started.
func (d *display[T]) start(model tea.Model) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return false
	}

	d.program = tea.NewProgram(model,
		tea.WithoutSignalHandler(),
		tea.WithInput(nil),
		tea.WithOutput(d.out),
	)
	d.running = true

	go func() {
		_, _ = d.program.Run()
		close(d.done)
	}()
	return true
}

// send delivers u to the running model. It reports false when the display is
// not running so the caller can keep the value for Start. Updates are dropped
// when the channel is full.
func (d *display[T]) send(u T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return false
	}

	// Channel close happens under the same mutex
	select {
	case d.updates <- u:
	default:
	}
	return true
}

// stop quits the program, waits briefly for it and clears the line.
func (d *display[T]) stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.updates)
	d.mu.Unlock()

	if d.program != nil {
		d.program.Quit()
	}

	select {
	case <-d.done:
	case <-time.After(stopTimeout):
	}

	fmt.Fprint(d.out, "\r\033[K")
}

// waitFor turns the next value on ch into a message; a closed channel quits.
func waitFor[T any](ch <-chan T) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return tea.Quit()
		}
		return u
	}
}
