package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const frameInterval = 100 * time.Millisecond

var (
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// Step runs fn while a spinner labelled msg is drawn on w. When fn returns
// the line is replaced with a mark and the elapsed time, and fn's error is
// returned unchanged.
func Step(w io.Writer, msg string, fn func() error) error {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		stop = make(chan struct{})
	)

	draw := func(frame int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			draw(frame)
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	started := time.Now()
	err := fn()
	elapsed := time.Since(started)

	close(stop)
	wg.Wait()

	fmt.Fprintf(w, "\r\033[K  %s %s %s\n", Mark(err), msg, StepStyle.Render("("+FormatDuration(elapsed)+")"))
	return err
}

// FormatDuration renders d as "850ms", "3.2s" or "2m05s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
