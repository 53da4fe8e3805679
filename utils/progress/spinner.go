// Package progress reports generation progress on a terminal or to a channel.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Spinner struct {
	out      io.Writer
	chars    []string
	index    int
	message  string
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	stopped  bool
	running  bool
	disabled bool // Used for testing and non-interactive output
	progress Writer
}

func NewSpinner() *Spinner {
	return &Spinner{
		out:   os.Stderr,
		chars: []string{"|", "/", "-", "\\"},
		stop:  make(chan struct{}),
	}
}

// SetOutput redirects spinner output
func (s *Spinner) SetOutput(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
}

func (s *Spinner) SetProgressWriter(w Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = w
}

// Disable prevents the spinner from showing any output
func (s *Spinner) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
}

func (s *Spinner) Start(message string) {
	s.mu.Lock()
	if s.stopped {
		s.stop = make(chan struct{})
		s.stopped = false
	}
	s.message = message
	progress := s.progress
	disabled := s.disabled
	if !disabled {
		s.running = true
	}
	stop := s.stop
	s.mu.Unlock()

	if progress != nil {
		_ = progress.WriteProgress(Update{Type: UpdateStep, Message: message})
	}
	if disabled {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s... %s", s.message, s.chars[s.index])
			s.index = (s.index + 1) % len(s.chars)
			s.mu.Unlock()

			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// SetMessage replaces the text shown next to the spinner
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && len(message) < len(s.message) {
		// clear leftover characters from the longer message
		fmt.Fprintf(s.out, "\r%*s", len(s.message)+5, "")
	}
	s.message = message
}

// Stop ends the spinner, printing the final message with a status suffix
func (s *Spinner) Stop(status string) {
	s.mu.Lock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
	s.mu.Unlock()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	msg := fmt.Sprintf("%s... %s", s.message, status)
	if s.running {
		fmt.Fprintf(s.out, "\r%s     \n", msg)
		s.running = false
	}
	if s.progress != nil {
		_ = s.progress.WriteProgress(Update{Type: UpdateComplete, Message: msg})
	}
}
