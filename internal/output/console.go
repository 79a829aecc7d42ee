package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	okLabel   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	skipLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// ConsoleSink renders item results and the final summary for humans.
type ConsoleSink struct {
	writer          io.Writer
	mu              sync.Mutex
	allowedStatuses map[string]bool
}

func NewConsoleSink(w io.Writer, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}

	s := &ConsoleSink{writer: w}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[string]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[strings.ToLower(st)] = true
		}
	}

	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t := v.(type) {
	case ItemResult:
		if len(s.allowedStatuses) > 0 && !s.allowedStatuses[strings.ToLower(t.Status)] {
			return nil
		}
		if err := s.writeResult(t); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case Event:
		if t.Type != "run.finished" {
			// Other lifecycle events have no console rendering.
			return nil
		}
		if err := s.writeSummary(t); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return nil
	}
}

func (s *ConsoleSink) writeResult(r ItemResult) error {
	var label string
	switch r.Status {
	case "succeeded":
		label = okLabel("[ OK ]")
	case "failed":
		label = failLabel("[FAIL]")
	case "skipped":
		label = skipLabel("[SKIP]")
	default:
		label = fmt.Sprintf("[%s]", r.Status)
	}
	if _, err := fmt.Fprintf(s.writer, "%s %s %s", label, r.Action, r.Repo); err != nil {
		return err
	}
	if r.Reason != "" {
		if _, err := fmt.Fprintf(s.writer, " - %s", r.Reason); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(s.writer)
	return err
}

func (s *ConsoleSink) writeSummary(e Event) error {
	if e.Succeeded == 0 && e.Failed == 0 && e.Skipped == 0 {
		return nil
	}
	_, err := fmt.Fprintf(s.writer, "Done: %s, %s, %s\n",
		okLabel(fmt.Sprintf("%d succeeded", e.Succeeded)),
		failLabel(fmt.Sprintf("%d failed", e.Failed)),
		skipLabel(fmt.Sprintf("%d skipped", e.Skipped)))
	return err
}

func (s *ConsoleSink) Close() error {
	return nil
}
