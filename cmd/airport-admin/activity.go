package main

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// Severity of an activity entry
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Entry is one line of the activity panel.
type Entry struct {
	Time     time.Time
	Severity Severity
	Message  string
}

// ActivityLog keeps the most recent registry operations and mirrors them to
// the process log file.
type ActivityLog struct {
	view    *tview.TextView
	entries []Entry
	limit   int
	mu      sync.Mutex
}

// NewActivityLog creates a panel holding at most limit entries.
func NewActivityLog(limit int) *ActivityLog {
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(limit)
	view.SetBorder(true).SetTitle(" Activity ")

	return &ActivityLog{
		view:    view,
		entries: make([]Entry, 0, limit),
		limit:   limit,
	}
}

// View returns the tview component.
func (l *ActivityLog) View() tview.Primitive {
	return l.view
}

func (l *ActivityLog) Info(format string, args ...interface{}) {
	l.add(SeverityInfo, format, args...)
}

func (l *ActivityLog) Warn(format string, args ...interface{}) {
	l.add(SeverityWarn, format, args...)
}

func (l *ActivityLog) Error(format string, args ...interface{}) {
	l.add(SeverityError, format, args...)
}

// Entries returns a copy of the retained entries.
func (l *ActivityLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *ActivityLog) add(severity Severity, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("%s %s", severity, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{Time: time.Now(), Severity: severity, Message: msg})
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}

	l.view.Clear()
	for _, e := range l.entries {
		fmt.Fprintf(l.view, "[gray]%s[-] [%s]%-5s[-] %s\n",
			e.Time.Format("15:04:05"), severityColor(e.Severity), e.Severity, tview.Escape(e.Message))
	}
	l.view.ScrollToEnd()
}

func severityColor(s Severity) string {
	switch s {
	case SeverityWarn:
		return "yellow"
	case SeverityError:
		return "red"
	default:
		return "white"
	}
}
