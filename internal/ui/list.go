package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = statusItem{}

// statusItem wraps one status notification to implement [list.Item].
type statusItem struct {
	text string
	at   time.Time
}

func (i statusItem) FilterValue() string { return i.text }
func (i statusItem) Title() string       { return i.text }
func (i statusItem) Description() string { return i.at.Format(time.TimeOnly) }

const maxHistory = 20

func newHistory() list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Recent"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return l
}
