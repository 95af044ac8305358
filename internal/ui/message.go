package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotfill/internal/models"
)

// MsgKind enumerates all message types in the popup.
type MsgKind int

// Msg represents all possible messages in the popup (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStatusFetched MsgKind = iota
	MsgSubscribed
	MsgNotification
	MsgStreamClosed
	MsgCommandSent
)

type statusFetched struct {
	status models.SessionStatus
	err    error
}

type subscribed struct {
	events <-chan models.Notification
	err    error
}

// statusFetchedMsg is the constructor for [MsgStatusFetched]
func statusFetchedMsg(status models.SessionStatus, err error) Msg {
	return Msg{kind: MsgStatusFetched, data: statusFetched{status, err}}
}

// subscribedMsg is the constructor for [MsgSubscribed]
func subscribedMsg(events <-chan models.Notification, err error) Msg {
	return Msg{kind: MsgSubscribed, data: subscribed{events, err}}
}

// notificationMsg is the constructor for [MsgNotification]
func notificationMsg(n models.Notification) Msg {
	return Msg{kind: MsgNotification, data: n}
}

// streamClosedMsg is the constructor for [MsgStreamClosed]
func streamClosedMsg() Msg {
	return Msg{kind: MsgStreamClosed}
}

// commandSentMsg is the constructor for [MsgCommandSent]
func commandSentMsg(err error) Msg {
	return Msg{kind: MsgCommandSent, data: err}
}
