package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionStart is the only command action the controller acts on.
const ActionStart = "btn_add"

// Command is a message sent by a UI surface to the controller.
type Command struct {
	Action string `json:"action"`
}

// NotificationKind distinguishes the two notification payloads.
type NotificationKind int

const (
	NotificationBusy NotificationKind = iota
	NotificationStatus
)

// Notification is a message from the controller to UI surfaces: a busy flag or a status string.
//
// On the wire it is a bare JSON boolean or a bare JSON string.
type Notification struct {
	Kind   NotificationKind
	Busy   bool
	Status string
}

// BusyNotification creates a busy flag notification.
func BusyNotification(busy bool) Notification {
	return Notification{Kind: NotificationBusy, Busy: busy}
}

// StatusNotification creates a status text notification.
func StatusNotification(status string) Notification {
	return Notification{Kind: NotificationStatus, Status: status}
}

func (n Notification) String() string {
	if n.Kind == NotificationBusy {
		return fmt.Sprintf("busy=%t", n.Busy)
	}
	return n.Status
}

// MarshalJSON implements [json.Marshaler].
func (n Notification) MarshalJSON() ([]byte, error) {
	if n.Kind == NotificationBusy {
		return json.Marshal(n.Busy)
	}
	return json.Marshal(n.Status)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (n *Notification) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty notification")
	}

	switch data[0] {
	case 't', 'f':
		var busy bool
		if err := json.Unmarshal(data, &busy); err != nil {
			return err
		}
		*n = BusyNotification(busy)
	case '"':
		var status string
		if err := json.Unmarshal(data, &status); err != nil {
			return err
		}
		*n = StatusNotification(status)
	default:
		return fmt.Errorf("notification must be a boolean or a string, got %s", data)
	}
	return nil
}
