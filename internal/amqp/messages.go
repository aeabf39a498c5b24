package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action says what happened to the entity named in a change message.
type Action string

const (
	ActionCreated        Action = "created"
	ActionUpdated        Action = "updated"
	ActionDeleted        Action = "deleted"
	ActionProjectDeleted Action = "project_deleted"
)

// ChangeMessage announces that a project's transactions changed. It carries
// identifiers only; consumers reload the current state from storage.
type ChangeMessage struct {
	ProjectID     string    `json:"project_id"`
	Kind          string    `json:"kind,omitempty"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Action        Action    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewChangeMessage creates a change message stamped with the current time.
func NewChangeMessage(projectID, kind string, transactionID int64, action Action) *ChangeMessage {
	return &ChangeMessage{
		ProjectID:     projectID,
		Kind:          kind,
		TransactionID: transactionID,
		Action:        action,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and checks it names a project.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ProjectID == "" {
		return nil, fmt.Errorf("change message without project_id")
	}
	return &msg, nil
}
