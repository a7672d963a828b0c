package schema

import (
	"encoding/json"
	"time"
)

// StatusMessage is the envelope published to the result queue on every
// status transition other than PENDING.
type StatusMessage struct {
	TaskID   string `json:"taskId"`
	Status   string `json:"status"`
	DateTime string `json:"dateTime"`
}

// StatusMessageFor builds the result-queue message for the task's current
// status: dateTime is processedAt for PROCESSING and finishedAt for
// DONE/FAILED. An unset timestamp yields an empty dateTime.
func StatusMessageFor(t *Task) StatusMessage {
	msg := StatusMessage{
		TaskID: t.TaskID.String(),
		Status: string(t.Status),
	}

	var ts *time.Time
	switch t.Status {
	case StatusProcessing:
		ts = t.ProcessedAt
	case StatusDone, StatusFailed:
		ts = t.FinishedAt
	}
	if ts != nil {
		msg.DateTime = ts.Format(time.RFC3339)
	}
	return msg
}

// Encode serializes the status message.
func (m StatusMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}
