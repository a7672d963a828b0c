// Package schema defines the task envelope carried on the task queue and
// the status messages published to the result queue.
package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a preprocess task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusProcessing TaskStatus = "PROCESSING"
	StatusDone       TaskStatus = "DONE"
	StatusFailed     TaskStatus = "FAILED"
)

// TaskStatusFromString parses a status string case-insensitively, falling
// back to PENDING for anything unrecognized.
func TaskStatusFromString(s string) TaskStatus {
	switch TaskStatus(strings.ToUpper(s)) {
	case StatusPending, StatusProcessing, StatusDone, StatusFailed:
		return TaskStatus(strings.ToUpper(s))
	default:
		return StatusPending
	}
}

// Terminal reports whether the status is DONE or FAILED.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// DefaultTaskType selects the fallback pipeline in the registry.
const DefaultTaskType = "default"

// Task is one document's preprocess work unit.
type Task struct {
	TaskID                uuid.UUID  `json:"taskId"`
	Status                TaskStatus `json:"status"`
	Document              Document   `json:"document"`
	CreatedAt             time.Time  `json:"createdAt"`
	ProcessedAt           *time.Time `json:"processedAt"`
	FinishedAt            *time.Time `json:"finishedAt"`
	TaskType              string     `json:"taskType,omitempty"`
	DestinationCollection string     `json:"destinationCollection,omitempty"`
}

// taskWire accepts both field-name and alias forms on ingest; unknown
// fields are ignored.
type taskWire struct {
	TaskID           *uuid.UUID       `json:"taskId"`
	TaskIDSnake      *uuid.UUID       `json:"task_id"`
	Status           *string          `json:"status"`
	Document         *json.RawMessage `json:"document"`
	CreatedAt        *time.Time       `json:"createdAt"`
	CreatedAtSnake   *time.Time       `json:"created_at"`
	ProcessedAt      *time.Time       `json:"processedAt"`
	ProcessedAtSnake *time.Time       `json:"processed_at"`
	FinishedAt       *time.Time       `json:"finishedAt"`
	FinishedAtSnake  *time.Time       `json:"finished_at"`
	TaskType         *string          `json:"taskType"`
	TaskTypeSnake    *string          `json:"task_type"`
	DestColl         *string          `json:"destinationCollection"`
	DestCollSnake    *string          `json:"destination_collection"`
}

var (
	// ErrMalformedTask marks envelopes that cannot be decoded into a task.
	ErrMalformedTask = errors.New("malformed task envelope")
)

// ParseTask decodes a task envelope. Both camelCase and snake_case key
// forms are accepted. A missing or unrecognized status falls back to
// PENDING; a missing task id, document or creation time is malformed.
func ParseTask(body []byte) (*Task, error) {
	var w taskWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, errors.Join(ErrMalformedTask, err)
	}

	t := &Task{}
	switch {
	case w.TaskID != nil:
		t.TaskID = *w.TaskID
	case w.TaskIDSnake != nil:
		t.TaskID = *w.TaskIDSnake
	default:
		return nil, errors.Join(ErrMalformedTask, errors.New("missing taskId"))
	}

	if w.Status != nil {
		t.Status = TaskStatusFromString(*w.Status)
	} else {
		t.Status = StatusPending
	}

	if w.Document == nil {
		return nil, errors.Join(ErrMalformedTask, errors.New("missing document"))
	}
	if err := json.Unmarshal(*w.Document, &t.Document); err != nil {
		return nil, errors.Join(ErrMalformedTask, err)
	}
	if t.Document.FileName == "" {
		return nil, errors.Join(ErrMalformedTask, errors.New("missing document.fileName"))
	}

	switch {
	case w.CreatedAt != nil:
		t.CreatedAt = *w.CreatedAt
	case w.CreatedAtSnake != nil:
		t.CreatedAt = *w.CreatedAtSnake
	default:
		return nil, errors.Join(ErrMalformedTask, errors.New("missing createdAt"))
	}

	if w.ProcessedAt != nil {
		t.ProcessedAt = w.ProcessedAt
	} else {
		t.ProcessedAt = w.ProcessedAtSnake
	}
	if w.FinishedAt != nil {
		t.FinishedAt = w.FinishedAt
	} else {
		t.FinishedAt = w.FinishedAtSnake
	}

	t.TaskType = DefaultTaskType
	if w.TaskType != nil && *w.TaskType != "" {
		t.TaskType = *w.TaskType
	} else if w.TaskTypeSnake != nil && *w.TaskTypeSnake != "" {
		t.TaskType = *w.TaskTypeSnake
	}

	if w.DestColl != nil {
		t.DestinationCollection = *w.DestColl
	} else if w.DestCollSnake != nil {
		t.DestinationCollection = *w.DestCollSnake
	}

	return t, nil
}

// Encode serializes the task in its camelCase wire form.
func (t *Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}
