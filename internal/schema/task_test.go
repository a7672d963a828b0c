package schema

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const camelEnvelope = `{
	"taskId": "11111111-1111-1111-1111-111111111111",
	"status": "PENDING",
	"document": {
		"title": "Doc A",
		"authors": [{"name": "Ada", "institution": "MIT"}],
		"keywords": [{"name": "retrieval"}],
		"fileName": "papers/a.pdf",
		"doc_type": "paper",
		"bucket": null,
		"publicationDate": "2023-06-01T00:00:00Z",
		"language": "en"
	},
	"createdAt": "2024-01-01T00:00:00Z",
	"processedAt": null,
	"finishedAt": null,
	"taskType": "default",
	"destinationCollection": "papers"
}`

const snakeEnvelope = `{
	"task_id": "11111111-1111-1111-1111-111111111111",
	"status": "PENDING",
	"document": {
		"title": "Doc A",
		"authors": [{"name": "Ada", "institution": "MIT"}],
		"keywords": [{"name": "retrieval"}],
		"file_name": "papers/a.pdf",
		"doc_type": "paper",
		"publicationDate": "2023-06-01T00:00:00Z",
		"language": "en"
	},
	"created_at": "2024-01-01T00:00:00Z",
	"task_type": "default",
	"destination_collection": "papers"
}`

func TestParseTask_CamelAndSnakeAgree(t *testing.T) {
	camel, err := ParseTask([]byte(camelEnvelope))
	if err != nil {
		t.Fatalf("parse camel form: %v", err)
	}
	snake, err := ParseTask([]byte(snakeEnvelope))
	if err != nil {
		t.Fatalf("parse snake form: %v", err)
	}

	if camel.TaskID != snake.TaskID {
		t.Errorf("task id mismatch: %s vs %s", camel.TaskID, snake.TaskID)
	}
	if camel.Document.FileName != "papers/a.pdf" || snake.Document.FileName != "papers/a.pdf" {
		t.Errorf("fileName not picked up from both forms")
	}
	if camel.Document.DocType != snake.Document.DocType {
		t.Errorf("docType mismatch: %q vs %q", camel.Document.DocType, snake.Document.DocType)
	}
	if !camel.CreatedAt.Equal(snake.CreatedAt) {
		t.Errorf("createdAt mismatch: %v vs %v", camel.CreatedAt, snake.CreatedAt)
	}
	if camel.TaskType != snake.TaskType || camel.TaskType != "default" {
		t.Errorf("taskType mismatch: %q vs %q", camel.TaskType, snake.TaskType)
	}
	if camel.DestinationCollection != "papers" || snake.DestinationCollection != "papers" {
		t.Errorf("destinationCollection not picked up from both forms")
	}
}

func TestParseTask_RoundTrip(t *testing.T) {
	orig, err := ParseTask([]byte(camelEnvelope))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	encoded, err := orig.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := ParseTask(encoded)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}

	if decoded.TaskID != orig.TaskID {
		t.Errorf("taskId changed: %s vs %s", decoded.TaskID, orig.TaskID)
	}
	if decoded.Status != orig.Status {
		t.Errorf("status changed: %s vs %s", decoded.Status, orig.Status)
	}
	if !decoded.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("createdAt changed")
	}
	if decoded.Document.Title != orig.Document.Title ||
		decoded.Document.FileName != orig.Document.FileName ||
		decoded.Document.DocType != orig.Document.DocType ||
		decoded.Document.Language != orig.Document.Language {
		t.Errorf("document changed: %+v vs %+v", decoded.Document, orig.Document)
	}
	if len(decoded.Document.Authors) != 1 || decoded.Document.Authors[0] != orig.Document.Authors[0] {
		t.Errorf("authors changed")
	}
	if decoded.TaskType != orig.TaskType || decoded.DestinationCollection != orig.DestinationCollection {
		t.Errorf("routing fields changed")
	}
}

func TestParseTask_Malformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not a task", `{"not":"a task"}`},
		{"invalid json", `{{{`},
		{"missing document", `{"taskId":"11111111-1111-1111-1111-111111111111","createdAt":"2024-01-01T00:00:00Z"}`},
		{"missing fileName", `{"taskId":"11111111-1111-1111-1111-111111111111","document":{"title":"x"},"createdAt":"2024-01-01T00:00:00Z"}`},
		{"bad uuid", `{"taskId":"nope","document":{"fileName":"a.pdf"},"createdAt":"2024-01-01T00:00:00Z"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseTask([]byte(tc.body)); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
}

func TestParseTask_StatusFallback(t *testing.T) {
	body := strings.Replace(camelEnvelope, `"status": "PENDING"`, `"status": "BOGUS"`, 1)
	task, err := ParseTask([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if task.Status != StatusPending {
		t.Errorf("expected fallback to PENDING, got %s", task.Status)
	}
}

func TestParseTask_DefaultsWhenOmitted(t *testing.T) {
	body := `{
		"taskId": "22222222-2222-2222-2222-222222222222",
		"status": "PENDING",
		"document": {"title": "B", "authors": [], "keywords": [], "fileName": "b.pdf", "doc_type": "book"},
		"createdAt": "2024-01-01T00:00:00Z"
	}`
	task, err := ParseTask([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if task.TaskType != DefaultTaskType {
		t.Errorf("expected default taskType, got %q", task.TaskType)
	}
	if task.Document.Language != "unknown" {
		t.Errorf("expected language default unknown, got %q", task.Document.Language)
	}
	if task.ProcessedAt != nil || task.FinishedAt != nil {
		t.Errorf("expected nil timestamps on fresh task")
	}
}

func TestTaskStatusFromString(t *testing.T) {
	cases := map[string]TaskStatus{
		"PENDING":    StatusPending,
		"processing": StatusProcessing,
		"Done":       StatusDone,
		"FAILED":     StatusFailed,
		"bogus":      StatusPending,
		"":           StatusPending,
	}
	for in, want := range cases {
		if got := TaskStatusFromString(in); got != want {
			t.Errorf("TaskStatusFromString(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestStatusMessageFor(t *testing.T) {
	processed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	finished := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	task := &Task{
		TaskID:      uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Status:      StatusProcessing,
		ProcessedAt: &processed,
		FinishedAt:  &finished,
	}

	msg := StatusMessageFor(task)
	if msg.Status != "PROCESSING" {
		t.Errorf("status = %s", msg.Status)
	}
	if msg.DateTime != "2024-01-01T10:00:00Z" {
		t.Errorf("dateTime = %s, want processedAt", msg.DateTime)
	}

	task.Status = StatusDone
	msg = StatusMessageFor(task)
	if msg.DateTime != "2024-01-01T10:05:00Z" {
		t.Errorf("dateTime = %s, want finishedAt", msg.DateTime)
	}

	task.Status = StatusFailed
	msg = StatusMessageFor(task)
	if msg.DateTime != "2024-01-01T10:05:00Z" {
		t.Errorf("dateTime = %s, want finishedAt", msg.DateTime)
	}
}

func TestDocumentStem(t *testing.T) {
	cases := map[string]string{
		"a.pdf":          "a",
		"folder/a.pdf":   "a",
		"a.b.pdf":        "a.b",
		"noext":          "noext",
		"dir.v1/plain":   "plain",
		"x/y/z.tar.gz":   "z.tar",
	}
	for in, want := range cases {
		d := Document{FileName: in}
		if got := d.Stem(); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDocumentMetadata(t *testing.T) {
	pub := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	d := Document{
		Title:           "Doc A",
		Authors:         []Author{{Name: "Ada", Institution: "MIT"}},
		Keywords:        []Keyword{{Name: "retrieval"}},
		FileName:        "a.pdf",
		DocType:         "paper",
		PublicationDate: &pub,
		Language:        "en",
	}
	md := d.Metadata()
	if md["title"] != "Doc A" {
		t.Errorf("title = %v", md["title"])
	}
	if md["publicationDate"] != "2023-06-01T00:00:00Z" {
		t.Errorf("publicationDate = %v", md["publicationDate"])
	}
	authors := md["authors"].([]map[string]string)
	if len(authors) != 1 || authors[0]["name"] != "Ada" {
		t.Errorf("authors = %v", authors)
	}

	d.PublicationDate = nil
	if md := d.Metadata(); md["publicationDate"] != nil {
		t.Errorf("expected nil publicationDate, got %v", md["publicationDate"])
	}
}
