package producer

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/predoc-io/predoc/internal/schema"
)

func TestCollectPDFs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.pdf", "b.PDF", "notes.txt", "nested/c.pdf", "nested/d.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	pdfs, err := CollectPDFs([]string{dir})
	if err != nil {
		t.Fatalf("CollectPDFs: %v", err)
	}
	var bases []string
	for _, p := range pdfs {
		bases = append(bases, filepath.Base(p))
	}
	sort.Strings(bases)
	want := []string{"a.pdf", "b.PDF", "c.pdf"}
	if len(bases) != len(want) {
		t.Fatalf("got %v, want %v", bases, want)
	}
	for i := range want {
		if bases[i] != want[i] {
			t.Errorf("got %v, want %v", bases, want)
			break
		}
	}

	single, err := CollectPDFs([]string{filepath.Join(dir, "a.pdf")})
	if err != nil || len(single) != 1 {
		t.Errorf("single file: got %v, %v", single, err)
	}

	if _, err := CollectPDFs([]string{filepath.Join(dir, "missing.pdf")}); err == nil {
		t.Error("want error for missing path")
	}
}

func TestNewTask(t *testing.T) {
	task := NewTask("/data/papers/attention.pdf", Options{})
	if task.TaskID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("task id not assigned")
	}
	if task.Status != schema.StatusPending {
		t.Errorf("status = %s, want PENDING", task.Status)
	}
	if task.TaskType != schema.DefaultTaskType {
		t.Errorf("taskType = %s", task.TaskType)
	}
	if task.Document.FileName != "attention.pdf" {
		t.Errorf("fileName = %s", task.Document.FileName)
	}
	if task.Document.Title != "attention" {
		t.Errorf("title = %s", task.Document.Title)
	}
	if task.CreatedAt.IsZero() {
		t.Error("createdAt not set")
	}
	if len(task.Document.Authors) != 0 || len(task.Document.Keywords) != 0 {
		t.Error("authors/keywords should be empty, not nil-omitted")
	}
}

func TestNewTaskOptions(t *testing.T) {
	task := NewTask("report.pdf", Options{
		Prefix:     "2026/batch1/",
		TaskType:   "print-filename",
		Collection: "reports",
	})
	if task.Document.FileName != "2026/batch1/report.pdf" {
		t.Errorf("fileName = %s", task.Document.FileName)
	}
	if task.TaskType != "print-filename" {
		t.Errorf("taskType = %s", task.TaskType)
	}
	if task.DestinationCollection != "reports" {
		t.Errorf("destinationCollection = %s", task.DestinationCollection)
	}

	// The envelope round-trips through the wire format.
	body, err := task.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	parsed, err := schema.ParseTask(body)
	if err != nil {
		t.Fatalf("ParseTask: %v", err)
	}
	if parsed.Document.FileName != task.Document.FileName || parsed.TaskType != task.TaskType {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}
