package trainer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadExamples(t *testing.T) {
	data := `{"input": "summarize: long article", "output": "short summary"}

{"input": "translate: hello", "output": "bonjour"}
`
	examples, err := ReadExamples(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadExamples: %v", err)
	}
	if len(examples) != 2 {
		t.Fatalf("len = %d, want 2 (blank line skipped)", len(examples))
	}
	if examples[0].Output != "short summary" || examples[1].Input != "translate: hello" {
		t.Errorf("examples = %+v", examples)
	}
}

func TestReadExamples_BadLine(t *testing.T) {
	_, err := ReadExamples(strings.NewReader("{\"input\": \"a\", \"output\": \"b\"}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
}

func TestReadExamples_EmptyInput(t *testing.T) {
	_, err := ReadExamples(strings.NewReader(`{"input": "", "output": "b"}`))
	if err == nil || !strings.Contains(err.Error(), "input is empty") {
		t.Fatalf("expected empty-input error, got %v", err)
	}
}

func TestLoadExamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.jsonl")
	content := `{"input": "q: 2+2", "output": "4"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	examples, err := LoadExamples(path)
	if err != nil {
		t.Fatalf("LoadExamples: %v", err)
	}
	if len(examples) != 1 || examples[0].Output != "4" {
		t.Errorf("examples = %+v", examples)
	}

	if _, err := LoadExamples(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
