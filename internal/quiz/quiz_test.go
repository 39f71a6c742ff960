// internal/quiz/quiz_test.go
package quiz

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	q, err := Parse("/createquiz | What does CAP stand for? | 1 | Consistency | Availability | Partitioning")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Question != "What does CAP stand for?" {
		t.Fatalf("unexpected question: %q", q.Question)
	}
	if q.CorrectIndex != 1 {
		t.Fatalf("unexpected correct index: %d", q.CorrectIndex)
	}
	if len(q.Options) != 3 || q.Options[2] != "Partitioning" {
		t.Fatalf("unexpected options: %v", q.Options)
	}
}

func TestParseTooFewParts(t *testing.T) {
	_, err := Parse("/createquiz | only a question | 0")
	if !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}

func TestParseBadCorrectOption(t *testing.T) {
	cases := []string{
		"/createquiz | q | x | a | b",
		"/createquiz | q | -1 | a | b",
		"/createquiz | q | 2 | a | b",
	}
	for _, text := range cases {
		if _, err := Parse(text); !errors.Is(err, ErrBadCorrectOption) {
			t.Fatalf("%q: expected ErrBadCorrectOption, got %v", text, err)
		}
	}
}

func TestParseBoundaryIndex(t *testing.T) {
	q, err := Parse("/createquiz | q | 0 | only")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.CorrectIndex != 0 || len(q.Options) != 1 {
		t.Fatalf("unexpected quiz: %+v", q)
	}
}
