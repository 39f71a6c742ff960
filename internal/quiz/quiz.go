// internal/quiz/quiz.go
package quiz

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrBadFormat means the pipe-separated quiz text has too few parts.
	ErrBadFormat = errors.New("quiz needs a question, a correct option index and at least one option")
	// ErrBadCorrectOption means the index does not name one of the options.
	ErrBadCorrectOption = errors.New("correct option index out of range")
)

// Quiz is a parsed /createquiz payload.
type Quiz struct {
	Question     string
	CorrectIndex int64
	Options      []string
}

// Parse splits "/createquiz | question | correctIndex | opt1 | opt2 | ..."
// into a Quiz. Parts are trimmed; the index must address one of the
// options.
func Parse(text string) (*Quiz, error) {
	parts := strings.Split(text, "|")
	if len(parts) < 4 {
		return nil, ErrBadFormat
	}

	correctIndex, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || correctIndex < 0 || correctIndex >= len(parts)-3 {
		return nil, ErrBadCorrectOption
	}

	options := make([]string, 0, len(parts)-3)
	for _, option := range parts[3:] {
		options = append(options, strings.TrimSpace(option))
	}

	return &Quiz{
		Question:     strings.TrimSpace(parts[1]),
		CorrectIndex: int64(correctIndex),
		Options:      options,
	}, nil
}
