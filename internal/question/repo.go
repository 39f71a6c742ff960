// internal/question/repo.go
package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"telegram-community-bot/internal/logger"
	"telegram-community-bot/internal/models"
)

// ErrNoQuestions means the category is empty; callers reply "no items"
// rather than treating it as a store failure.
var ErrNoQuestions = errors.New("no questions in category")

// Repo is one trivia category. Instantiate it once per category type;
// the type parameter selects the table.
type Repo[T models.Question] struct {
	log *logger.Logger
}

func NewRepo[T models.Question](baseLog *logger.Logger) *Repo[T] {
	return &Repo[T]{log: baseLog.With("component", "questions")}
}

func (r *Repo[T]) Add(ctx context.Context, tx *gorm.DB, questionText, answer string) (*T, error) {
	item := T(models.QuestionRow{QuestionText: questionText, Answer: answer})
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		r.log.Error("add question failed", "error", err)
		return nil, fmt.Errorf("add question: %w", err)
	}
	return &item, nil
}

func (r *Repo[T]) List(ctx context.Context, tx *gorm.DB) ([]string, error) {
	var texts []string
	err := tx.WithContext(ctx).
		Model(new(T)).
		Order("id").
		Pluck("question_text", &texts).Error
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return texts, nil
}

// Random draws uniformly: fetch the count, pick one offset in
// [0, count), fetch exactly that row. No skip-N scan over the table.
func (r *Repo[T]) Random(ctx context.Context, tx *gorm.DB) (*T, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(new(T)).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if count == 0 {
		return nil, ErrNoQuestions
	}

	var item T
	err := tx.WithContext(ctx).
		Order("id").
		Offset(rand.Intn(int(count))).
		First(&item).Error
	if err != nil {
		return nil, fmt.Errorf("draw question: %w", err)
	}
	return &item, nil
}
