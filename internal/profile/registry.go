// internal/profile/registry.go
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telegram-community-bot/internal/logger"
	"telegram-community-bot/internal/models"
)

const baselineRating = 30

var (
	// ErrNotFound means no member row matched the lookup.
	ErrNotFound = errors.New("member not found")
	// ErrAmbiguous means more than one legacy row shares the username.
	ErrAmbiguous = errors.New("multiple members share that username")
	// ErrSweepRunning means a dedup sweep is already in flight.
	ErrSweepRunning = errors.New("dedup sweep already running")
)

// Identity carries the externally-issued fields observed on an inbound
// event. The ID is the platform's stable user identifier.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
}

// Registry owns all member rows. It is stateless apart from the dedup
// in-flight flag; every operation runs against the caller's per-event
// session.
type Registry struct {
	log      *logger.Logger
	sweeping atomic.Bool
}

func NewRegistry(baseLog *logger.Logger) *Registry {
	return &Registry{log: baseLog.With("component", "registry")}
}

// Upsert registers the identity if unseen, otherwise refreshes
// username/first-name drift in place. The insert is conditional on the
// primary key, so concurrent first-contact events for the same ID
// converge on a single row: the loser of the insert race falls through
// to the update path against the winner's row.
func (r *Registry) Upsert(ctx context.Context, tx *gorm.DB, id Identity, defaultRole string) (*models.Member, error) {
	member := &models.Member{
		ID:        id.ID,
		Username:  id.Username,
		FirstName: id.FirstName,
		Rating:    baselineRating,
		Role:      defaultRole,
	}

	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(member)
	if res.Error != nil {
		r.log.Error("upsert insert failed", "user_id", id.ID, "error", res.Error)
		return nil, fmt.Errorf("upsert member %d: %w", id.ID, res.Error)
	}
	if res.RowsAffected == 1 {
		r.log.Info("member registered", "user_id", id.ID, "username", id.Username, "role", defaultRole)
		return member, nil
	}

	var existing models.Member
	if err := tx.WithContext(ctx).First(&existing, "id = ?", id.ID).Error; err != nil {
		return nil, fmt.Errorf("upsert reload member %d: %w", id.ID, err)
	}

	updates := map[string]any{}
	if existing.Username != id.Username {
		updates["username"] = id.Username
	}
	if existing.FirstName != id.FirstName {
		updates["first_name"] = id.FirstName
	}
	if len(updates) == 0 {
		return &existing, nil
	}

	if err := tx.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		r.log.Error("upsert update failed", "user_id", id.ID, "error", err)
		return nil, fmt.Errorf("upsert update member %d: %w", id.ID, err)
	}
	existing.Username = id.Username
	existing.FirstName = id.FirstName
	return &existing, nil
}

func (r *Registry) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*models.Member, error) {
	var member models.Member
	err := tx.WithContext(ctx).First(&member, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member %d: %w", id, err)
	}
	return &member, nil
}

// GetByUsername is a best-effort human-facing lookup. Usernames are not
// unique in legacy data, so an unmerged collision is reported as
// ErrAmbiguous rather than silently picking a row.
func (r *Registry) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.Member, error) {
	var matches []models.Member
	err := tx.WithContext(ctx).
		Where("username = ?", username).
		Order("id").
		Limit(2).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("get member by username %q: %w", username, err)
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &matches[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

// AdjustRating adds delta to the member's rating in a single statement
// so concurrent adjustments serialize on the store's row lock instead
// of racing through a caller-side read-modify-write.
func (r *Registry) AdjustRating(ctx context.Context, tx *gorm.DB, id int64, delta int) (*models.Member, error) {
	res := tx.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Update("rating", gorm.Expr("rating + ?", delta))
	if res.Error != nil {
		r.log.Error("rating adjustment failed", "user_id", id, "error", res.Error)
		return nil, fmt.Errorf("adjust rating for member %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, tx, id)
}

func (r *Registry) SetRole(ctx context.Context, tx *gorm.DB, id int64, role string) (*models.Member, error) {
	res := tx.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		r.log.Error("role update failed", "user_id", id, "error", res.Error)
		return nil, fmt.Errorf("set role for member %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, tx, id)
}

// ListByRole matches the role column case-insensitively by substring.
func (r *Registry) ListByRole(ctx context.Context, tx *gorm.DB, needle string) ([]models.Member, error) {
	var members []models.Member
	err := tx.WithContext(ctx).
		Where("lower(role) LIKE ?", "%"+strings.ToLower(needle)+"%").
		Order("id").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list members by role %q: %w", needle, err)
	}
	return members, nil
}

func (r *Registry) AllRoles(ctx context.Context, tx *gorm.DB) ([]string, error) {
	var roles []string
	err := tx.WithContext(ctx).
		Model(&models.Member{}).
		Where("role <> ''").
		Distinct().
		Order("role").
		Pluck("role", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// RegisterAdministrators bulk-upserts the chat administrator list with
// the Admin role. Returns how many identities were processed.
func (r *Registry) RegisterAdministrators(ctx context.Context, tx *gorm.DB, ids []Identity) (int, error) {
	for _, id := range ids {
		if _, err := r.Upsert(ctx, tx, id, "Admin"); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// Deduplicate merges member rows that still share a legacy username
// key: the lowest ID in each group is canonical, duplicate ratings are
// summed into it, and the duplicates are deleted. Running it twice in a
// row is a no-op the second time. Only one sweep may be in flight; it
// runs to completion once started.
func (r *Registry) Deduplicate(ctx context.Context, tx *gorm.DB) (int, error) {
	if !r.sweeping.CompareAndSwap(false, true) {
		return 0, ErrSweepRunning
	}
	defer r.sweeping.Store(false)

	merged := 0
	err := tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var usernames []string
		err := tx.Model(&models.Member{}).
			Where("username <> ''").
			Group("username").
			Having("COUNT(*) > 1").
			Pluck("username", &usernames).Error
		if err != nil {
			return fmt.Errorf("find duplicate usernames: %w", err)
		}

		for _, username := range usernames {
			var rows []models.Member
			if err := tx.Where("username = ?", username).Order("id").Find(&rows).Error; err != nil {
				return fmt.Errorf("load duplicates for %q: %w", username, err)
			}
			if len(rows) < 2 {
				continue
			}

			canonical := rows[0]
			extra := 0
			for _, dup := range rows[1:] {
				extra += dup.Rating
				if err := tx.Delete(&models.Member{}, "id = ?", dup.ID).Error; err != nil {
					return fmt.Errorf("delete duplicate %d: %w", dup.ID, err)
				}
				merged++
			}

			err := tx.Model(&models.Member{}).
				Where("id = ?", canonical.ID).
				Update("rating", gorm.Expr("rating + ?", extra)).Error
			if err != nil {
				return fmt.Errorf("merge ratings into %d: %w", canonical.ID, err)
			}
			r.log.Info("merged duplicate members",
				"username", username, "canonical_id", canonical.ID, "removed", len(rows)-1)
		}
		return nil
	})
	if err != nil {
		r.log.Error("dedup sweep failed", "error", err)
		return 0, err
	}

	r.log.Info("dedup sweep finished", "merged", merged)
	return merged, nil
}
