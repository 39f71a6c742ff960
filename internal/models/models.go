// internal/models/models.go
package models

// Member is one registered chat participant. The primary key is the
// Telegram user ID issued by the platform, never an auto-increment.
// Usernames are mutable and not unique: legacy rows were keyed by
// username before the migration to IDs, so duplicates can still exist
// until the dedup sweep merges them.
type Member struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Username  string `gorm:"size:100;index"`
	FirstName string `gorm:"size:100"`
	Rating    int    `gorm:"not null;default:30"`
	Role      string `gorm:"size:100;index;default:Newbie-Developer"`
}

// DisplayName prefers @username, falls back to the first name.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	if m.FirstName != "" {
		return m.FirstName
	}
	return "NoName"
}

// QuestionRow is the shared shape of every trivia category. Categories
// are distinct types over this one struct, so each gets its own table
// with an identical column set and the repository stays generic.
type QuestionRow struct {
	ID           uint   `gorm:"primaryKey"`
	QuestionText string `gorm:"size:1000;not null"`
	Answer       string `gorm:"size:10000;not null"`
}

type BackendQuestion QuestionRow

type FrontendQuestion QuestionRow

// Question constrains the generic content repository to the category
// tables above.
type Question interface {
	BackendQuestion | FrontendQuestion
}
