package store

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile is the per-user document holding membership lists and the
// book-to-review index. The document primary key is a generated ID; the
// auth user identifier lives in the UID field and is what callers query by.
type UserProfile struct {
	ID        string `gorm:"primaryKey" json:"id"`
	UID       string `gorm:"uniqueIndex;not null" json:"uid"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `gorm:"index" json:"email"`

	// Membership lists of book identifiers. ReadHistory is declared but no
	// current flow populates it.
	Favorites   StringList `gorm:"type:text" json:"favorites"`
	ReadingList StringList `gorm:"type:text" json:"readingList"`
	ReadHistory StringList `gorm:"type:text" json:"readHistory"`

	// Reviews maps book identifiers to this user's review identifier
	Reviews StringMap `gorm:"type:text" json:"reviews"`

	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Review is a user's rating of a book. DisplayName is a snapshot taken at
// write time and is not kept in sync with later profile edits.
type Review struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	BookID      string     `gorm:"index;not null" json:"bookId"`
	UserID      string     `gorm:"index;not null" json:"userId"`
	DisplayName string     `json:"userName,omitempty"`
	Rating      int        `gorm:"not null" json:"rating"`
	Body        string     `gorm:"type:text" json:"review,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`
}

// BeforeCreate hook for UserProfile
func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return nil
}
