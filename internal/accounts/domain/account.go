package domain

import "time"

// Account is a registered user. Username and Email are stored lower-cased.
type Account struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	AvatarURL     string
	CoverImageURL string
	PasswordHash  string // argon2id PHC, or bcrypt for accounts carried over
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProfileUpdate carries the fields a user may change about themselves. Nil
// fields are left as they are.
type ProfileUpdate struct {
	FullName      *string
	Email         *string
	AvatarURL     *string
	CoverImageURL *string
}

// IsEmpty reports whether the update changes nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.FullName == nil && p.Email == nil && p.AvatarURL == nil && p.CoverImageURL == nil
}

// Apply copies the set fields onto a.
func (p ProfileUpdate) Apply(a *Account) {
	if p.FullName != nil {
		a.FullName = *p.FullName
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.AvatarURL != nil {
		a.AvatarURL = *p.AvatarURL
	}
	if p.CoverImageURL != nil {
		a.CoverImageURL = *p.CoverImageURL
	}
}
