// Package schemas defines the data structures
package schemas

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserType is the role of an identity.
type UserType string

const (
	UserTypeMember    UserType = "MEMBER"
	UserTypeAdmin     UserType = "ADMIN"
	UserTypeExecutive UserType = "EXECUTIVE"
	UserTypeDeveloper UserType = "DEVELOPER"
)

// PasswordResetStatus is the lifecycle status of a ledger entry.
type PasswordResetStatus string

// PENDING entries are redeemable and CHANGE_PASSWORD entries audit password changes. DONE is
// reserved for rows closed by other flows; redemption deletes the row instead of tagging it,
// so stores never hand out a DONE entry.
const (
	PasswordResetPending        PasswordResetStatus = "PENDING"
	PasswordResetDone           PasswordResetStatus = "DONE"
	PasswordResetChangePassword PasswordResetStatus = "CHANGE_PASSWORD"
)

// User represents the data model for an identity in the system.
type User struct {
	ID                 uuid.UUID  `json:"id"`                   // Unique identifier for the user.
	Email              string     `json:"email"`                // Email address, unique among non-deleted users.
	Password           string     `json:"-"`                    // Password hash of the user.
	FirstName          string     `json:"first_name"`           // First name of the user.
	LastName           string     `json:"last_name"`            // Last name of the user.
	UserType           UserType   `json:"user_type"`            // Role of the user.
	LoginToken         string     `json:"-"`                    // Session epoch, rotated to invalidate bearer tokens.
	IsVerified         bool       `json:"is_verified"`          // Whether the email address was confirmed.
	IsActive           bool       `json:"is_active"`            // Whether the user may log in.
	IsDeleted          bool       `json:"is_deleted"`           // Soft delete flag.
	DeletedAt          *time.Time `json:"deleted_at"`           // Timestamp of the soft delete.
	LastPasswordUpdate time.Time  `json:"last_password_update"` // Timestamp of the last password change.
	CreatedAt          time.Time  `json:"created_at"`           // Timestamp when the user was created.
}

// FullName mirrors the display name used in mails.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// PasswordResetEntry is a row of the password reset ledger. The pair (email, token) is unique.
type PasswordResetEntry struct {
	ID        uuid.UUID           `json:"id"`
	Email     string              `json:"email"`
	Token     string              `json:"token"`
	Status    PasswordResetStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// AccessLog records one authenticated request. LoginToken is the session epoch the request
// authenticated with, so requests can be grouped by session.
type AccessLog struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	LoginToken string    `json:"-"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	DeviceIP   string    `json:"device_ip"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}
