package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is derived from is_active
type AccountStatus string

const (
	// StatusPending is a registered account waiting for activation
	StatusPending AccountStatus = "pending"
	// StatusActive is an activated account
	StatusActive AccountStatus = "active"
)

// Gender values accepted by Profile
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Account is the credential record
type Account struct {
	bun.BaseModel  `bun:"table:accounts,alias:acc"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Email          string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	IsActive       bool       `bun:"is_active,notnull" json:"is_active"`
	Role           UserRole   `bun:"role,notnull" json:"role"`
	LoginAttempts  int        `bun:"login_attempts,notnull" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"-"`
	LastLoginAt    *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull" json:"updated_at"`

	Profile *Profile `bun:"rel:has-one,join:id=account_id" json:"profile,omitempty"`
}

// Status maps the active flag onto the lifecycle state
func (a *Account) Status() AccountStatus {
	if a.IsActive {
		return StatusActive
	}
	return StatusPending
}

// IsAdmin replaces the admin flag with a role check
func (a *Account) IsAdmin() bool {
	return a.Role.IsAtLeast(RoleAdmin)
}

// Profile is the one-to-one personal data record of an Account
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	AccountID     uuid.UUID `bun:"account_id,notnull,unique,type:uuid" json:"account_id"`
	Mobile        string    `bun:"mobile,notnull" json:"mobile"`
	MobileE164    string    `bun:"mobile_e164,notnull" json:"mobile_e164"`
	Location      string    `bun:"location,notnull" json:"location"`
	DOB           string    `bun:"dob,notnull" json:"dob"`
	Bio           string    `bun:"bio,notnull" json:"bio"`
	Gender        Gender    `bun:"gender,notnull" json:"gender"`
	Avatar        string    `bun:"avatar,notnull" json:"avatar"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// NormalizeEmail lower-cases and trims an address for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
