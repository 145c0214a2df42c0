package models

import "time"

type Team struct {
	ID          string            `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	OwnerID     string            `json:"owner_id" db:"owner_id"`
	Members     []string          `json:"members" db:"members"`
	MemberNames map[string]string `json:"member_names" db:"member_names"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`
}

// HasMember сообщает, состоит ли userID в команде.
func (t *Team) HasMember(userID string) bool {
	for _, id := range t.Members {
		if id == userID {
			return true
		}
	}
	return false
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

type TeamInvitation struct {
	ID          string           `json:"id" db:"id"`
	TeamID      string           `json:"team_id" db:"team_id"`
	TeamName    string           `json:"team_name" db:"team_name"`
	FromUserID  string           `json:"from_user_id" db:"from_user_id"`
	ToUserID    string           `json:"to_user_id" db:"to_user_id"`
	Status      InvitationStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty" db:"responded_at"`
}
