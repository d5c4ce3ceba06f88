package collab

import (
	"fmt"
	"strings"
	"time"
)

// Activity is one entry of the user's notification feed.
type Activity struct {
	ID         int64       `json:"id"`
	Action     string      `json:"action"`
	ReadAt     *time.Time  `json:"read_at"`
	Actor      *UserRef    `json:"actor,omitempty"`
	Notifiable *Notifiable `json:"notifiable,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Notifiable is the resource an activity refers to.
type Notifiable struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Unread reports whether the activity has not been marked read.
func (a Activity) Unread() bool {
	return a.ReadAt == nil
}

// Message renders the activity as a sentence for the feed.
func (a Activity) Message() string {
	actor := "Unknown user"
	if a.Actor != nil && a.Actor.Username != "" {
		actor = a.Actor.Username
	}
	item, kind := "unknown item", "item"
	if a.Notifiable != nil {
		if a.Notifiable.Name != "" {
			item = a.Notifiable.Name
		}
		if a.Notifiable.Type != "" {
			kind = strings.ToLower(a.Notifiable.Type)
		}
	}

	switch a.Action {
	case "invited":
		return fmt.Sprintf("%s invited you to %s \"%s\"", actor, kind, item)
	case "created", "updated", "tagged":
		return fmt.Sprintf("%s %s %s \"%s\"", actor, a.Action, kind, item)
	case "commented":
		return fmt.Sprintf("%s commented on %s \"%s\"", actor, kind, item)
	default:
		return fmt.Sprintf("%s performed %s on %s \"%s\"", actor, a.Action, kind, item)
	}
}

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Invitation asks a user to join a team, project or task.
type Invitation struct {
	ID            int64     `json:"id"`
	Status        string    `json:"status"`
	Role          string    `json:"role"`
	Inviter       UserRef   `json:"inviter"`
	Invitee       UserRef   `json:"invitee"`
	InvitableType string    `json:"invitable_type"`
	InvitableID   int64     `json:"invitable_id"`
	InvitableName string    `json:"invitable_name"`
	CreatedAt     time.Time `json:"created_at"`
}
