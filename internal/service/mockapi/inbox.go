package mockapi

import (
	"context"
	"fmt"
	"sort"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

// ListActivities returns userID's feed, newest first.
func (s *Service) ListActivities(_ context.Context, userID int64) []model.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Activity, 0)
	for _, a := range s.activities {
		if a.recipient == userID {
			out = append(out, a.Activity)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// MarkActivityRead stamps one activity as read. Already read activities
// keep their original timestamp.
func (s *Service) MarkActivityRead(_ context.Context, userID, activityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.activities {
		if a.ID == activityID && a.recipient == userID {
			if a.ReadAt == nil {
				now := s.now().UTC()
				a.ReadAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("activity %d: %w", activityID, ErrNotFound)
}

// MarkAllActivitiesRead stamps every unread activity of userID and returns
// how many changed.
func (s *Service) MarkAllActivitiesRead(_ context.Context, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	n := 0
	for _, a := range s.activities {
		if a.recipient == userID && a.ReadAt == nil {
			stamp := now
			a.ReadAt = &stamp
			n++
		}
	}
	return n
}

// ListInvitations returns invitations addressed to userID.
func (s *Service) ListInvitations(_ context.Context, userID int64) []model.Invitation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Invitation, 0)
	for _, inv := range s.invitations {
		if inv.inviteeID == userID {
			out = append(out, inv.Invitation)
		}
	}
	sortByID(out, func(inv model.Invitation) int64 { return inv.ID })
	return out
}

// AnswerInvitation accepts or declines a pending invitation. Accepting
// grants the invited role.
func (s *Service) AnswerInvitation(_ context.Context, userID, invitationID int64, status string) (model.Invitation, error) {
	if status != model.InvitationAccepted && status != model.InvitationDeclined {
		return model.Invitation{}, invalid("Status is not included in the list")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[invitationID]
	if !ok || inv.inviteeID != userID {
		return model.Invitation{}, fmt.Errorf("invitation %d: %w", invitationID, ErrNotFound)
	}
	if inv.Status != model.InvitationPending {
		return model.Invitation{}, fmt.Errorf("invitation %d already %s: %w", invitationID, inv.Status, ErrConflict)
	}

	if status == model.InvitationAccepted {
		target, err := s.invitable(inv)
		if err != nil {
			return model.Invitation{}, err
		}
		target[userID] = inv.Role
	}
	inv.Status = status
	return inv.Invitation, nil
}

func (s *Service) invitable(inv *invitation) (members, error) {
	switch inv.InvitableType {
	case "Team":
		if t, ok := s.teams[inv.InvitableID]; ok {
			return t.members, nil
		}
	case "Project":
		if p, ok := s.projects[inv.InvitableID]; ok {
			return p.members, nil
		}
	}
	return nil, fmt.Errorf("%s %d: %w", inv.InvitableType, inv.InvitableID, ErrNotFound)
}
