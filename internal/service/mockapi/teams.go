package mockapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

// ListTeams returns the teams userID belongs to.
func (s *Service) ListTeams(_ context.Context, userID int64) []model.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Team, 0)
	for _, t := range s.teams {
		if t.members.has(userID) {
			out = append(out, s.teamView(t, userID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetTeam returns one team visible to userID.
func (s *Service) GetTeam(_ context.Context, userID, teamID int64) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.teamFor(userID, teamID)
	if err != nil {
		return model.Team{}, err
	}
	return s.teamView(t, userID), nil
}

// CreateTeam creates a team owned by userID.
func (s *Service) CreateTeam(_ context.Context, userID int64, in model.TeamInput) (model.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Team{}, invalid("Name can't be blank")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &team{
		id:          s.id(),
		name:        name,
		description: in.Description,
		createdAt:   s.now().UTC(),
		members:     members{userID: model.RoleOwner},
	}
	s.teams[t.id] = t
	return s.teamView(t, userID), nil
}

// UpdateTeam replaces the team's name and description.
func (s *Service) UpdateTeam(_ context.Context, userID, teamID int64, in model.TeamInput) (model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.teamFor(userID, teamID, model.RoleOwner, model.RoleAdmin)
	if err != nil {
		return model.Team{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		t.name = name
	}
	t.description = in.Description
	s.notify(t.members.ids(), userID, "updated", model.Notifiable{ID: t.id, Name: t.name, Type: "Team"})
	return s.teamView(t, userID), nil
}

// DeleteTeam removes a team with its projects and tasks. Owners only.
func (s *Service) DeleteTeam(_ context.Context, userID, teamID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.teamFor(userID, teamID, model.RoleOwner)
	if err != nil {
		return err
	}
	for _, p := range s.projects {
		if p.teamID == t.id {
			s.dropProject(p.id)
		}
	}
	delete(s.teams, t.id)
	return nil
}

// InviteTeamMember sends username an invitation to the team.
func (s *Service) InviteTeamMember(_ context.Context, userID, teamID int64, username, role string) (model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.teamFor(userID, teamID, model.RoleOwner, model.RoleAdmin)
	if err != nil {
		return model.Invitation{}, err
	}
	return s.invite(userID, username, role, t.members, model.Notifiable{ID: t.id, Name: t.name, Type: "Team"})
}

// RemoveTeamMember removes memberID from the team. Members may remove
// themselves; managers may remove anyone but the owner.
func (s *Service) RemoveTeamMember(_ context.Context, userID, teamID, memberID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.teamFor(userID, teamID)
	if err != nil {
		return err
	}
	return removeMember(t.members, userID, memberID)
}

// SetTeamMemberRole promotes or demotes memberID one step.
func (s *Service) SetTeamMemberRole(_ context.Context, userID, teamID, memberID int64, up bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.teamFor(userID, teamID, model.RoleOwner, model.RoleAdmin)
	if err != nil {
		return err
	}
	return changeRole(t.members, memberID, up, model.RoleMember)
}

func (s *Service) teamFor(userID, teamID int64, roles ...string) (*team, error) {
	t, ok := s.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("team %d: %w", teamID, ErrNotFound)
	}
	if !t.members.has(userID) {
		return nil, fmt.Errorf("team %d: %w", teamID, ErrNotFound)
	}
	if !t.members.has(userID, roles...) {
		return nil, fmt.Errorf("team %d: %w", teamID, ErrForbidden)
	}
	return t, nil
}

// invite records a pending invitation for username and notifies them.
func (s *Service) invite(inviterID int64, username, role string, current members, target model.Notifiable) (model.Invitation, error) {
	invitee, ok := s.userByName(strings.TrimSpace(username))
	if !ok {
		return model.Invitation{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if current.has(invitee.user.ID) {
		return model.Invitation{}, fmt.Errorf("%s is already a member: %w", invitee.user.Username, ErrConflict)
	}
	for _, inv := range s.invitations {
		if inv.inviteeID == invitee.user.ID && inv.InvitableType == target.Type &&
			inv.InvitableID == target.ID && inv.Status == model.InvitationPending {
			return model.Invitation{}, fmt.Errorf("invitation for %s: %w", invitee.user.Username, ErrConflict)
		}
	}
	if role == "" {
		role = model.RoleMember
	}
	if role == model.RoleOwner {
		return model.Invitation{}, invalid("Role is not included in the list")
	}

	inv := &invitation{
		Invitation: model.Invitation{
			ID:            s.id(),
			Status:        model.InvitationPending,
			Role:          role,
			Inviter:       s.ref(inviterID),
			Invitee:       s.ref(invitee.user.ID),
			InvitableType: target.Type,
			InvitableID:   target.ID,
			InvitableName: target.Name,
			CreatedAt:     s.now().UTC(),
		},
		inviteeID: invitee.user.ID,
	}
	s.invitations[inv.ID] = inv
	s.notify([]int64{invitee.user.ID}, inviterID, "invited", target)
	return inv.Invitation, nil
}

func removeMember(m members, actorID, memberID int64) error {
	role, ok := m[memberID]
	if !ok {
		return fmt.Errorf("member %d: %w", memberID, ErrNotFound)
	}
	if role == model.RoleOwner {
		return fmt.Errorf("owner cannot be removed: %w", ErrForbidden)
	}
	if actorID != memberID && !m.has(actorID, model.RoleOwner, model.RoleAdmin) {
		return ErrForbidden
	}
	delete(m, memberID)
	return nil
}

func changeRole(m members, memberID int64, up bool, floor string) error {
	role, ok := m[memberID]
	if !ok {
		return fmt.Errorf("member %d: %w", memberID, ErrNotFound)
	}
	if role == model.RoleOwner {
		return fmt.Errorf("owner role cannot change: %w", ErrForbidden)
	}
	if up {
		m[memberID] = promote(role)
	} else {
		m[memberID] = demote(role, floor)
	}
	return nil
}
