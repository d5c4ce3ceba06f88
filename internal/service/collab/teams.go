package collab

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

// ListTeams returns the teams visible to the signed-in user.
func (s *Service) ListTeams(ctx context.Context) ([]model.Team, error) {
	return list[model.Team](ctx, s.api, "/teams")
}

// GetTeam returns one team.
func (s *Service) GetTeam(ctx context.Context, id int64) (model.Team, error) {
	return one[model.Team](ctx, s.api, get(fmt.Sprintf("/teams/%d", id)))
}

// CreateTeam creates a team owned by the signed-in user.
func (s *Service) CreateTeam(ctx context.Context, in model.TeamInput) (model.Team, error) {
	return one[model.Team](ctx, s.api, post("/teams", apiclient.JSON(map[string]any{"team": in})))
}

// UpdateTeam replaces a team's name and description.
func (s *Service) UpdateTeam(ctx context.Context, id int64, in model.TeamInput) (model.Team, error) {
	return one[model.Team](ctx, s.api, put(fmt.Sprintf("/teams/%d", id), apiclient.JSON(map[string]any{"team": in})))
}

// DeleteTeam removes a team.
func (s *Service) DeleteTeam(ctx context.Context, id int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/teams/%d", id), nil)
}

// InviteTeamMember sends a team invitation.
func (s *Service) InviteTeamMember(ctx context.Context, teamID int64, in MemberInvite) error {
	return exec(ctx, s.api, http.MethodPost, fmt.Sprintf("/teams/%d/invite_member", teamID), apiclient.JSON(in))
}

// RemoveTeamMember removes a user from a team.
func (s *Service) RemoveTeamMember(ctx context.Context, teamID, userID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/teams/%d/members/%d", teamID, userID), nil)
}

// PromoteTeamMember raises a member's role.
func (s *Service) PromoteTeamMember(ctx context.Context, teamID, userID int64) error {
	return exec(ctx, s.api, http.MethodPut, fmt.Sprintf("/teams/%d/members/%d/promote", teamID, userID), nil)
}

// DemoteTeamMember lowers a member's role.
func (s *Service) DemoteTeamMember(ctx context.Context, teamID, userID int64) error {
	return exec(ctx, s.api, http.MethodPut, fmt.Sprintf("/teams/%d/members/%d/demote", teamID, userID), nil)
}
