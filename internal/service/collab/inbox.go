package collab

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

// ListActivities returns the signed-in user's activity feed.
func (s *Service) ListActivities(ctx context.Context) ([]model.Activity, error) {
	return list[model.Activity](ctx, s.api, "/activities")
}

// MarkActivityRead marks one activity as read.
func (s *Service) MarkActivityRead(ctx context.Context, id int64) error {
	return exec(ctx, s.api, http.MethodPut, fmt.Sprintf("/activities/%d/read", id), nil)
}

// MarkAllActivitiesRead marks the whole feed as read.
func (s *Service) MarkAllActivitiesRead(ctx context.Context) error {
	return exec(ctx, s.api, http.MethodPut, "/activities/mark_all_read", nil)
}

// ListInvitations returns invitations addressed to the signed-in user.
func (s *Service) ListInvitations(ctx context.Context) ([]model.Invitation, error) {
	return list[model.Invitation](ctx, s.api, "/invitations")
}

// AcceptInvitation accepts an invitation.
func (s *Service) AcceptInvitation(ctx context.Context, id int64) error {
	return s.answerInvitation(ctx, id, model.InvitationAccepted)
}

// DeclineInvitation declines an invitation.
func (s *Service) DeclineInvitation(ctx context.Context, id int64) error {
	return s.answerInvitation(ctx, id, model.InvitationDeclined)
}

func (s *Service) answerInvitation(ctx context.Context, id int64, status string) error {
	return exec(ctx, s.api, http.MethodPut, fmt.Sprintf("/invitations/%d", id), apiclient.JSON(map[string]string{"status": status}))
}
