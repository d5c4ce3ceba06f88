package collab

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

// ListProjects returns a team's projects.
func (s *Service) ListProjects(ctx context.Context, teamID int64) ([]model.Project, error) {
	return list[model.Project](ctx, s.api, fmt.Sprintf("/teams/%d/projects", teamID))
}

// GetProject returns one project with its members, comments, tags and
// attachments.
func (s *Service) GetProject(ctx context.Context, id int64) (model.Project, error) {
	return one[model.Project](ctx, s.api, get(fmt.Sprintf("/projects/%d", id)))
}

// CreateProject adds a project to a team.
func (s *Service) CreateProject(ctx context.Context, teamID int64, in model.ProjectInput) (model.Project, error) {
	return one[model.Project](ctx, s.api, post(fmt.Sprintf("/teams/%d/projects", teamID), apiclient.JSON(map[string]any{"project": in})))
}

// UpdateProject changes the non-empty fields of in.
func (s *Service) UpdateProject(ctx context.Context, id int64, in model.ProjectInput) (model.Project, error) {
	return one[model.Project](ctx, s.api, put(fmt.Sprintf("/projects/%d", id), apiclient.JSON(map[string]any{"project": in})))
}

// DeleteProject removes a project.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil)
}

// InviteProjectMember sends a project invitation.
func (s *Service) InviteProjectMember(ctx context.Context, projectID int64, in MemberInvite) error {
	return exec(ctx, s.api, http.MethodPost, fmt.Sprintf("/projects/%d/invite_member", projectID), apiclient.JSON(in))
}

// RemoveProjectMember removes a user from a project.
func (s *Service) RemoveProjectMember(ctx context.Context, projectID, userID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/projects/%d/members/%d", projectID, userID), nil)
}

// PromoteProjectMember raises a member's role.
func (s *Service) PromoteProjectMember(ctx context.Context, projectID, userID int64) error {
	return exec(ctx, s.api, http.MethodPut, fmt.Sprintf("/projects/%d/members/%d/promote", projectID, userID), nil)
}

// DemoteProjectMember lowers a member's role.
func (s *Service) DemoteProjectMember(ctx context.Context, projectID, userID int64) error {
	return exec(ctx, s.api, http.MethodPut, fmt.Sprintf("/projects/%d/members/%d/demote", projectID, userID), nil)
}

// AddProjectComment posts a comment on a project.
func (s *Service) AddProjectComment(ctx context.Context, projectID int64, content string) (model.Comment, error) {
	return one[model.Comment](ctx, s.api, post(fmt.Sprintf("/projects/%d/add_comment", projectID), apiclient.JSON(map[string]string{"content": content})))
}

// UpdateProjectComment edits a project comment.
func (s *Service) UpdateProjectComment(ctx context.Context, projectID, commentID int64, content string) (model.Comment, error) {
	return one[model.Comment](ctx, s.api, put(fmt.Sprintf("/projects/%d/comments/%d", projectID, commentID), apiclient.JSON(map[string]string{"content": content})))
}

// DeleteProjectComment removes a project comment.
func (s *Service) DeleteProjectComment(ctx context.Context, projectID, commentID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/projects/%d/remove_comment", projectID), apiclient.JSON(map[string]int64{"comment_id": commentID}))
}

// AddProjectTag tags a project.
func (s *Service) AddProjectTag(ctx context.Context, projectID int64, name string) (model.Tag, error) {
	return one[model.Tag](ctx, s.api, post(fmt.Sprintf("/projects/%d/add_tag", projectID), apiclient.JSON(map[string]string{"name": name})))
}

// RemoveProjectTag removes a tag from a project.
func (s *Service) RemoveProjectTag(ctx context.Context, projectID, tagID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/projects/%d/remove_tag", projectID), apiclient.JSON(map[string]int64{"tag_id": tagID}))
}

// AddProjectAttachment uploads a file to a project.
func (s *Service) AddProjectAttachment(ctx context.Context, projectID int64, filename string, r io.Reader) (model.Attachment, error) {
	form := apiclient.NewForm().File("attachment", filename, r)
	return one[model.Attachment](ctx, s.api, post(fmt.Sprintf("/projects/%d/add_attachment", projectID), form))
}

// RemoveProjectAttachment deletes a project attachment.
func (s *Service) RemoveProjectAttachment(ctx context.Context, projectID, attachmentID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/projects/%d/remove_attachment", projectID), apiclient.JSON(map[string]int64{"attachment_id": attachmentID}))
}
