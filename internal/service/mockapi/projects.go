package mockapi

import (
	"context"
	"fmt"
	"strings"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

var projectStatuses = []string{model.ProjectActive, model.ProjectCompleted, model.ProjectArchived}

// ListProjects returns a team's projects.
func (s *Service) ListProjects(_ context.Context, userID, teamID int64) ([]model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.teamFor(userID, teamID); err != nil {
		return nil, err
	}
	out := make([]model.Project, 0)
	for _, p := range s.sortedProjects(teamID) {
		out = append(out, s.projectView(p, false))
	}
	return out, nil
}

// GetProject returns a project with its members, comments, tags and
// attachments.
func (s *Service) GetProject(_ context.Context, userID, projectID int64) (model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return model.Project{}, err
	}
	return s.projectView(p, true), nil
}

// CreateProject adds a project to a team. The creator owns it.
func (s *Service) CreateProject(_ context.Context, userID, teamID int64, in model.ProjectInput) (model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Project{}, invalid("Name can't be blank")
	}
	status := in.Status
	if status == "" {
		status = model.ProjectActive
	}
	if !oneOf(status, projectStatuses) {
		return model.Project{}, invalid("Status is not included in the list")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.teamFor(userID, teamID)
	if err != nil {
		return model.Project{}, err
	}
	p := &project{
		id:          s.id(),
		teamID:      t.id,
		name:        name,
		description: in.Description,
		status:      status,
		createdAt:   s.now().UTC(),
		members:     members{userID: model.RoleOwner},
	}
	s.projects[p.id] = p
	s.notify(t.members.ids(), userID, "created", model.Notifiable{ID: p.id, Name: p.name, Type: "Project"})
	return s.projectView(p, true), nil
}

// UpdateProject changes the non-empty fields of in.
func (s *Service) UpdateProject(_ context.Context, userID, projectID int64, in model.ProjectInput) (model.Project, error) {
	if in.Status != "" && !oneOf(in.Status, projectStatuses) {
		return model.Project{}, invalid("Status is not included in the list")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return model.Project{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		p.name = name
	}
	if in.Description != "" {
		p.description = in.Description
	}
	if in.Status != "" {
		p.status = in.Status
	}
	s.notify(s.projectAudience(p), userID, "updated", model.Notifiable{ID: p.id, Name: p.name, Type: "Project"})
	return s.projectView(p, true), nil
}

// DeleteProject removes a project and its tasks.
func (s *Service) DeleteProject(_ context.Context, userID, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return err
	}
	if !s.canManageProject(userID, p) {
		return ErrForbidden
	}
	s.dropProject(p.id)
	return nil
}

// InviteProjectMember sends username an invitation to the project.
func (s *Service) InviteProjectMember(_ context.Context, userID, projectID int64, username, role string) (model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return model.Invitation{}, err
	}
	if !s.canManageProject(userID, p) {
		return model.Invitation{}, ErrForbidden
	}
	return s.invite(userID, username, role, p.members, model.Notifiable{ID: p.id, Name: p.name, Type: "Project"})
}

// RemoveProjectMember removes memberID from the project.
func (s *Service) RemoveProjectMember(_ context.Context, userID, projectID, memberID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return err
	}
	return removeMember(p.members, userID, memberID)
}

// SetProjectMemberRole promotes or demotes memberID one step.
func (s *Service) SetProjectMemberRole(_ context.Context, userID, projectID, memberID int64, up bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return err
	}
	if !s.canManageProject(userID, p) {
		return ErrForbidden
	}
	return changeRole(p.members, memberID, up, model.RoleMember)
}

// AddProjectComment posts a comment on a project.
func (s *Service) AddProjectComment(_ context.Context, userID, projectID int64, content string) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return model.Comment{}, err
	}
	c, err := s.addComment(&p.extras, userID, content)
	if err != nil {
		return model.Comment{}, err
	}
	s.notify(s.projectAudience(p), userID, "commented", model.Notifiable{ID: p.id, Name: p.name, Type: "Project"})
	return c, nil
}

// UpdateProjectComment edits a comment written by userID.
func (s *Service) UpdateProjectComment(_ context.Context, userID, projectID, commentID int64, content string) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return model.Comment{}, err
	}
	return p.updateComment(userID, commentID, content)
}

// RemoveProjectComment deletes a comment written by userID.
func (s *Service) RemoveProjectComment(_ context.Context, userID, projectID, commentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return err
	}
	return p.removeComment(userID, commentID, s.canManageProject(userID, p))
}

// AddProjectTag tags a project.
func (s *Service) AddProjectTag(_ context.Context, userID, projectID int64, name string) (model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return model.Tag{}, err
	}
	tag, err := s.addTag(&p.extras, name)
	if err != nil {
		return model.Tag{}, err
	}
	s.notify(s.projectAudience(p), userID, "tagged", model.Notifiable{ID: p.id, Name: p.name, Type: "Project"})
	return tag, nil
}

// RemoveProjectTag removes a tag from a project.
func (s *Service) RemoveProjectTag(_ context.Context, userID, projectID, tagID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return err
	}
	return p.removeTag(tagID)
}

// AddProjectAttachment stores an uploaded file on a project.
func (s *Service) AddProjectAttachment(_ context.Context, userID, projectID int64, filename string, data []byte) (model.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return model.Attachment{}, err
	}
	return s.addAttachment(&p.extras, filename, data)
}

// RemoveProjectAttachment deletes a project attachment.
func (s *Service) RemoveProjectAttachment(_ context.Context, userID, projectID, attachmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return err
	}
	if err := p.removeAttachment(attachmentID); err != nil {
		return err
	}
	delete(s.files, attachmentID)
	return nil
}

// projectFor returns the project when userID belongs to its team or to the
// project itself.
func (s *Service) projectFor(userID, projectID int64) (*project, error) {
	p, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	if p.members.has(userID) {
		return p, nil
	}
	if t, ok := s.teams[p.teamID]; ok && t.members.has(userID) {
		return p, nil
	}
	return nil, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
}

func (s *Service) canManageProject(userID int64, p *project) bool {
	if p.members.has(userID, model.RoleOwner, model.RoleAdmin) {
		return true
	}
	t, ok := s.teams[p.teamID]
	return ok && t.members.has(userID, model.RoleOwner, model.RoleAdmin)
}

// projectAudience is everyone who can see the project.
func (s *Service) projectAudience(p *project) []int64 {
	seen := make(members)
	for id, role := range p.members {
		seen[id] = role
	}
	if t, ok := s.teams[p.teamID]; ok {
		for id, role := range t.members {
			seen[id] = role
		}
	}
	return seen.ids()
}

func (s *Service) sortedProjects(teamID int64) []*project {
	var out []*project
	for _, p := range s.projects {
		if p.teamID == teamID {
			out = append(out, p)
		}
	}
	sortByID(out, func(p *project) int64 { return p.id })
	return out
}

func (s *Service) dropProject(projectID int64) {
	for _, t := range s.tasks {
		if t.projectID == projectID {
			for _, a := range t.attachments {
				delete(s.files, a.ID)
			}
			delete(s.tasks, t.id)
		}
	}
	if p, ok := s.projects[projectID]; ok {
		for _, a := range p.attachments {
			delete(s.files, a.ID)
		}
	}
	delete(s.projects, projectID)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
