package mockapi

import (
	"context"
	"fmt"
	"strings"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

var (
	taskStatuses   = []string{model.StatusTodo, model.StatusInProgress, model.StatusDone}
	taskPriorities = []string{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}
)

// ListTasks returns a project's top-level tasks.
func (s *Service) ListTasks(_ context.Context, userID, projectID int64) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.projectFor(userID, projectID); err != nil {
		return nil, err
	}
	out := make([]model.Task, 0)
	for _, t := range s.sortedTasks(func(t *task) bool { return t.projectID == projectID && t.parentID == 0 }) {
		out = append(out, s.taskView(t, false))
	}
	return out, nil
}

// ListSubTasks returns the subtasks of taskID.
func (s *Service) ListSubTasks(_ context.Context, userID, taskID int64) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, _, err := s.taskFor(userID, taskID); err != nil {
		return nil, err
	}
	out := make([]model.Task, 0)
	for _, t := range s.sortedTasks(func(t *task) bool { return t.parentID == taskID }) {
		out = append(out, s.taskView(t, false))
	}
	return out, nil
}

// GetTask returns a task with comments, tags, attachments and subtasks.
func (s *Service) GetTask(_ context.Context, userID, taskID int64) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, _, err := s.taskFor(userID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	return s.taskView(t, true), nil
}

// CreateTask adds a task to a project.
func (s *Service) CreateTask(_ context.Context, userID, projectID int64, in model.TaskInput) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projectFor(userID, projectID)
	if err != nil {
		return model.Task{}, err
	}
	return s.createTask(userID, p, 0, in)
}

// CreateSubTask adds a subtask under parentID.
func (s *Service) CreateSubTask(_ context.Context, userID, parentID int64, in model.TaskInput) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, p, err := s.taskFor(userID, parentID)
	if err != nil {
		return model.Task{}, err
	}
	return s.createTask(userID, p, parent.id, in)
}

// UpdateTask changes the non-empty fields of in. Subtasks use the same call.
func (s *Service) UpdateTask(_ context.Context, userID, taskID int64, in model.TaskInput) (model.Task, error) {
	if err := validateTask(in, false); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, p, err := s.taskFor(userID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		t.name = name
	}
	if in.Description != "" {
		t.description = in.Description
	}
	if in.Status != "" {
		t.status = in.Status
	}
	if in.Priority != "" {
		t.priority = in.Priority
	}
	if in.DueDate != "" {
		t.dueDate = in.DueDate
	}
	t.updatedAt = s.now().UTC()
	s.notify(s.taskAudience(t, p), userID, "updated", model.Notifiable{ID: t.id, Name: t.name, Type: "Task"})
	return s.taskView(t, true), nil
}

// DeleteTask removes a task and its subtasks.
func (s *Service) DeleteTask(_ context.Context, userID, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, _, err := s.taskFor(userID, taskID)
	if err != nil {
		return err
	}
	s.dropTask(t.id)
	return nil
}

// AssignTaskMember adds username to the task directly, without an
// invitation. An empty role means assignee.
func (s *Service) AssignTaskMember(_ context.Context, userID, taskID int64, username, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, _, err := s.taskFor(userID, taskID)
	if err != nil {
		return err
	}
	acc, ok := s.userByName(strings.TrimSpace(username))
	if !ok {
		return fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if t.members.has(acc.user.ID) {
		return fmt.Errorf("%s is already assigned: %w", acc.user.Username, ErrConflict)
	}
	if role == "" {
		role = model.RoleAssignee
	}
	if t.members == nil {
		t.members = make(members)
	}
	t.members[acc.user.ID] = role
	s.notify([]int64{acc.user.ID}, userID, "invited", model.Notifiable{ID: t.id, Name: t.name, Type: "Task"})
	return nil
}

// RemoveTaskMember unassigns memberID.
func (s *Service) RemoveTaskMember(_ context.Context, userID, taskID, memberID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, p, err := s.taskFor(userID, taskID)
	if err != nil {
		return err
	}
	if _, ok := t.members[memberID]; !ok {
		return fmt.Errorf("member %d: %w", memberID, ErrNotFound)
	}
	if userID != memberID && !s.canManageTask(userID, t, p) {
		return ErrForbidden
	}
	delete(t.members, memberID)
	return nil
}

// SetTaskMemberRole promotes or demotes a task member one step.
func (s *Service) SetTaskMemberRole(_ context.Context, userID, taskID, memberID int64, up bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, p, err := s.taskFor(userID, taskID)
	if err != nil {
		return err
	}
	if !s.canManageTask(userID, t, p) {
		return ErrForbidden
	}
	return changeRole(t.members, memberID, up, model.RoleAssignee)
}

// AddTaskComment posts a comment on a task.
func (s *Service) AddTaskComment(_ context.Context, userID, taskID int64, content string) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, p, err := s.taskFor(userID, taskID)
	if err != nil {
		return model.Comment{}, err
	}
	c, err := s.addComment(&t.extras, userID, content)
	if err != nil {
		return model.Comment{}, err
	}
	s.notify(s.taskAudience(t, p), userID, "commented", model.Notifiable{ID: t.id, Name: t.name, Type: "Task"})
	return c, nil
}

// UpdateTaskComment edits a comment written by userID.
func (s *Service) UpdateTaskComment(_ context.Context, userID, taskID, commentID int64, content string) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, _, err := s.taskFor(userID, taskID)
	if err != nil {
		return model.Comment{}, err
	}
	return t.updateComment(userID, commentID, content)
}

// RemoveTaskComment deletes a task comment.
func (s *Service) RemoveTaskComment(_ context.Context, userID, taskID, commentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, p, err := s.taskFor(userID, taskID)
	if err != nil {
		return err
	}
	return t.removeComment(userID, commentID, s.canManageTask(userID, t, p))
}

// AddTaskTag tags a task.
func (s *Service) AddTaskTag(_ context.Context, userID, taskID int64, name string) (model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, p, err := s.taskFor(userID, taskID)
	if err != nil {
		return model.Tag{}, err
	}
	tag, err := s.addTag(&t.extras, name)
	if err != nil {
		return model.Tag{}, err
	}
	s.notify(s.taskAudience(t, p), userID, "tagged", model.Notifiable{ID: t.id, Name: t.name, Type: "Task"})
	return tag, nil
}

// RemoveTaskTag removes a tag from a task.
func (s *Service) RemoveTaskTag(_ context.Context, userID, taskID, tagID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, _, err := s.taskFor(userID, taskID)
	if err != nil {
		return err
	}
	return t.removeTag(tagID)
}

// AddTaskAttachment stores an uploaded file on a task.
func (s *Service) AddTaskAttachment(_ context.Context, userID, taskID int64, filename string, data []byte) (model.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, _, err := s.taskFor(userID, taskID)
	if err != nil {
		return model.Attachment{}, err
	}
	return s.addAttachment(&t.extras, filename, data)
}

// RemoveTaskAttachment deletes a task attachment.
func (s *Service) RemoveTaskAttachment(_ context.Context, userID, taskID, attachmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, _, err := s.taskFor(userID, taskID)
	if err != nil {
		return err
	}
	if err := t.removeAttachment(attachmentID); err != nil {
		return err
	}
	delete(s.files, attachmentID)
	return nil
}

// TaskAttachment returns an attachment's metadata and content.
func (s *Service) TaskAttachment(_ context.Context, userID, taskID, attachmentID int64) (model.Attachment, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, _, err := s.taskFor(userID, taskID)
	if err != nil {
		return model.Attachment{}, nil, err
	}
	a, ok := t.attachment(attachmentID)
	if !ok {
		return model.Attachment{}, nil, fmt.Errorf("attachment %d: %w", attachmentID, ErrNotFound)
	}
	data := append([]byte(nil), s.files[attachmentID]...)
	return a, data, nil
}

func (s *Service) createTask(userID int64, p *project, parentID int64, in model.TaskInput) (model.Task, error) {
	if err := validateTask(in, true); err != nil {
		return model.Task{}, err
	}
	status, priority := in.Status, in.Priority
	if status == "" {
		status = model.StatusTodo
	}
	if priority == "" {
		priority = model.PriorityMedium
	}

	now := s.now().UTC()
	t := &task{
		id:          s.id(),
		projectID:   p.id,
		parentID:    parentID,
		name:        strings.TrimSpace(in.Name),
		description: in.Description,
		status:      status,
		priority:    priority,
		dueDate:     in.DueDate,
		createdAt:   now,
		updatedAt:   now,
		members:     make(members),
	}
	s.tasks[t.id] = t
	s.notify(s.projectAudience(p), userID, "created", model.Notifiable{ID: t.id, Name: t.name, Type: "Task"})
	return s.taskView(t, true), nil
}

func validateTask(in model.TaskInput, create bool) error {
	var problems []string
	if create && strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "Name can't be blank")
	}
	if in.Status != "" && !oneOf(in.Status, taskStatuses) {
		problems = append(problems, "Status is not included in the list")
	}
	if in.Priority != "" && !oneOf(in.Priority, taskPriorities) {
		problems = append(problems, "Priority is not included in the list")
	}
	if len(problems) > 0 {
		return invalid(problems...)
	}
	return nil
}

// taskFor returns the task and its project when the project is visible to
// userID.
func (s *Service) taskFor(userID, taskID int64) (*task, *project, error) {
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	if t.members.has(userID) {
		return t, s.projects[t.projectID], nil
	}
	p, err := s.projectFor(userID, t.projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return t, p, nil
}

func (s *Service) canManageTask(userID int64, t *task, p *project) bool {
	if t.members.has(userID, model.RoleOwner, model.RoleAdmin) {
		return true
	}
	return p != nil && s.canManageProject(userID, p)
}

func (s *Service) taskAudience(t *task, p *project) []int64 {
	seen := make(members)
	for id, role := range t.members {
		seen[id] = role
	}
	if p != nil {
		for _, id := range s.projectAudience(p) {
			seen[id] = ""
		}
	}
	return seen.ids()
}

func (s *Service) dropTask(taskID int64) {
	for _, child := range s.tasks {
		if child.parentID == taskID {
			s.dropTask(child.id)
		}
	}
	if t, ok := s.tasks[taskID]; ok {
		for _, a := range t.attachments {
			delete(s.files, a.ID)
		}
	}
	delete(s.tasks, taskID)
}
