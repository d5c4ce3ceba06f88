package collab

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/internal/optimistic"
)

// ListTasks returns a project's tasks.
func (s *Service) ListTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	return list[model.Task](ctx, s.api, fmt.Sprintf("/projects/%d/tasks", projectID))
}

// GetTask returns one task with its comments, tags, attachments and subtasks.
func (s *Service) GetTask(ctx context.Context, id int64) (model.Task, error) {
	return one[model.Task](ctx, s.api, get(fmt.Sprintf("/tasks/%d", id)))
}

// CreateTask adds a task to a project.
func (s *Service) CreateTask(ctx context.Context, projectID int64, in model.TaskInput) (model.Task, error) {
	return one[model.Task](ctx, s.api, post(fmt.Sprintf("/projects/%d/tasks", projectID), apiclient.JSON(map[string]any{"task": in})))
}

// UpdateTask changes the non-empty fields of in.
func (s *Service) UpdateTask(ctx context.Context, id int64, in model.TaskInput) (model.Task, error) {
	return one[model.Task](ctx, s.api, put(fmt.Sprintf("/tasks/%d", id), apiclient.JSON(map[string]any{"task": in})))
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil)
}

// AddTaskComment posts a comment on a task.
func (s *Service) AddTaskComment(ctx context.Context, taskID int64, content string) (model.Comment, error) {
	return one[model.Comment](ctx, s.api, post(fmt.Sprintf("/tasks/%d/comments", taskID), apiclient.JSON(map[string]string{"content": content})))
}

// PostTaskComment adds content to comments as pending, then confirms it with
// the server's copy or drops it when the call fails.
func (s *Service) PostTaskComment(ctx context.Context, comments *optimistic.List[model.Comment], taskID int64, content string) (model.Comment, error) {
	localID := comments.AddPending(model.Comment{Content: content})
	c, err := s.AddTaskComment(ctx, taskID, content)
	if err != nil {
		_ = comments.Reject(localID)
		return model.Comment{}, err
	}
	if err := comments.Confirm(localID, c); err != nil {
		return c, err
	}
	return c, nil
}

// UpdateTaskComment edits a task comment.
func (s *Service) UpdateTaskComment(ctx context.Context, taskID, commentID int64, content string) (model.Comment, error) {
	return one[model.Comment](ctx, s.api, put(fmt.Sprintf("/tasks/%d/comments/%d", taskID, commentID), apiclient.JSON(map[string]string{"content": content})))
}

// DeleteTaskComment removes a task comment.
func (s *Service) DeleteTaskComment(ctx context.Context, taskID, commentID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/tasks/%d/comments/%d", taskID, commentID), nil)
}

// AddTaskTag tags a task.
func (s *Service) AddTaskTag(ctx context.Context, taskID int64, name string) (model.Tag, error) {
	return one[model.Tag](ctx, s.api, post(fmt.Sprintf("/tasks/%d/tags", taskID), apiclient.JSON(map[string]string{"name": name})))
}

// PostTaskTag is the optimistic form of AddTaskTag.
func (s *Service) PostTaskTag(ctx context.Context, tags *optimistic.List[model.Tag], taskID int64, name string) (model.Tag, error) {
	localID := tags.AddPending(model.Tag{Name: name})
	tag, err := s.AddTaskTag(ctx, taskID, name)
	if err != nil {
		_ = tags.Reject(localID)
		return model.Tag{}, err
	}
	return tag, tags.Confirm(localID, tag)
}

// RemoveTaskTag removes a tag from a task.
func (s *Service) RemoveTaskTag(ctx context.Context, taskID, tagID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/tasks/%d/tags/%d", taskID, tagID), nil)
}

// AssignTaskMember assigns a user to a task.
func (s *Service) AssignTaskMember(ctx context.Context, taskID int64, in MemberInvite) error {
	return exec(ctx, s.api, http.MethodPost, fmt.Sprintf("/tasks/%d/assign_member", taskID), apiclient.JSON(in))
}

// RemoveTaskMember unassigns a user from a task.
func (s *Service) RemoveTaskMember(ctx context.Context, taskID, userID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/tasks/%d/members/%d", taskID, userID), nil)
}

// PromoteTaskMember raises a task member's role.
func (s *Service) PromoteTaskMember(ctx context.Context, taskID, userID int64) error {
	return exec(ctx, s.api, http.MethodPut, fmt.Sprintf("/tasks/%d/members/%d/promote", taskID, userID), nil)
}

// DemoteTaskMember lowers a task member's role.
func (s *Service) DemoteTaskMember(ctx context.Context, taskID, userID int64) error {
	return exec(ctx, s.api, http.MethodPut, fmt.Sprintf("/tasks/%d/members/%d/demote", taskID, userID), nil)
}

// AddTaskAttachment uploads a file to a task.
func (s *Service) AddTaskAttachment(ctx context.Context, taskID int64, filename string, r io.Reader) (model.Attachment, error) {
	form := apiclient.NewForm().File("file", filename, r)
	return one[model.Attachment](ctx, s.api, post(fmt.Sprintf("/tasks/%d/attachments", taskID), form))
}

// RemoveTaskAttachment deletes a task attachment.
func (s *Service) RemoveTaskAttachment(ctx context.Context, taskID, attachmentID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/tasks/%d/attachments/%d", taskID, attachmentID), nil)
}

// DownloadTaskAttachment writes an attachment's content to w.
func (s *Service) DownloadTaskAttachment(ctx context.Context, taskID, attachmentID int64, w io.Writer) (int64, error) {
	return s.api.Download(ctx, fmt.Sprintf("/tasks/%d/attachments/%d/download", taskID, attachmentID), w)
}

// ListSubTasks returns a task's subtasks.
func (s *Service) ListSubTasks(ctx context.Context, taskID int64) ([]model.Task, error) {
	return list[model.Task](ctx, s.api, fmt.Sprintf("/tasks/%d/sub_tasks", taskID))
}

// CreateSubTask adds a subtask under a task.
func (s *Service) CreateSubTask(ctx context.Context, taskID int64, in model.TaskInput) (model.Task, error) {
	return one[model.Task](ctx, s.api, post(fmt.Sprintf("/tasks/%d/sub_tasks", taskID), apiclient.JSON(map[string]any{"task": in})))
}

// UpdateSubTask changes the non-empty fields of in.
func (s *Service) UpdateSubTask(ctx context.Context, subTaskID int64, in model.TaskInput) (model.Task, error) {
	return one[model.Task](ctx, s.api, put(fmt.Sprintf("/sub_tasks/%d", subTaskID), apiclient.JSON(map[string]any{"task": in})))
}

// DeleteSubTask removes a subtask.
func (s *Service) DeleteSubTask(ctx context.Context, subTaskID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/sub_tasks/%d", subTaskID), nil)
}

// AssignSubTaskMember assigns a user to a subtask. An empty role means
// assignee.
func (s *Service) AssignSubTaskMember(ctx context.Context, subTaskID int64, username, role string) error {
	if role == "" {
		role = model.RoleAssignee
	}
	return exec(ctx, s.api, http.MethodPost, fmt.Sprintf("/sub_tasks/%d/assign_member", subTaskID), apiclient.JSON(MemberInvite{Username: username, Role: role}))
}

// RemoveSubTaskMember unassigns a user from a subtask.
func (s *Service) RemoveSubTaskMember(ctx context.Context, subTaskID, userID int64) error {
	return exec(ctx, s.api, http.MethodDelete, fmt.Sprintf("/sub_tasks/%d/members/%d", subTaskID, userID), nil)
}
