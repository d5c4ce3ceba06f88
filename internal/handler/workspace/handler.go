package workspace

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/teamboard/internal/middleware"
	"github.com/zhouzirui/teamboard/internal/service/mockapi"
	"github.com/zhouzirui/teamboard/pkg/utils"
)

// Handler 团队、项目与任务的HTTP处理器
type Handler struct {
	svc *mockapi.Service
}

// New 创建工作区处理器
func New(svc *mockapi.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册工作区路由。不同资源故意返回不同的包裹格式，
// 与真实服务保持一致。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/teams", func(r chi.Router) {
		r.Get("/", h.handleListTeams)
		r.Post("/", h.handleCreateTeam)
		r.Route("/{teamID}", func(r chi.Router) {
			r.Get("/", h.handleGetTeam)
			r.Put("/", h.handleUpdateTeam)
			r.Delete("/", h.handleDeleteTeam)
			r.Post("/invite_member", h.handleInviteTeamMember)
			h.memberRoutes(r, "teamID", teamMembers{h.svc})
			r.Get("/projects", h.handleListProjects)
			r.Post("/projects", h.handleCreateProject)
		})
	})

	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Get("/", h.handleGetProject)
		r.Put("/", h.handleUpdateProject)
		r.Delete("/", h.handleDeleteProject)
		r.Post("/invite_member", h.handleInviteProjectMember)
		h.memberRoutes(r, "projectID", projectMembers{h.svc})
		r.Post("/add_comment", h.handleAddProjectComment)
		r.Put("/comments/{commentID}", h.handleUpdateProjectComment)
		r.Delete("/remove_comment", h.handleRemoveProjectComment)
		r.Post("/add_tag", h.handleAddProjectTag)
		r.Delete("/remove_tag", h.handleRemoveProjectTag)
		r.Post("/add_attachment", h.handleAddProjectAttachment)
		r.Delete("/remove_attachment", h.handleRemoveProjectAttachment)
		r.Get("/tasks", h.handleListTasks)
		r.Post("/tasks", h.handleCreateTask)
	})

	r.Route("/tasks/{taskID}", func(r chi.Router) {
		r.Get("/", h.handleGetTask)
		r.Put("/", h.handleUpdateTask)
		r.Delete("/", h.handleDeleteTask)
		r.Get("/sub_tasks", h.handleListSubTasks)
		r.Post("/sub_tasks", h.handleCreateSubTask)
		r.Post("/assign_member", h.handleAssignMember)
		h.memberRoutes(r, "taskID", taskMembers{h.svc})
		r.Post("/comments", h.handleAddTaskComment)
		r.Put("/comments/{commentID}", h.handleUpdateTaskComment)
		r.Delete("/comments/{commentID}", h.handleRemoveTaskComment)
		r.Post("/tags", h.handleAddTaskTag)
		r.Delete("/tags/{tagID}", h.handleRemoveTaskTag)
		r.Post("/attachments", h.handleAddTaskAttachment)
		r.Delete("/attachments/{attachmentID}", h.handleRemoveTaskAttachment)
		r.Get("/attachments/{attachmentID}/download", h.handleDownloadAttachment)
	})

	// 子任务与任务共用同一套存储
	r.Route("/sub_tasks/{taskID}", func(r chi.Router) {
		r.Put("/", h.handleUpdateTask)
		r.Delete("/", h.handleDeleteTask)
		r.Post("/assign_member", h.handleAssignMember)
		r.Delete("/members/{userID}", h.memberAction("taskID", taskMembers{h.svc}.remove))
	})
}

// memberManager 抽象团队、项目、任务成员的删除与升降级。
type memberManager interface {
	remove(ctx context.Context, userID, parentID, memberID int64) error
	setRole(ctx context.Context, userID, parentID, memberID int64, up bool) error
}

func (h *Handler) memberRoutes(r chi.Router, parentKey string, m memberManager) {
	r.Delete("/members/{userID}", h.memberAction(parentKey, m.remove))
	r.Put("/members/{userID}/promote", h.memberAction(parentKey, func(ctx context.Context, uid, pid, mid int64) error {
		return m.setRole(ctx, uid, pid, mid, true)
	}))
	r.Put("/members/{userID}/demote", h.memberAction(parentKey, func(ctx context.Context, uid, pid, mid int64) error {
		return m.setRole(ctx, uid, pid, mid, false)
	}))
}

func (h *Handler) memberAction(parentKey string, action func(ctx context.Context, userID, parentID, memberID int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, ok := utils.IDParam(w, r, parentKey)
		if !ok {
			return
		}
		memberID, ok := utils.IDParam(w, r, "userID")
		if !ok {
			return
		}
		if err := action(r.Context(), middleware.UserID(r.Context()), parentID, memberID); err != nil {
			utils.RespondServiceError(w, err)
			return
		}
		utils.RespondMessage(w, http.StatusOK, "Member updated successfully")
	}
}

type teamMembers struct{ svc *mockapi.Service }

func (m teamMembers) remove(ctx context.Context, userID, teamID, memberID int64) error {
	return m.svc.RemoveTeamMember(ctx, userID, teamID, memberID)
}

func (m teamMembers) setRole(ctx context.Context, userID, teamID, memberID int64, up bool) error {
	return m.svc.SetTeamMemberRole(ctx, userID, teamID, memberID, up)
}

type projectMembers struct{ svc *mockapi.Service }

func (m projectMembers) remove(ctx context.Context, userID, projectID, memberID int64) error {
	return m.svc.RemoveProjectMember(ctx, userID, projectID, memberID)
}

func (m projectMembers) setRole(ctx context.Context, userID, projectID, memberID int64, up bool) error {
	return m.svc.SetProjectMemberRole(ctx, userID, projectID, memberID, up)
}

type taskMembers struct{ svc *mockapi.Service }

func (m taskMembers) remove(ctx context.Context, userID, taskID, memberID int64) error {
	return m.svc.RemoveTaskMember(ctx, userID, taskID, memberID)
}

func (m taskMembers) setRole(ctx context.Context, userID, taskID, memberID int64, up bool) error {
	return m.svc.SetTaskMemberRole(ctx, userID, taskID, memberID, up)
}

type memberPayload struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type contentPayload struct {
	Content string `json:"content"`
}

type namePayload struct {
	Name string `json:"name"`
}
