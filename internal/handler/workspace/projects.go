package workspace

import (
	"net/http"

	"github.com/zhouzirui/teamboard/internal/middleware"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/pkg/utils"
)

// handleListProjects 返回 {data: [...]}
func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	teamID, ok := utils.IDParam(w, r, "teamID")
	if !ok {
		return
	}

	projects, err := h.svc.ListProjects(r.Context(), middleware.UserID(r.Context()), teamID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": projects})
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	teamID, ok := utils.IDParam(w, r, "teamID")
	if !ok {
		return
	}
	var payload struct {
		Project model.ProjectInput `json:"project"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	project, err := h.svc.CreateProject(r.Context(), middleware.UserID(r.Context()), teamID, payload.Project)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{"data": project})
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}

	project, err := h.svc.GetProject(r.Context(), middleware.UserID(r.Context()), projectID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, project)
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	var payload struct {
		Project model.ProjectInput `json:"project"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	project, err := h.svc.UpdateProject(r.Context(), middleware.UserID(r.Context()), projectID, payload.Project)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, project)
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}

	if err := h.svc.DeleteProject(r.Context(), middleware.UserID(r.Context()), projectID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Project deleted successfully")
}

func (h *Handler) handleInviteProjectMember(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	var payload memberPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	inv, err := h.svc.InviteProjectMember(r.Context(), middleware.UserID(r.Context()), projectID, payload.Username, payload.Role)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{"message": "Invitation sent", "invitation": inv})
}

func (h *Handler) handleAddProjectComment(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	var payload contentPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	comment, err := h.svc.AddProjectComment(r.Context(), middleware.UserID(r.Context()), projectID, payload.Content)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, comment)
}

func (h *Handler) handleUpdateProjectComment(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	commentID, ok := utils.IDParam(w, r, "commentID")
	if !ok {
		return
	}
	var payload contentPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	comment, err := h.svc.UpdateProjectComment(r.Context(), middleware.UserID(r.Context()), projectID, commentID, payload.Content)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, comment)
}

// handleRemoveProjectComment 要删除的评论 ID 放在请求体中
func (h *Handler) handleRemoveProjectComment(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	var payload struct {
		CommentID int64 `json:"comment_id"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if err := h.svc.RemoveProjectComment(r.Context(), middleware.UserID(r.Context()), projectID, payload.CommentID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Comment removed")
}

func (h *Handler) handleAddProjectTag(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	var payload namePayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	tag, err := h.svc.AddProjectTag(r.Context(), middleware.UserID(r.Context()), projectID, payload.Name)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, tag)
}

func (h *Handler) handleRemoveProjectTag(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	var payload struct {
		TagID int64 `json:"tag_id"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if err := h.svc.RemoveProjectTag(r.Context(), middleware.UserID(r.Context()), projectID, payload.TagID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Tag removed")
}

// handleAddProjectAttachment 接收 multipart 字段 attachment
func (h *Handler) handleAddProjectAttachment(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	filename, data, ok := utils.ReadUpload(w, r, "attachment")
	if !ok {
		return
	}

	att, err := h.svc.AddProjectAttachment(r.Context(), middleware.UserID(r.Context()), projectID, filename, data)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, att)
}

func (h *Handler) handleRemoveProjectAttachment(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	var payload struct {
		AttachmentID int64 `json:"attachment_id"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if err := h.svc.RemoveProjectAttachment(r.Context(), middleware.UserID(r.Context()), projectID, payload.AttachmentID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Attachment removed")
}
