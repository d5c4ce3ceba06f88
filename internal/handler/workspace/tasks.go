package workspace

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/zhouzirui/teamboard/internal/middleware"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/pkg/utils"
)

type taskPayload struct {
	Task model.TaskInput `json:"task"`
}

// handleListTasks 返回两层包裹 {data: {data: [...]}}
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}

	tasks, err := h.svc.ListTasks(r.Context(), middleware.UserID(r.Context()), projectID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"data": tasks}})
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	projectID, ok := utils.IDParam(w, r, "projectID")
	if !ok {
		return
	}
	var payload taskPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	task, err := h.svc.CreateTask(r.Context(), middleware.UserID(r.Context()), projectID, payload.Task)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, task)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}

	task, err := h.svc.GetTask(r.Context(), middleware.UserID(r.Context()), taskID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": task})
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	var payload taskPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	task, err := h.svc.UpdateTask(r.Context(), middleware.UserID(r.Context()), taskID, payload.Task)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, task)
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}

	if err := h.svc.DeleteTask(r.Context(), middleware.UserID(r.Context()), taskID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListSubTasks 返回裸数组，每个元素再包一层 {data: task}
func (h *Handler) handleListSubTasks(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}

	subTasks, err := h.svc.ListSubTasks(r.Context(), middleware.UserID(r.Context()), taskID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	wrapped := make([]map[string]model.Task, 0, len(subTasks))
	for _, t := range subTasks {
		wrapped = append(wrapped, map[string]model.Task{"data": t})
	}
	utils.RespondJSON(w, http.StatusOK, wrapped)
}

func (h *Handler) handleCreateSubTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	var payload taskPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	task, err := h.svc.CreateSubTask(r.Context(), middleware.UserID(r.Context()), taskID, payload.Task)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{"data": task})
}

// handleAssignMember 直接分配成员，不经过邀请
func (h *Handler) handleAssignMember(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	var payload memberPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if err := h.svc.AssignTaskMember(r.Context(), middleware.UserID(r.Context()), taskID, payload.Username, payload.Role); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusCreated, "Member assigned successfully")
}

func (h *Handler) handleAddTaskComment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	var payload contentPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	comment, err := h.svc.AddTaskComment(r.Context(), middleware.UserID(r.Context()), taskID, payload.Content)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{"data": comment})
}

func (h *Handler) handleUpdateTaskComment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
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

	comment, err := h.svc.UpdateTaskComment(r.Context(), middleware.UserID(r.Context()), taskID, commentID, payload.Content)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, comment)
}

func (h *Handler) handleRemoveTaskComment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	commentID, ok := utils.IDParam(w, r, "commentID")
	if !ok {
		return
	}

	if err := h.svc.RemoveTaskComment(r.Context(), middleware.UserID(r.Context()), taskID, commentID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddTaskTag(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	var payload namePayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	tag, err := h.svc.AddTaskTag(r.Context(), middleware.UserID(r.Context()), taskID, payload.Name)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, tag)
}

func (h *Handler) handleRemoveTaskTag(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	tagID, ok := utils.IDParam(w, r, "tagID")
	if !ok {
		return
	}

	if err := h.svc.RemoveTaskTag(r.Context(), middleware.UserID(r.Context()), taskID, tagID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Tag removed")
}

// handleAddTaskAttachment 接收 multipart 字段 file
func (h *Handler) handleAddTaskAttachment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	filename, data, ok := utils.ReadUpload(w, r, "file")
	if !ok {
		return
	}

	att, err := h.svc.AddTaskAttachment(r.Context(), middleware.UserID(r.Context()), taskID, filename, data)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, att)
}

func (h *Handler) handleRemoveTaskAttachment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	attachmentID, ok := utils.IDParam(w, r, "attachmentID")
	if !ok {
		return
	}

	if err := h.svc.RemoveTaskAttachment(r.Context(), middleware.UserID(r.Context()), taskID, attachmentID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Attachment removed")
}

// handleDownloadAttachment 以原始字节流返回附件内容
func (h *Handler) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := utils.IDParam(w, r, "taskID")
	if !ok {
		return
	}
	attachmentID, ok := utils.IDParam(w, r, "attachmentID")
	if !ok {
		return
	}

	att, data, err := h.svc.TaskAttachment(r.Context(), middleware.UserID(r.Context()), taskID, attachmentID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
