package inbox

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/teamboard/internal/middleware"
	"github.com/zhouzirui/teamboard/internal/service/mockapi"
	"github.com/zhouzirui/teamboard/pkg/utils"
)

// Handler 动态与邀请的HTTP处理器
type Handler struct {
	svc *mockapi.Service
}

// New 创建收件箱处理器
func New(svc *mockapi.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册动态与邀请路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/activities", h.handleListActivities)
	r.Put("/activities/mark_all_read", h.handleMarkAllRead)
	r.Put("/activities/{activityID}/read", h.handleMarkRead)
	r.Get("/invitations", h.handleListInvitations)
	r.Put("/invitations/{invitationID}", h.handleAnswerInvitation)
}

// handleListActivities 返回 {data: [{data: activity}, ...]}
func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	acts := h.svc.ListActivities(r.Context(), middleware.UserID(r.Context()))
	wrapped := make([]map[string]any, 0, len(acts))
	for _, a := range acts {
		wrapped = append(wrapped, map[string]any{"data": a})
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": wrapped})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	activityID, ok := utils.IDParam(w, r, "activityID")
	if !ok {
		return
	}

	if err := h.svc.MarkActivityRead(r.Context(), middleware.UserID(r.Context()), activityID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Activity marked as read")
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n := h.svc.MarkAllActivitiesRead(r.Context(), middleware.UserID(r.Context()))
	utils.RespondJSON(w, http.StatusOK, map[string]any{"message": "All activities marked as read", "count": n})
}

// handleListInvitations 返回裸数组
func (h *Handler) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.svc.ListInvitations(r.Context(), middleware.UserID(r.Context())))
}

func (h *Handler) handleAnswerInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := utils.IDParam(w, r, "invitationID")
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	inv, err := h.svc.AnswerInvitation(r.Context(), middleware.UserID(r.Context()), invitationID, payload.Status)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": inv, "message": "Invitation " + inv.Status})
}
