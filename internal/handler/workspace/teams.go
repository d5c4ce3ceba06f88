package workspace

import (
	"net/http"

	"github.com/zhouzirui/teamboard/internal/middleware"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
	"github.com/zhouzirui/teamboard/pkg/utils"
)

// handleListTeams 返回裸数组
func (h *Handler) handleListTeams(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.svc.ListTeams(r.Context(), middleware.UserID(r.Context())))
}

func (h *Handler) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Team model.TeamInput `json:"team"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	team, err := h.svc.CreateTeam(r.Context(), middleware.UserID(r.Context()), payload.Team)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, team)
}

// handleGetTeam 返回 {data: team}
func (h *Handler) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := utils.IDParam(w, r, "teamID")
	if !ok {
		return
	}

	team, err := h.svc.GetTeam(r.Context(), middleware.UserID(r.Context()), teamID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": team})
}

func (h *Handler) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := utils.IDParam(w, r, "teamID")
	if !ok {
		return
	}
	var payload struct {
		Team model.TeamInput `json:"team"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	team, err := h.svc.UpdateTeam(r.Context(), middleware.UserID(r.Context()), teamID, payload.Team)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, team)
}

// handleDeleteTeam 成功时返回 204 空响应
func (h *Handler) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := utils.IDParam(w, r, "teamID")
	if !ok {
		return
	}

	if err := h.svc.DeleteTeam(r.Context(), middleware.UserID(r.Context()), teamID); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInviteTeamMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := utils.IDParam(w, r, "teamID")
	if !ok {
		return
	}
	var payload memberPayload
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	inv, err := h.svc.InviteTeamMember(r.Context(), middleware.UserID(r.Context()), teamID, payload.Username, payload.Role)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{"message": "Invitation sent", "invitation": inv})
}
