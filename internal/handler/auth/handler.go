package auth

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/teamboard/internal/middleware"
	"github.com/zhouzirui/teamboard/internal/service/mockapi"
	"github.com/zhouzirui/teamboard/pkg/utils"
)

// RefreshCookie 是保存刷新令牌的 Cookie 名称。
const RefreshCookie = "refresh_token"

// Handler 账户与会话相关的HTTP处理器
type Handler struct {
	svc *mockapi.Service
}

// New 创建账户处理器
func New(svc *mockapi.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes 注册无需登录的路由
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
	r.Post("/logout", h.handleLogout)
	r.Post("/password_resets", h.handleRequestReset)
	r.Put("/password_resets", h.handleReset)
}

// RegisterRoutes 注册需要登录的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Put("/profile", h.handleUpdateProfile)
	r.Put("/change_password", h.handleChangePassword)
	r.Post("/profile/picture", h.handleProfilePicture)
}

// handleSignup 注册并直接登录，返回 token 字段
func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Bio      string `json:"bio"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	user, tokens, err := h.svc.Signup(r.Context(), payload.Username, payload.Email, payload.Password, payload.Bio)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	setRefreshCookie(w, tokens.Refresh)
	log.Printf("[auth] signup user=%s", user.Username)
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user,
		"token":   tokens.Access,
	})
}

// handleLogin 校验用户名密码，返回 access_token 字段
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	user, tokens, err := h.svc.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	setRefreshCookie(w, tokens.Refresh)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"access_token": tokens.Access,
		"expires_at":   tokens.ExpiresAt.Format(time.RFC3339),
		"user":         user,
	})
}

// handleRefresh 使用 Cookie 中的刷新令牌换取新的访问令牌
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookie)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}

	tokens, err := h.svc.Refresh(r.Context(), cookie.Value)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"access_token": tokens.Access,
		"expires_at":   tokens.ExpiresAt.Format(time.RFC3339),
	})
}

// handleLogout 撤销令牌并清除 Cookie，令牌失效时同样成功
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	refresh := ""
	if cookie, err := r.Cookie(RefreshCookie); err == nil {
		refresh = cookie.Value
	}
	h.svc.Logout(r.Context(), refresh, middleware.BearerToken(r))

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	utils.RespondMessage(w, http.StatusOK, "Logged out successfully")
}

// handleRequestReset 无论邮箱是否存在都返回相同结果
func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if token := h.svc.RequestPasswordReset(r.Context(), payload.Email); token != "" {
		log.Printf("[auth] password reset token for %s: %s", payload.Email, token)
	}
	utils.RespondMessage(w, http.StatusOK, "If that email exists, reset instructions have been sent")
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token                string `json:"token"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if err := h.svc.ResetPassword(r.Context(), payload.Token, payload.Password, payload.PasswordConfirmation); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Password has been reset")
}

// handleMe 返回当前用户，外层包一层 data
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		User struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Bio      string `json:"bio"`
		} `json:"user"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), middleware.UserID(r.Context()),
		payload.User.Username, payload.User.Email, payload.User.Bio)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": user, "message": "Profile updated successfully"})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CurrentPassword         string `json:"current_password"`
		NewPassword             string `json:"new_password"`
		NewPasswordConfirmation string `json:"new_password_confirmation"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	err := h.svc.ChangePassword(r.Context(), middleware.UserID(r.Context()),
		payload.CurrentPassword, payload.NewPassword, payload.NewPasswordConfirmation)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Password changed successfully")
}

// handleProfilePicture 接收 multipart 字段 profile_picture
func (h *Handler) handleProfilePicture(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := utils.ReadUpload(w, r, "profile_picture")
	if !ok {
		return
	}

	user, err := h.svc.SetProfilePicture(r.Context(), middleware.UserID(r.Context()), filename, data)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"data": user})
}

func setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
	})
}
