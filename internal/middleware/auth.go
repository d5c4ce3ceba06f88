package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/teamboard/internal/service/mockapi"
	"github.com/zhouzirui/teamboard/pkg/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

// Authenticator 把访问令牌解析为用户 ID。
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (int64, error)
}

// RequireAuth 校验 Bearer 令牌，并把用户 ID 写入请求上下文。
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "Missing token")
				return
			}
			userID, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				utils.RespondServiceError(w, mockapi.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserID 返回 RequireAuth 写入的用户 ID。
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// BearerToken 从 Authorization 头中取出令牌。
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
