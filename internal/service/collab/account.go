package collab

import (
	"context"
	"io"
	"net/http"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// PasswordChange is the change_password payload.
type PasswordChange struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// Me returns the signed-in user.
func (s *Service) Me(ctx context.Context) (model.User, error) {
	return one[model.User](ctx, s.api, get("/me"))
}

// UpdateProfile changes profile fields of the signed-in user.
func (s *Service) UpdateProfile(ctx context.Context, p ProfileUpdate) (model.User, error) {
	return one[model.User](ctx, s.api, put("/profile", apiclient.JSON(map[string]any{"user": p})))
}

// ChangePassword updates the signed-in user's password.
func (s *Service) ChangePassword(ctx context.Context, p PasswordChange) error {
	return exec(ctx, s.api, http.MethodPut, "/change_password", apiclient.JSON(p))
}

// UploadProfilePicture replaces the avatar with the image read from r.
func (s *Service) UploadProfilePicture(ctx context.Context, filename string, r io.Reader) (model.User, error) {
	form := apiclient.NewForm().File("profile_picture", filename, r)
	return one[model.User](ctx, s.api, post("/profile/picture", form))
}

// RequestPasswordReset emails a reset token to email.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	return exec(ctx, s.api, http.MethodPost, "/password_resets", apiclient.JSON(map[string]string{"email": email}))
}

// ResetPassword sets a new password using a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirmation string) error {
	return exec(ctx, s.api, http.MethodPut, "/password_resets", apiclient.JSON(map[string]string{
		"token":                 token,
		"password":              password,
		"password_confirmation": confirmation,
	}))
}
