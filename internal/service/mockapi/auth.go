package mockapi

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	model "github.com/zhouzirui/teamboard/internal/model/collab"
)

const minPasswordLength = 6

// Tokens is the credential pair issued on login.
type Tokens struct {
	Access    string
	Refresh   string
	ExpiresAt time.Time
}

// Signup creates an account and signs it in.
func (s *Service) Signup(_ context.Context, username, email, password, bio string) (model.User, Tokens, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)

	var problems []string
	if username == "" {
		problems = append(problems, "Username can't be blank")
	}
	if !strings.Contains(email, "@") {
		problems = append(problems, "Email is invalid")
	}
	if len(password) < minPasswordLength {
		problems = append(problems, "Password is too short (minimum is 6 characters)")
	}
	if len(problems) > 0 {
		return model.User{}, Tokens{}, invalid(problems...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.userByName(username); taken {
		return model.User{}, Tokens{}, invalid("Username has already been taken")
	}

	now := s.now().UTC()
	acc := &account{
		user: model.User{
			ID:        s.id(),
			Username:  username,
			Email:     email,
			Bio:       bio,
			CreatedAt: now,
			UpdatedAt: now,
		},
		password: password,
	}
	s.users[acc.user.ID] = acc
	return acc.user, s.issue(acc.user.ID), nil
}

// Login checks credentials and issues a fresh token pair.
func (s *Service) Login(_ context.Context, username, password string) (model.User, Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.userByName(strings.TrimSpace(username))
	if !ok || acc.password != password {
		return model.User{}, Tokens{}, ErrUnauthorized
	}
	return acc.user, s.issue(acc.user.ID), nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(_ context.Context, refreshToken string) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.refresh[refreshToken]
	if !ok || refreshToken == "" {
		return Tokens{}, ErrUnauthorized
	}
	access, expires := s.grantAccess(userID)
	return Tokens{Access: access, Refresh: refreshToken, ExpiresAt: expires}, nil
}

// Logout revokes the refresh token and the access token presented with it.
func (s *Service) Logout(_ context.Context, refreshToken, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refresh, refreshToken)
	delete(s.access, accessToken)
}

// Authenticate resolves a bearer token to a user id.
func (s *Service) Authenticate(_ context.Context, accessToken string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.access[accessToken]
	if !ok || !s.now().Before(g.expires) {
		return 0, ErrUnauthorized
	}
	return g.userID, nil
}

// Me returns the account behind userID.
func (s *Service) Me(_ context.Context, userID int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return acc.user, nil
}

// UpdateProfile changes the non-empty fields.
func (s *Service) UpdateProfile(_ context.Context, userID int64, username, email, bio string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	if username = strings.TrimSpace(username); username != "" && !strings.EqualFold(username, acc.user.Username) {
		if _, taken := s.userByName(username); taken {
			return model.User{}, invalid("Username has already been taken")
		}
		acc.user.Username = username
	}
	if email = strings.TrimSpace(email); email != "" {
		if !strings.Contains(email, "@") {
			return model.User{}, invalid("Email is invalid")
		}
		acc.user.Email = email
	}
	if bio != "" {
		acc.user.Bio = bio
	}
	acc.user.UpdatedAt = s.now().UTC()
	return acc.user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(_ context.Context, userID int64, current, next, confirmation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if acc.password != current {
		return invalid("Current password is incorrect")
	}
	if err := checkNewPassword(next, confirmation); err != nil {
		return err
	}
	acc.password = next
	return nil
}

// SetProfilePicture stores an uploaded avatar and links it from the profile.
func (s *Service) SetProfilePicture(_ context.Context, userID int64, filename string, data []byte) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	id := s.id()
	s.files[id] = data
	acc.user.ProfilePicture = blobPath(id, filename)
	return acc.user, nil
}

// RequestPasswordReset issues a reset token when email belongs to an
// account. Unknown addresses return an empty token and no error.
func (s *Service) RequestPasswordReset(_ context.Context, email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.users {
		if strings.EqualFold(acc.user.Email, strings.TrimSpace(email)) {
			token := uuid.NewString()
			s.resets[token] = acc.user.ID
			return token
		}
	}
	return ""
}

// ResetPassword consumes a reset token.
func (s *Service) ResetPassword(_ context.Context, token, password, confirmation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.resets[token]
	if !ok {
		return invalid("Reset token is invalid or has expired")
	}
	if err := checkNewPassword(password, confirmation); err != nil {
		return err
	}
	delete(s.resets, token)
	s.users[userID].password = password
	return nil
}

func (s *Service) issue(userID int64) Tokens {
	access, expires := s.grantAccess(userID)
	refresh := uuid.NewString()
	s.refresh[refresh] = userID
	return Tokens{Access: access, Refresh: refresh, ExpiresAt: expires}
}

func (s *Service) grantAccess(userID int64) (string, time.Time) {
	token := uuid.NewString()
	expires := s.now().Add(s.tokenTTL)
	s.access[token] = grant{userID: userID, expires: expires}
	return token, expires
}

func checkNewPassword(password, confirmation string) error {
	var problems []string
	if len(password) < minPasswordLength {
		problems = append(problems, "Password is too short (minimum is 6 characters)")
	}
	if password != confirmation {
		problems = append(problems, "Password confirmation doesn't match Password")
	}
	if len(problems) > 0 {
		return invalid(problems...)
	}
	return nil
}
