package apiclient

import (
	"context"
)

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration are the signup form fields.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
}

// Login authenticates and, when the response carries an access_token, makes
// it the session credential.
func (c *Client) Login(ctx context.Context, creds Credentials) Result {
	res := c.Post(ctx, "/login", JSON(creds))
	c.adoptToken(res, "access_token")
	return res
}

// Signup registers a user and adopts the returned token, if any.
func (c *Client) Signup(ctx context.Context, reg Registration) Result {
	res := c.Post(ctx, "/signup", JSON(reg))
	c.adoptToken(res, "token", "access_token")
	return res
}

// Logout ends the server session and always clears the local credential.
func (c *Client) Logout(ctx context.Context) Result {
	res := c.Post(ctx, "/logout", nil)
	c.clearSession()
	return res
}

func (c *Client) adoptToken(res Result, keys ...string) {
	if !res.Ok() {
		return
	}
	token := stringField(res.Data, keys...)
	if token == "" {
		return
	}
	if err := c.session.Set(token); err != nil {
		c.logger.Warn("Failed to persist token", "error", err)
	}
}
