package apiclient

import (
	"context"
	"net/http"
)

// Refresh asks the API for a new bearer token using the refresh cookie only.
// It sends no Authorization header and never retries.
func (c *Client) Refresh(ctx context.Context) Result {
	resp, err := c.send(ctx, Request{Method: http.MethodPost, Path: RefreshPath}, nil, "application/json", "")
	if err != nil {
		c.logger.Warn("Refresh transport failure", "error", err)
		return Result{Error: MsgRefreshNetworkError}
	}
	if !resp.ok() {
		return Result{Error: serverMessage(resp.body, MsgRefreshFailed), Status: resp.status}
	}
	return resp.result()
}

// refreshToken runs one refresh and stores the new token. Concurrent callers
// share a single in-flight refresh, which outlives any one caller's context;
// a caller whose ctx ends stops waiting and gets ok == false.
func (c *Client) refreshToken(ctx context.Context) (string, bool) {
	shared := context.WithoutCancel(ctx)
	ch := c.refreshGroup.DoChan(RefreshPath, func() (any, error) {
		c.logger.Info("Attempting to refresh token")
		res := c.Refresh(shared)

		token := ""
		if res.Ok() {
			token = stringField(res.Data, "access_token")
		}
		c.metrics.observeRefresh(token != "")
		if token == "" {
			return "", nil
		}

		if err := c.session.Set(token); err != nil {
			c.logger.Warn("Failed to persist refreshed token", "error", err)
		}
		return token, nil
	})

	select {
	case r := <-ch:
		token, _ := r.Val.(string)
		return token, token != ""
	case <-ctx.Done():
		return "", false
	}
}
