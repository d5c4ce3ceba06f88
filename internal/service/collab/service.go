// Package collab exposes the collaboration API as typed Go calls on top of
// the access envelope. List calls degrade to an empty slice alongside any
// error so callers can always range over the result.
package collab

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	"github.com/zhouzirui/teamboard/internal/normalize"
)

// Doer is the part of the access envelope the service needs.
type Doer interface {
	Do(ctx context.Context, req apiclient.Request) apiclient.Result
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// Service wraps every endpoint of the collaboration API.
type Service struct {
	api Doer
}

// NewService returns a Service issuing requests through api.
func NewService(api Doer) *Service {
	return &Service{api: api}
}

func list[T any](ctx context.Context, api Doer, path string) ([]T, error) {
	res := api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: path})
	if err := res.Err(); err != nil {
		return []T{}, err
	}
	return normalize.Items[T](res.Data)
}

func one[T any](ctx context.Context, api Doer, req apiclient.Request) (T, error) {
	var v T
	res := api.Do(ctx, req)
	if err := res.Err(); err != nil {
		return v, err
	}
	if err := normalize.Decode(res.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
	}
	return v, nil
}

func exec(ctx context.Context, api Doer, method, path string, body apiclient.Body) error {
	return api.Do(ctx, apiclient.Request{Method: method, Path: path, Body: body}).Err()
}

func get(path string) apiclient.Request {
	return apiclient.Request{Method: http.MethodGet, Path: path}
}

func post(path string, body apiclient.Body) apiclient.Request {
	return apiclient.Request{Method: http.MethodPost, Path: path, Body: body}
}

func put(path string, body apiclient.Body) apiclient.Request {
	return apiclient.Request{Method: http.MethodPut, Path: path, Body: body}
}

// MemberInvite names a user and the role to grant.
type MemberInvite struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}
