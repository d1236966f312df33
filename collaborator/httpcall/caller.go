// Package httpcall is the resty-backed HTTPCaller used by api and
// webhook nodes.
package httpcall

import (
	"context"
	"errors"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/waflow/waflow/collaborator"
	"github.com/waflow/waflow/model"
)

type Caller struct {
	client *resty.Client
}

var _ collaborator.HTTPCaller = new(Caller)

func NewCaller() *Caller {
	return &Caller{
		client: resty.New(),
	}
}

// Call executes the request with req.Timeout as a hard deadline via the
// context. The response is returned for any status code; classifying
// non-2xx as a failure is the executor's concern.
func (c *Caller) Call(ctx context.Context, req model.HttpCallRequest) (*model.HttpCallResponse, error) {
	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	r := c.client.R().SetContext(callCtx).SetHeaders(req.Headers)
	if req.Body != "" {
		r.SetBody(req.Body)
	}
	resp, err := r.Execute(req.Method, req.Url)
	if err != nil {
		return nil, err
	}
	return &model.HttpCallResponse{
		StatusCode: resp.StatusCode(),
		Body:       string(resp.Body()),
	}, nil
}

// IsTimeout reports whether a call error was caused by the per-node
// deadline rather than a transport failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	return false
}
