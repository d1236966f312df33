package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/oliveagle/jsonpath"
	"github.com/waflow/waflow/collaborator/httpcall"
	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
)

type apiExecutor struct{}

// Execute performs the HTTP call with the node timeout as a hard
// deadline. Timeout and non-2xx both fail the run; the reason is kept
// on the error for downstream alerting. There is no retry here; retry
// policy belongs to the caller's redelivery mechanism.
func (apiExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	cfg := node.Config.(*model.APIConfig)
	timeout := cfg.TimeoutSeconds
	if timeout == 0 {
		timeout = flow.DEFAULT_API_TIMEOUT_SECONDS
	}
	req := model.HttpCallRequest{
		Method:  cfg.Method,
		Url:     ec.Resolver.Resolve(cfg.Url, ec.Store),
		Headers: ec.Resolver.ResolveStringMap(cfg.Headers, ec.Store),
		Body:    ec.Resolver.Resolve(cfg.Body, ec.Store),
		Timeout: time.Duration(timeout) * time.Second,
	}
	resolved := map[string]any{"method": req.Method, "url": req.Url}

	resp, err := ec.Http.Call(ctx, req)
	if err != nil {
		reason := flow.API_FAIL_TRANSPORT
		if httpcall.IsTimeout(err) {
			reason = flow.API_FAIL_TIMEOUT
		}
		return Fail(flow.APICallFailedError{NodeId: node.Id, Reason: reason, Detail: err.Error()}).WithResolved(resolved)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Fail(flow.APICallFailedError{
			NodeId: node.Id,
			Reason: flow.API_FAIL_STATUS,
			Detail: fmt.Sprintf("status %d", resp.StatusCode),
		}).WithResolved(resolved)
	}

	resolved["status"] = resp.StatusCode
	if cfg.ResponseVariable != "" {
		ec.Store.Set(cfg.ResponseVariable, responseValue(resp.Body, cfg.ResponsePath))
	}
	return Advance("").WithResolved(resolved)
}

// responseValue parses a JSON body into structured form so later nodes
// can reach into it with dotted names or jsonpath. Non-JSON bodies are
// stored as raw text. responsePath narrows the stored value.
func responseValue(body string, responsePath string) any {
	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return body
	}
	if responsePath != "" {
		if v, err := jsonpath.JsonPathLookup(parsed, responsePath); err == nil {
			return v
		}
	}
	return parsed
}
