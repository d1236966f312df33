package flow

import "fmt"

// ValidationError rejects a malformed flow definition at load time,
// before any run is created.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("ValidationError: %s", e.Message)
}

func validationErrorf(format string, args ...any) ValidationError {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

type SendFailedError struct {
	NodeId string
	Err    error
}

func (e SendFailedError) Error() string {
	return fmt.Sprintf("SendFailed: node %s: %v", e.NodeId, e.Err)
}

func (e SendFailedError) Unwrap() error { return e.Err }

type APIFailReason string

const API_FAIL_TIMEOUT APIFailReason = "timeout"
const API_FAIL_STATUS APIFailReason = "status"
const API_FAIL_TRANSPORT APIFailReason = "transport"

type APICallFailedError struct {
	NodeId string
	Reason APIFailReason
	Detail string
}

func (e APICallFailedError) Error() string {
	return fmt.Sprintf("APICallFailed: node %s: %s: %s", e.NodeId, e.Reason, e.Detail)
}

type MutationError struct {
	NodeId string
	Err    error
}

func (e MutationError) Error() string {
	return fmt.Sprintf("MutationError: node %s: %v", e.NodeId, e.Err)
}

func (e MutationError) Unwrap() error { return e.Err }

type ScriptFailedError struct {
	NodeId string
	Err    error
}

func (e ScriptFailedError) Error() string {
	return fmt.Sprintf("ScriptFailed: node %s: %v", e.NodeId, e.Err)
}

func (e ScriptFailedError) Unwrap() error { return e.Err }

type NoMatchingEdgeError struct {
	NodeId string
	Label  string
}

func (e NoMatchingEdgeError) Error() string {
	return fmt.Sprintf("NoMatchingEdge: node %s has no outgoing edge for label %q", e.NodeId, e.Label)
}

type InfiniteLoopError struct {
	Visits int
}

func (e InfiniteLoopError) Error() string {
	return fmt.Sprintf("InfiniteLoopSuspected: node visit cap %d exceeded", e.Visits)
}

// InputValidationError terminates a run only after the bounded re-prompt
// budget of an input node is exhausted.
type InputValidationError struct {
	Variable string
	Attempts int
}

func (e InputValidationError) Error() string {
	return fmt.Sprintf("InputValidationFailed: variable %s rejected after %d attempts", e.Variable, e.Attempts)
}

type NotWaitingError struct {
	RunId  string
	Status string
}

func (e NotWaitingError) Error() string {
	return fmt.Sprintf("run %s is not waiting, status %s", e.RunId, e.Status)
}

type RunLockedError struct {
	RunId string
}

func (e RunLockedError) Error() string {
	return fmt.Sprintf("run %s is locked by a concurrent execution", e.RunId)
}
