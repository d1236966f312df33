// Package executor holds one executor per node type. An executor
// consumes the run context plus the node config, performs its effect
// through the collaborators and returns a transition decision.
package executor

import (
	"context"
	"time"

	"github.com/waflow/waflow/collaborator"
	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/template"
	"github.com/waflow/waflow/variables"
)

type ResultKind int

const (
	KIND_ADVANCE ResultKind = iota
	KIND_SUSPEND
	KIND_COMPLETE
	KIND_FAIL
)

// Result is the transition decision of one node execution.
type Result struct {
	Kind             ResultKind
	Label            string
	JumpTo           string
	Reason           model.RunStatus
	ResumeAt         time.Time
	AwaitingVariable string
	Resolved         map[string]any
	Err              error
}

func Advance(label string) Result {
	return Result{Kind: KIND_ADVANCE, Label: label}
}

func Jump(target string) Result {
	return Result{Kind: KIND_ADVANCE, JumpTo: target}
}

func Complete() Result {
	return Result{Kind: KIND_COMPLETE}
}

func SuspendForInput(awaitingVariable string) Result {
	return Result{Kind: KIND_SUSPEND, Reason: model.RUN_STATUS_WAITING_INPUT, AwaitingVariable: awaitingVariable}
}

func SuspendForDelay(resumeAt time.Time) Result {
	return Result{Kind: KIND_SUSPEND, Reason: model.RUN_STATUS_WAITING_DELAY, ResumeAt: resumeAt}
}

func Fail(err error) Result {
	return Result{Kind: KIND_FAIL, Err: err}
}

func (r Result) WithResolved(resolved map[string]any) Result {
	r.Resolved = resolved
	return r
}

// Context carries everything a node executor may touch during one step
// of one run. Event holds the resume stimulus and is consumed by the
// first node executed in a resume invocation.
type Context struct {
	Flow             *flow.Flow
	Run              *model.RunState
	Store            *variables.Store
	Resolver         *template.Resolver
	Sender           collaborator.MessageSender
	Http             collaborator.HTTPCaller
	Mutator          collaborator.ContactMutator
	Event            *model.Event
	MaxInputAttempts int
}

type Executor interface {
	Execute(ctx context.Context, ec *Context, node *model.Node) Result
}

type Registry struct {
	executors map[model.NodeType]Executor
}

func NewRegistry() *Registry {
	r := &Registry{executors: make(map[model.NodeType]Executor)}
	r.register(model.NODE_TYPE_START, &startExecutor{})
	r.register(model.NODE_TYPE_END, &endExecutor{})
	r.register(model.NODE_TYPE_MESSAGE, &messageExecutor{})
	r.register(model.NODE_TYPE_TEMPLATE, &templateExecutor{})
	r.register(model.NODE_TYPE_CONDITION, &conditionExecutor{})
	r.register(model.NODE_TYPE_INPUT, &inputExecutor{})
	r.register(model.NODE_TYPE_BUTTON, &buttonExecutor{})
	r.register(model.NODE_TYPE_DELAY, &delayExecutor{})
	r.register(model.NODE_TYPE_API, &apiExecutor{})
	r.register(model.NODE_TYPE_WEBHOOK, &apiExecutor{})
	r.register(model.NODE_TYPE_JUMP, &jumpExecutor{})
	r.register(model.NODE_TYPE_ASSIGNMENT, &contactExecutor{})
	r.register(model.NODE_TYPE_TAG, &contactExecutor{})
	r.register(model.NODE_TYPE_CUSTOM_FIELD, &contactExecutor{})
	r.register(model.NODE_TYPE_SCRIPT, &scriptExecutor{})
	return r
}

func (r *Registry) register(t model.NodeType, ex Executor) {
	r.executors[t] = ex
}

func (r *Registry) Get(t model.NodeType) (Executor, bool) {
	ex, ok := r.executors[t]
	return ex, ok
}
