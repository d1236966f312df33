package model

import "time"

type RunStatus string

const RUN_STATUS_RUNNING RunStatus = "running"
const RUN_STATUS_WAITING_INPUT RunStatus = "waiting_input"
const RUN_STATUS_WAITING_DELAY RunStatus = "waiting_delay"
const RUN_STATUS_COMPLETED RunStatus = "completed"
const RUN_STATUS_FAILED RunStatus = "failed"
const RUN_STATUS_CANCELLED RunStatus = "cancelled"

func (s RunStatus) IsTerminal() bool {
	return s == RUN_STATUS_COMPLETED || s == RUN_STATUS_FAILED || s == RUN_STATUS_CANCELLED
}

func (s RunStatus) IsWaiting() bool {
	return s == RUN_STATUS_WAITING_INPUT || s == RUN_STATUS_WAITING_DELAY
}

// RunState is one execution instance of a flow against a conversation.
// It is persisted whenever the run suspends or terminates and rebuilt
// from storage on resume, which may happen on a different process.
type RunState struct {
	RunId            string         `json:"runId"`
	FlowId           string         `json:"flowId"`
	FlowVersion      int            `json:"flowVersion"`
	TenantId         string         `json:"tenantId,omitempty"`
	ConversationId   string         `json:"conversationId,omitempty"`
	ContactId        string         `json:"contactId,omitempty"`
	CurrentNodeId    string         `json:"currentNodeId"`
	Status           RunStatus      `json:"status"`
	Variables        map[string]any `json:"variables"`
	ExecutionPath    []string       `json:"executionPath"`
	ResumeAt         time.Time      `json:"resumeAt,omitempty"`
	AwaitingVariable string         `json:"awaitingVariable,omitempty"`
	InputAttempts    int            `json:"inputAttempts,omitempty"`
	Visits           int            `json:"visits"`
	Test             bool           `json:"test,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type ExecutionLogEntry struct {
	NodeId          string         `json:"nodeId"`
	NodeType        NodeType       `json:"nodeType"`
	ResolvedConfig  map[string]any `json:"resolvedConfig,omitempty"`
	Outcome         string         `json:"outcome"`
	Error           string         `json:"error,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	ContextSnapshot map[string]any `json:"contextSnapshot,omitempty"`
}

type EventType string

const EVENT_MESSAGE EventType = "message"
const EVENT_BUTTON_REPLY EventType = "button_reply"
const EVENT_DELAY_ELAPSED EventType = "delay_elapsed"

// Event is the external stimulus that resumes a waiting run: an inbound
// message, a button selection or an elapsed delay timer.
type Event struct {
	Type  EventType      `json:"type"`
	Value string         `json:"value,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Trigger carries the conversation/contact context a run is started with.
type Trigger struct {
	TenantId       string         `json:"tenantId,omitempty"`
	ConversationId string         `json:"conversationId,omitempty"`
	ContactId      string         `json:"contactId,omitempty"`
	Contact        map[string]any `json:"contact,omitempty"`
	User           map[string]any `json:"user,omitempty"`
	Input          map[string]any `json:"input,omitempty"`
	Message        string         `json:"message,omitempty"`
	Test           bool           `json:"test,omitempty"`
}

type RunResult struct {
	RunId         string              `json:"runId"`
	FlowId        string              `json:"flowId"`
	Status        RunStatus           `json:"status"`
	Success       bool                `json:"success"`
	Error         string              `json:"error,omitempty"`
	ExecutionPath []string            `json:"executionPath"`
	Logs          []ExecutionLogEntry `json:"logs"`
	FinalContext  map[string]any      `json:"finalContext"`
	Messages      []OutboundMessage   `json:"messages,omitempty"`
}

type MessageKind string

const MESSAGE_KIND_TEXT MessageKind = "text"
const MESSAGE_KIND_TEMPLATE MessageKind = "template"
const MESSAGE_KIND_BUTTONS MessageKind = "buttons"

type OutboundMessage struct {
	ConversationId string            `json:"conversationId"`
	Kind           MessageKind       `json:"kind"`
	Text           string            `json:"text,omitempty"`
	TemplateId     string            `json:"templateId,omitempty"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	Buttons        []string          `json:"buttons,omitempty"`
}

type ContactOpKind string

const CONTACT_OP_ASSIGN ContactOpKind = "assign"
const CONTACT_OP_TAG ContactOpKind = "tag"
const CONTACT_OP_UNTAG ContactOpKind = "untag"
const CONTACT_OP_SET_FIELD ContactOpKind = "set_field"

type ContactOperation struct {
	Kind       ContactOpKind `json:"kind"`
	AssigneeId string        `json:"assigneeId,omitempty"`
	Tag        string        `json:"tag,omitempty"`
	Field      string        `json:"field,omitempty"`
	Value      string        `json:"value,omitempty"`
}

type HttpCallRequest struct {
	Method  string            `json:"method"`
	Url     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
	Timeout time.Duration     `json:"timeout"`
}

type HttpCallResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// FlowRunRequest is the REST payload to start a flow run.
type FlowRunRequest struct {
	FlowId  string  `json:"flowId"`
	Trigger Trigger `json:"trigger"`
}

// FlowEvent is the REST payload delivered by webhook ingress or the
// delay scheduler to resume a waiting run.
type FlowEvent struct {
	RunId string         `json:"runId"`
	Type  EventType      `json:"type"`
	Value string         `json:"value,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}
