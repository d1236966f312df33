package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/waflow/waflow/collaborator"
	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/metadata"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence/inmem"
)

type scriptedCaller struct {
	resp *model.HttpCallResponse
	err  error
	last model.HttpCallRequest
}

func (c *scriptedCaller) Call(ctx context.Context, req model.HttpCallRequest) (*model.HttpCallResponse, error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

type recordingMutator struct {
	mu  sync.Mutex
	ops []model.ContactOperation
}

func (m *recordingMutator) Mutate(ctx context.Context, contactId string, op model.ContactOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	return nil
}

type recordingScheduler struct {
	runId    string
	resumeAt time.Time
	calls    int
}

func (s *recordingScheduler) Schedule(runId string, resumeAt time.Time) error {
	s.runId = runId
	s.resumeAt = resumeAt
	s.calls++
	return nil
}

type fixture struct {
	engine  *Engine
	storage *inmem.Storage
	sender  *collaborator.RecordingSender
	http    *scriptedCaller
	mutator *recordingMutator
}

func newFixture(t *testing.T, conf Config, rawFlows ...string) *fixture {
	t.Helper()
	storage := inmem.NewStorage()
	meta := metadata.NewService(storage)
	for _, raw := range rawFlows {
		_, err := meta.Save([]byte(raw))
		require.NoError(t, err)
	}
	f := &fixture{
		storage: storage,
		sender:  collaborator.NewRecordingSender(),
		http:    &scriptedCaller{resp: &model.HttpCallResponse{StatusCode: 200, Body: "{}"}},
		mutator: &recordingMutator{},
	}
	f.engine = New(conf, meta, storage, storage, f.sender, f.http, f.mutator)
	return f
}

const greetingFlow = `{
	"id": "greeting", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "greet", "type": "message", "config": {"content": "Hi {{contact.name}}"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "greet"},
		{"id": "e2", "source": "greet", "target": "end"}
	]
}`

func TestStartFlowGreeting(t *testing.T) {
	f := newFixture(t, Config{}, greetingFlow)
	result, err := f.engine.StartFlow(context.Background(), "greeting", model.Trigger{
		ConversationId: "c1",
		Contact:        map[string]any{"name": "Ana"},
	})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)
	require.True(t, result.Success)
	require.Equal(t, []string{"start", "greet", "end"}, result.ExecutionPath)

	sent := f.sender.Messages()
	require.Len(t, sent, 1)
	require.Equal(t, "Hi Ana", sent[0].Text)
	require.Equal(t, "c1", sent[0].ConversationId)
	require.Equal(t, model.MESSAGE_KIND_TEXT, sent[0].Kind)

	require.Len(t, result.Logs, 3)
	require.Equal(t, "Hi Ana", result.Logs[1].ResolvedConfig["content"])

	stored, err := f.storage.GetLogEntries(result.RunId)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	state, err := f.storage.GetRunState(result.RunId)
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, state.Status)
	require.Equal(t, 3, state.Visits)
}

const branchFlow = `{
	"id": "gate", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "check", "type": "condition", "config": {"logic": "AND", "rules": [
			{"variable": "{{age}}", "operator": "greater_than", "value": "18"}]}},
		{"id": "adult", "type": "message", "config": {"content": "welcome"}},
		{"id": "minor", "type": "message", "config": {"content": "sorry"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "check"},
		{"id": "e2", "source": "check", "target": "adult", "sourceHandle": "true"},
		{"id": "e3", "source": "check", "target": "minor", "sourceHandle": "false"},
		{"id": "e4", "source": "adult", "target": "end"},
		{"id": "e5", "source": "minor", "target": "end"}
	]
}`

func TestConditionBranching(t *testing.T) {
	for scenario, tc := range map[string]struct {
		age     string
		next    string
		outcome string
	}{
		"true branch":  {age: "20", next: "adult", outcome: "branch:true"},
		"false branch": {age: "15", next: "minor", outcome: "branch:false"},
	} {
		t.Run(scenario, func(t *testing.T) {
			f := newFixture(t, Config{}, branchFlow)
			result, err := f.engine.StartFlow(context.Background(), "gate", model.Trigger{
				Input: map[string]any{"age": tc.age},
			})
			require.NoError(t, err)
			require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)
			require.Equal(t, []string{"start", "check", tc.next, "end"}, result.ExecutionPath)
			require.Equal(t, tc.outcome, result.Logs[1].Outcome)
		})
	}
}

const delayFlow = `{
	"id": "drip", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "wait", "type": "delay", "config": {"duration": 5, "unit": "minutes"}},
		{"id": "bye", "type": "message", "config": {"content": "still there?"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "wait"},
		{"id": "e2", "source": "wait", "target": "bye"},
		{"id": "e3", "source": "bye", "target": "end"}
	]
}`

func TestDelaySuspendAndResume(t *testing.T) {
	f := newFixture(t, Config{}, delayFlow)
	scheduler := &recordingScheduler{}
	f.engine.SetScheduler(scheduler)

	before := time.Now()
	result, err := f.engine.StartFlow(context.Background(), "drip", model.Trigger{ConversationId: "c1"})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_WAITING_DELAY, result.Status)
	require.Equal(t, []string{"start", "wait"}, result.ExecutionPath)
	require.Empty(t, f.sender.Messages())

	state, err := f.storage.GetRunState(result.RunId)
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_WAITING_DELAY, state.Status)
	lower := before.Add(5 * time.Minute).Add(-2 * time.Second)
	upper := time.Now().Add(5 * time.Minute).Add(2 * time.Second)
	require.True(t, state.ResumeAt.After(lower), "resumeAt %v not after %v", state.ResumeAt, lower)
	require.True(t, state.ResumeAt.Before(upper), "resumeAt %v not before %v", state.ResumeAt, upper)

	require.Equal(t, result.RunId, scheduler.runId)
	require.False(t, scheduler.resumeAt.IsZero())

	resumed, err := f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{Type: model.EVENT_DELAY_ELAPSED})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, resumed.Status)
	require.Equal(t, []string{"start", "wait", "wait", "bye", "end"}, resumed.ExecutionPath)
	require.Len(t, f.sender.Messages(), 1)
	require.Equal(t, "still there?", f.sender.Messages()[0].Text)
}

func TestStrayMessageDoesNotResetDelayTimer(t *testing.T) {
	f := newFixture(t, Config{}, delayFlow)
	scheduler := &recordingScheduler{}
	f.engine.SetScheduler(scheduler)

	result, err := f.engine.StartFlow(context.Background(), "drip", model.Trigger{ConversationId: "c1"})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_WAITING_DELAY, result.Status)
	require.Equal(t, 1, scheduler.calls)

	state, err := f.storage.GetRunState(result.RunId)
	require.NoError(t, err)
	deadline := state.ResumeAt

	resumed, err := f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{
		Type:  model.EVENT_MESSAGE,
		Value: "are you there?",
	})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_WAITING_DELAY, resumed.Status)

	state, err = f.storage.GetRunState(result.RunId)
	require.NoError(t, err)
	require.True(t, state.ResumeAt.Equal(deadline), "deadline moved from %v to %v", deadline, state.ResumeAt)
	// the original timer is still queued, no second entry
	require.Equal(t, 1, scheduler.calls)

	done, err := f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{Type: model.EVENT_DELAY_ELAPSED})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, done.Status)
}

const surveyFlow = `{
	"id": "survey", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "ask", "type": "input", "config": {"variableName": "favColor", "prompt": "favorite color?"}},
		{"id": "thanks", "type": "message", "config": {"content": "{{favColor}}, nice"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "ask"},
		{"id": "e2", "source": "ask", "target": "thanks"},
		{"id": "e3", "source": "thanks", "target": "end"}
	]
}`

func TestInputSuspendAndResume(t *testing.T) {
	f := newFixture(t, Config{}, surveyFlow)
	result, err := f.engine.StartFlow(context.Background(), "survey", model.Trigger{ConversationId: "c1"})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_WAITING_INPUT, result.Status)

	state, err := f.storage.GetRunState(result.RunId)
	require.NoError(t, err)
	require.Equal(t, "favColor", state.AwaitingVariable)
	require.Len(t, f.sender.Messages(), 1)
	require.Equal(t, "favorite color?", f.sender.Messages()[0].Text)

	resumed, err := f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{
		Type:  model.EVENT_MESSAGE,
		Value: "blue",
	})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, resumed.Status)
	require.Equal(t, "blue", resumed.FinalContext["favColor"])
	require.Equal(t, "blue, nice", f.sender.Messages()[1].Text)
}

func TestResumeRejectedWhenNotWaiting(t *testing.T) {
	f := newFixture(t, Config{}, greetingFlow)
	result, err := f.engine.StartFlow(context.Background(), "greeting", model.Trigger{})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)

	_, err = f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{Type: model.EVENT_MESSAGE, Value: "hi"})
	var notWaiting flow.NotWaitingError
	require.ErrorAs(t, err, &notWaiting)

	state, err := f.storage.GetRunState(result.RunId)
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, state.Status)
}

const apiFlow = `{
	"id": "enrich", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "call", "type": "api", "config": {
			"method": "GET", "url": "https://api.example.test/contacts/{{contact.id}}",
			"responseVariable": "apiResult", "responsePath": "$.data", "timeout": 5}},
		{"id": "tier", "type": "message", "config": {"content": "tier {{apiResult.status}}"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "call"},
		{"id": "e2", "source": "call", "target": "tier"},
		{"id": "e3", "source": "tier", "target": "end"}
	]
}`

func TestApiNodeCapturesResponse(t *testing.T) {
	f := newFixture(t, Config{}, apiFlow)
	f.http.resp = &model.HttpCallResponse{StatusCode: 200, Body: `{"data":{"status":"vip"}}`}

	result, err := f.engine.StartFlow(context.Background(), "enrich", model.Trigger{ContactId: "c-42"})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)
	require.Equal(t, "https://api.example.test/contacts/c-42", f.http.last.Url)
	require.Equal(t, 5*time.Second, f.http.last.Timeout)
	require.Equal(t, "tier vip", f.sender.Messages()[0].Text)
}

func TestApiNodeFailures(t *testing.T) {
	for scenario, tc := range map[string]struct {
		prepare func(c *scriptedCaller)
		detail  string
	}{
		"transport error": {
			prepare: func(c *scriptedCaller) { c.err = errors.New("dial tcp: no such host") },
			detail:  "transport",
		},
		"timeout": {
			prepare: func(c *scriptedCaller) { c.err = context.DeadlineExceeded },
			detail:  "timeout",
		},
		"non 2xx status": {
			prepare: func(c *scriptedCaller) { c.resp = &model.HttpCallResponse{StatusCode: 500, Body: "boom"} },
			detail:  "status 500",
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			f := newFixture(t, Config{}, apiFlow)
			tc.prepare(f.http)
			result, err := f.engine.StartFlow(context.Background(), "enrich", model.Trigger{})
			require.NoError(t, err)
			require.Equal(t, model.RUN_STATUS_FAILED, result.Status)
			require.False(t, result.Success)
			require.Contains(t, result.Error, "APICallFailed")
			require.Contains(t, result.Error, tc.detail)
			require.Equal(t, []string{"start", "call"}, result.ExecutionPath)
			require.Equal(t, "error", result.Logs[len(result.Logs)-1].Outcome)
			require.Empty(t, f.sender.Messages())
		})
	}
}

const loopFlow = `{
	"id": "loop", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "ping", "type": "message", "config": {"content": "again"}},
		{"id": "hop", "type": "jump", "config": {"targetNodeId": "ping"}}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "ping"},
		{"id": "e2", "source": "ping", "target": "hop"}
	]
}`

func TestInfiniteLoopGuard(t *testing.T) {
	f := newFixture(t, Config{MaxNodeVisits: 25}, loopFlow)
	result, err := f.engine.StartFlow(context.Background(), "loop", model.Trigger{})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_FAILED, result.Status)
	require.Contains(t, result.Error, "InfiniteLoopSuspected")
	require.Len(t, result.ExecutionPath, 25)
}

const validatedInputFlow = `{
	"id": "agegate", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "ask", "type": "input", "config": {
			"variableName": "age", "prompt": "how old are you?",
			"validation": {"type": "number"}, "errorMessage": "numbers only"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "ask"},
		{"id": "e2", "source": "ask", "target": "end"}
	]
}`

func TestInputValidationRetriesAreBounded(t *testing.T) {
	f := newFixture(t, Config{}, validatedInputFlow)
	result, err := f.engine.StartFlow(context.Background(), "agegate", model.Trigger{ConversationId: "c1"})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_WAITING_INPUT, result.Status)

	runId := result.RunId
	for attempt := 1; attempt <= 2; attempt++ {
		resumed, err := f.engine.ResumeFlow(context.Background(), runId, model.Event{Type: model.EVENT_MESSAGE, Value: "abc"})
		require.NoError(t, err)
		require.Equal(t, model.RUN_STATUS_WAITING_INPUT, resumed.Status)
		state, err := f.storage.GetRunState(runId)
		require.NoError(t, err)
		require.Equal(t, attempt, state.InputAttempts)
	}
	// re-prompt error message sent per rejected attempt
	texts := f.sender.Messages()
	require.Equal(t, "numbers only", texts[len(texts)-1].Text)

	failed, err := f.engine.ResumeFlow(context.Background(), runId, model.Event{Type: model.EVENT_MESSAGE, Value: "xyz"})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_FAILED, failed.Status)
	require.Contains(t, failed.Error, "InputValidationFailed")
	require.Contains(t, failed.Error, "3 attempts")
}

func TestInputValidationRecoversBeforeBudget(t *testing.T) {
	f := newFixture(t, Config{}, validatedInputFlow)
	result, err := f.engine.StartFlow(context.Background(), "agegate", model.Trigger{})
	require.NoError(t, err)

	_, err = f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{Type: model.EVENT_MESSAGE, Value: "old"})
	require.NoError(t, err)

	resumed, err := f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{Type: model.EVENT_MESSAGE, Value: "42"})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, resumed.Status)
	require.Equal(t, "42", resumed.FinalContext["age"])

	state, err := f.storage.GetRunState(result.RunId)
	require.NoError(t, err)
	require.Equal(t, 0, state.InputAttempts)
}

const buttonFlow = `{
	"id": "confirm", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "pick", "type": "button", "config": {"prompt": "proceed?", "buttons": ["Yes", "No"]}},
		{"id": "doit", "type": "message", "config": {"content": "confirmed"}},
		{"id": "skip", "type": "message", "config": {"content": "declined"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "pick"},
		{"id": "e2", "source": "pick", "target": "doit", "sourceHandle": "0"},
		{"id": "e3", "source": "pick", "target": "skip", "sourceHandle": "1"},
		{"id": "e4", "source": "doit", "target": "end"},
		{"id": "e5", "source": "skip", "target": "end"}
	]
}`

func TestButtonSelection(t *testing.T) {
	for scenario, tc := range map[string]struct {
		reply string
		next  string
	}{
		"match by text":  {reply: "No", next: "skip"},
		"match by index": {reply: "0", next: "doit"},
	} {
		t.Run(scenario, func(t *testing.T) {
			f := newFixture(t, Config{}, buttonFlow)
			result, err := f.engine.StartFlow(context.Background(), "confirm", model.Trigger{ConversationId: "c1"})
			require.NoError(t, err)
			require.Equal(t, model.RUN_STATUS_WAITING_INPUT, result.Status)

			sent := f.sender.Messages()
			require.Len(t, sent, 1)
			require.Equal(t, model.MESSAGE_KIND_BUTTONS, sent[0].Kind)
			require.Equal(t, []string{"Yes", "No"}, sent[0].Buttons)

			resumed, err := f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{
				Type:  model.EVENT_BUTTON_REPLY,
				Value: tc.reply,
			})
			require.NoError(t, err)
			require.Equal(t, model.RUN_STATUS_COMPLETED, resumed.Status)
			require.Contains(t, resumed.ExecutionPath, tc.next)
		})
	}
}

func TestButtonUnrecognizedSelectionKeepsWaiting(t *testing.T) {
	f := newFixture(t, Config{}, buttonFlow)
	result, err := f.engine.StartFlow(context.Background(), "confirm", model.Trigger{})
	require.NoError(t, err)

	resumed, err := f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{
		Type:  model.EVENT_BUTTON_REPLY,
		Value: "Maybe",
	})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_WAITING_INPUT, resumed.Status)
}

func TestResumeRejectedWhileLocked(t *testing.T) {
	f := newFixture(t, Config{}, surveyFlow)
	result, err := f.engine.StartFlow(context.Background(), "survey", model.Trigger{})
	require.NoError(t, err)

	acquired, err := f.storage.Acquire(result.RunId, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	defer f.storage.Release(result.RunId)

	_, err = f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{Type: model.EVENT_MESSAGE, Value: "blue"})
	var locked flow.RunLockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, result.RunId, locked.RunId)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, Config{}, surveyFlow)
	result, err := f.engine.StartFlow(context.Background(), "survey", model.Trigger{})
	require.NoError(t, err)

	require.NoError(t, f.engine.Cancel(context.Background(), result.RunId))
	state, err := f.storage.GetRunState(result.RunId)
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_CANCELLED, state.Status)

	_, err = f.engine.ResumeFlow(context.Background(), result.RunId, model.Event{Type: model.EVENT_MESSAGE, Value: "blue"})
	var notWaiting flow.NotWaitingError
	require.ErrorAs(t, err, &notWaiting)

	err = f.engine.Cancel(context.Background(), result.RunId)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already terminal")
}

const previewFlow = `{
	"id": "preview", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "greet", "type": "message", "config": {"content": "Hi {{missing.name}}"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "greet"},
		{"id": "e2", "source": "greet", "target": "end"}
	]
}`

func TestTestModeRecordsInsteadOfSending(t *testing.T) {
	f := newFixture(t, Config{}, previewFlow)
	result, err := f.engine.StartFlow(context.Background(), "preview", model.Trigger{Test: true})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)

	// unresolved placeholders stay literal so the author can spot them
	require.Len(t, result.Messages, 1)
	require.Equal(t, "Hi {{missing.name}}", result.Messages[0].Text)
	// the real sender is bypassed entirely
	require.Empty(t, f.sender.Messages())
}

func TestProdModeBlanksUnresolvedPlaceholders(t *testing.T) {
	f := newFixture(t, Config{}, previewFlow)
	result, err := f.engine.StartFlow(context.Background(), "preview", model.Trigger{})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)
	require.Equal(t, "Hi ", f.sender.Messages()[0].Text)
	require.Empty(t, result.Messages)
}

const crmFlow = `{
	"id": "crm", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "assign", "type": "assignment", "config": {"assigneeId": "agent-7"}},
		{"id": "tag", "type": "tag", "config": {"tag": "lead"}},
		{"id": "untag", "type": "tag", "config": {"tag": "cold", "operation": "remove"}},
		{"id": "field", "type": "customField", "config": {"field": "tier", "value": "{{plan}}"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "assign"},
		{"id": "e2", "source": "assign", "target": "tag"},
		{"id": "e3", "source": "tag", "target": "untag"},
		{"id": "e4", "source": "untag", "target": "field"},
		{"id": "e5", "source": "field", "target": "end"}
	]
}`

func TestContactMutationNodes(t *testing.T) {
	f := newFixture(t, Config{}, crmFlow)
	result, err := f.engine.StartFlow(context.Background(), "crm", model.Trigger{
		ContactId: "c-9",
		Input:     map[string]any{"plan": "gold"},
	})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)

	require.Len(t, f.mutator.ops, 4)
	require.Equal(t, model.CONTACT_OP_ASSIGN, f.mutator.ops[0].Kind)
	require.Equal(t, "agent-7", f.mutator.ops[0].AssigneeId)
	require.Equal(t, model.CONTACT_OP_TAG, f.mutator.ops[1].Kind)
	require.Equal(t, "lead", f.mutator.ops[1].Tag)
	require.Equal(t, model.CONTACT_OP_UNTAG, f.mutator.ops[2].Kind)
	require.Equal(t, model.CONTACT_OP_SET_FIELD, f.mutator.ops[3].Kind)
	require.Equal(t, "gold", f.mutator.ops[3].Value)

	contact, ok := result.FinalContext["contact"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "gold", contact["tier"])
}

const scriptFlow = `{
	"id": "compute", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "calc", "type": "script", "config": {
			"source": "$.total = $.price * $.qty; $.total", "resultVariable": "grandTotal"}},
		{"id": "say", "type": "message", "config": {"content": "total {{grandTotal}}"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "calc"},
		{"id": "e2", "source": "calc", "target": "say"},
		{"id": "e3", "source": "say", "target": "end"}
	]
}`

func TestScriptNode(t *testing.T) {
	f := newFixture(t, Config{}, scriptFlow)
	result, err := f.engine.StartFlow(context.Background(), "compute", model.Trigger{
		Input: map[string]any{"price": 4, "qty": 5},
	})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)
	require.Equal(t, "total 20", f.sender.Messages()[0].Text)
	require.EqualValues(t, 20, result.FinalContext["total"])
}

const templateFlow = `{
	"id": "campaign", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "promo", "type": "template", "config": {
			"templateId": "summer_sale", "parameters": {"1": "{{contact.name}}", "2": "20%"}}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "promo"},
		{"id": "e2", "source": "promo", "target": "end"}
	]
}`

func TestTemplateNode(t *testing.T) {
	f := newFixture(t, Config{}, templateFlow)
	result, err := f.engine.StartFlow(context.Background(), "campaign", model.Trigger{
		ConversationId: "c1",
		Contact:        map[string]any{"name": "Ana"},
	})
	require.NoError(t, err)
	require.Equal(t, model.RUN_STATUS_COMPLETED, result.Status)

	sent := f.sender.Messages()
	require.Len(t, sent, 1)
	require.Equal(t, model.MESSAGE_KIND_TEMPLATE, sent[0].Kind)
	require.Equal(t, "summer_sale", sent[0].TemplateId)
	require.Equal(t, map[string]string{"1": "Ana", "2": "20%"}, sent[0].Parameters)
}

func TestStartFlowUnknownFlow(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.engine.StartFlow(context.Background(), "ghost", model.Trigger{})
	require.Error(t, err)
}

func TestSeededVariables(t *testing.T) {
	raw := `{
		"id": "seeded", "version": 3,
		"nodes": [
			{"id": "start", "type": "start"},
			{"id": "echo", "type": "message", "config": {"content": "{{conversation.id}} {{conversation.lastMessage}} {{flow.id}} {{campaign}}"}},
			{"id": "end", "type": "end"}
		],
		"edges": [
			{"id": "e1", "source": "start", "target": "echo"},
			{"id": "e2", "source": "echo", "target": "end"}
		]
	}`
	f := newFixture(t, Config{}, raw)
	_, err := f.engine.StartFlow(context.Background(), "seeded", model.Trigger{
		ConversationId: "c-77",
		Message:        "hello",
		Input:          map[string]any{"campaign": "summer"},
	})
	require.NoError(t, err)
	require.Equal(t, "c-77 hello seeded summer", f.sender.Messages()[0].Text)
}
