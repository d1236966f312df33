package executor

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type inputExecutor struct{}

// Execute suspends until an inbound value arrives for the awaited
// variable. An invalid value re-prompts and re-suspends the same node;
// the retry budget bounds re-prompt loops.
func (inputExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	cfg := node.Config.(*model.InputConfig)
	ev := ec.Event
	if ev == nil || ev.Type == model.EVENT_DELAY_ELAPSED {
		if cfg.Prompt != "" {
			prompt := ec.Resolver.Resolve(cfg.Prompt, ec.Store)
			if _, err := ec.Sender.Send(ctx, model.OutboundMessage{
				ConversationId: ec.Run.ConversationId,
				Kind:           model.MESSAGE_KIND_TEXT,
				Text:           prompt,
			}); err != nil {
				return Fail(flow.SendFailedError{NodeId: node.Id, Err: err})
			}
		}
		return SuspendForInput(cfg.VariableName)
	}

	value := ev.Value
	if !validate(cfg.Validation, value) {
		ec.Run.InputAttempts++
		if ec.Run.InputAttempts >= ec.MaxInputAttempts {
			return Fail(flow.InputValidationError{Variable: cfg.VariableName, Attempts: ec.Run.InputAttempts})
		}
		if cfg.ErrorMessage != "" {
			errText := ec.Resolver.Resolve(cfg.ErrorMessage, ec.Store)
			if _, err := ec.Sender.Send(ctx, model.OutboundMessage{
				ConversationId: ec.Run.ConversationId,
				Kind:           model.MESSAGE_KIND_TEXT,
				Text:           errText,
			}); err != nil {
				return Fail(flow.SendFailedError{NodeId: node.Id, Err: err})
			}
		}
		return SuspendForInput(cfg.VariableName)
	}

	ec.Store.Set(cfg.VariableName, value)
	ec.Run.InputAttempts = 0
	return Advance("").WithResolved(map[string]any{cfg.VariableName: value})
}

func validate(v *model.InputValidation, value string) bool {
	if v == nil {
		return true
	}
	switch v.Type {
	case "number":
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return false
		}
	case "email":
		if !emailRe.MatchString(strings.TrimSpace(value)) {
			return false
		}
	}
	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return true
		}
		return re.MatchString(value)
	}
	return true
}
