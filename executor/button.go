package executor

import (
	"context"
	"strconv"

	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
)

type buttonExecutor struct{}

// Execute presents the options and suspends. The selection event may
// carry a button index or its label text; either matches the branch
// whose sourceHandle names the corresponding button.
func (buttonExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	cfg := node.Config.(*model.ButtonConfig)
	ev := ec.Event
	if ev == nil || ev.Type == model.EVENT_DELAY_ELAPSED {
		buttons := make([]string, len(cfg.Buttons))
		for i, b := range cfg.Buttons {
			buttons[i] = ec.Resolver.Resolve(b, ec.Store)
		}
		if _, err := ec.Sender.Send(ctx, model.OutboundMessage{
			ConversationId: ec.Run.ConversationId,
			Kind:           model.MESSAGE_KIND_BUTTONS,
			Text:           ec.Resolver.Resolve(cfg.Prompt, ec.Store),
			Buttons:        buttons,
		}); err != nil {
			return Fail(flow.SendFailedError{NodeId: node.Id, Err: err})
		}
		return SuspendForInput("")
	}

	idx := selectedIndex(cfg.Buttons, ev.Value)
	if idx < 0 {
		// unrecognized selection, keep waiting for a valid one
		return SuspendForInput("")
	}
	label, ok := branchLabel(ec.Flow, node.Id, idx, cfg.Buttons[idx])
	if !ok {
		return Fail(flow.NoMatchingEdgeError{NodeId: node.Id, Label: cfg.Buttons[idx]})
	}
	return Advance(label).WithResolved(map[string]any{"selected": cfg.Buttons[idx]})
}

func selectedIndex(buttons []string, value string) int {
	for i, b := range buttons {
		if b == value {
			return i
		}
	}
	if idx, err := strconv.Atoi(value); err == nil && idx >= 0 && idx < len(buttons) {
		return idx
	}
	return -1
}

func branchLabel(fl *flow.Flow, nodeId string, idx int, text string) (string, bool) {
	if _, ok := fl.Next(nodeId, strconv.Itoa(idx)); ok {
		return strconv.Itoa(idx), true
	}
	if _, ok := fl.Next(nodeId, text); ok {
		return text, true
	}
	return "", false
}
