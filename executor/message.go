package executor

import (
	"context"

	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
)

type messageExecutor struct{}

func (messageExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	cfg := node.Config.(*model.MessageConfig)
	content := ec.Resolver.Resolve(cfg.Content, ec.Store)
	_, err := ec.Sender.Send(ctx, model.OutboundMessage{
		ConversationId: ec.Run.ConversationId,
		Kind:           model.MESSAGE_KIND_TEXT,
		Text:           content,
	})
	if err != nil {
		return Fail(flow.SendFailedError{NodeId: node.Id, Err: err})
	}
	return Advance("").WithResolved(map[string]any{"content": content})
}

type templateExecutor struct{}

func (templateExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	cfg := node.Config.(*model.TemplateConfig)
	params := ec.Resolver.ResolveStringMap(cfg.Parameters, ec.Store)
	_, err := ec.Sender.Send(ctx, model.OutboundMessage{
		ConversationId: ec.Run.ConversationId,
		Kind:           model.MESSAGE_KIND_TEMPLATE,
		TemplateId:     cfg.TemplateId,
		Parameters:     params,
	})
	if err != nil {
		return Fail(flow.SendFailedError{NodeId: node.Id, Err: err})
	}
	resolved := map[string]any{"templateId": cfg.TemplateId}
	for k, v := range params {
		resolved[k] = v
	}
	return Advance("").WithResolved(resolved)
}
