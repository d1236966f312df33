package executor

import (
	"context"
	"strconv"

	"github.com/waflow/waflow/condition"
	"github.com/waflow/waflow/model"
)

type conditionExecutor struct{}

func (conditionExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	cfg := node.Config.(*model.ConditionConfig)
	matched := condition.Evaluate(cfg.Rules, cfg.Logic, ec.Resolver, ec.Store)
	label := strconv.FormatBool(matched)
	return Advance(label).WithResolved(map[string]any{
		"logic":  string(cfg.Logic),
		"result": matched,
	})
}
