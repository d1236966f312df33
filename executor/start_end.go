package executor

import (
	"context"

	"github.com/waflow/waflow/model"
)

type startExecutor struct{}

func (startExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	return Advance("")
}

type endExecutor struct{}

func (endExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	return Complete()
}
