package executor

import (
	"context"

	"github.com/waflow/waflow/model"
)

type jumpExecutor struct{}

// Execute moves directly to the configured target, bypassing edge
// lookup. Cycles built this way are bounded by the engine's node-visit
// cap.
func (jumpExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	cfg := node.Config.(*model.JumpConfig)
	return Jump(cfg.TargetNodeId).WithResolved(map[string]any{"target": cfg.TargetNodeId})
}
