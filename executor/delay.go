package executor

import (
	"context"
	"time"

	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
)

type delayExecutor struct{}

// Execute suspends until resumeAt. The scheduler collaborator re-invokes
// the run with a delay_elapsed event, which advances past this node. A
// stray inbound event during the wait re-suspends with the original
// deadline so it can neither reset nor shorten the timer.
func (delayExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	if ev := ec.Event; ev != nil {
		if ev.Type == model.EVENT_DELAY_ELAPSED {
			return Advance("")
		}
		return SuspendForDelay(ec.Run.ResumeAt)
	}
	cfg := node.Config.(*model.DelayConfig)
	unitSeconds, _ := flow.DelayUnitSeconds(cfg.Unit)
	resumeAt := time.Now().Add(time.Duration(int64(cfg.Duration)*unitSeconds) * time.Second)
	return SuspendForDelay(resumeAt)
}
