package executor

import (
	"context"

	"github.com/dop251/goja"
	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
)

type scriptExecutor struct{}

// Execute runs the authored program with the variable snapshot bound as
// $. Mutations to $ are merged back into the store; the program's final
// expression value can additionally be captured into resultVariable.
func (scriptExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	cfg := node.Config.(*model.ScriptConfig)
	vm := goja.New()
	if err := vm.Set("$", ec.Store.Snapshot()); err != nil {
		return Fail(flow.ScriptFailedError{NodeId: node.Id, Err: err})
	}
	value, err := vm.RunString(cfg.Source)
	if err != nil {
		return Fail(flow.ScriptFailedError{NodeId: node.Id, Err: err})
	}
	if exported, ok := vm.Get("$").Export().(map[string]any); ok {
		ec.Store.Merge(exported)
	}
	resolved := map[string]any{}
	if cfg.ResultVariable != "" {
		result := value.Export()
		ec.Store.Set(cfg.ResultVariable, result)
		resolved[cfg.ResultVariable] = result
	}
	return Advance("").WithResolved(resolved)
}
