package executor

import (
	"context"

	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
)

// contactExecutor applies assignment, tag and custom-field mutations
// through the contact service collaborator.
type contactExecutor struct{}

func (contactExecutor) Execute(ctx context.Context, ec *Context, node *model.Node) Result {
	var op model.ContactOperation
	resolved := map[string]any{}

	switch cfg := node.Config.(type) {
	case *model.AssignmentConfig:
		op = model.ContactOperation{
			Kind:       model.CONTACT_OP_ASSIGN,
			AssigneeId: ec.Resolver.Resolve(cfg.AssigneeId, ec.Store),
		}
		resolved["assigneeId"] = op.AssigneeId
	case *model.TagConfig:
		kind := model.CONTACT_OP_TAG
		if cfg.Operation == "remove" {
			kind = model.CONTACT_OP_UNTAG
		}
		op = model.ContactOperation{
			Kind: kind,
			Tag:  ec.Resolver.Resolve(cfg.Tag, ec.Store),
		}
		resolved["tag"] = op.Tag
	case *model.CustomFieldConfig:
		op = model.ContactOperation{
			Kind:  model.CONTACT_OP_SET_FIELD,
			Field: cfg.Field,
			Value: ec.Resolver.Resolve(cfg.Value, ec.Store),
		}
		resolved["field"] = op.Field
		resolved["value"] = op.Value
	}

	if err := ec.Mutator.Mutate(ctx, ec.Run.ContactId, op); err != nil {
		return Fail(flow.MutationError{NodeId: node.Id, Err: err})
	}
	// keep the run's view of the contact in sync with the mutation
	if op.Kind == model.CONTACT_OP_SET_FIELD {
		ec.Store.Set("contact."+op.Field, op.Value)
	}
	return Advance("").WithResolved(resolved)
}
