// Package flow compiles an authored flow definition into the executable
// graph form: nodes keyed by id and an adjacency table keyed by
// (node id, branch label). Compilation validates the definition; a flow
// that compiles never dereferences a missing node at run time, except
// through the bounded-visit guard for cycles built with jump nodes.
package flow

import (
	"strconv"

	"github.com/waflow/waflow/model"
)

const DEFAULT_API_TIMEOUT_SECONDS = 30
const MAX_API_TIMEOUT_SECONDS = 300

var delayUnitSeconds = map[string]int64{
	"seconds": 1,
	"minutes": 60,
	"hours":   3600,
	"days":    86400,
}

func DelayUnitSeconds(unit string) (int64, bool) {
	v, ok := delayUnitSeconds[unit]
	return v, ok
}

type Flow struct {
	Id          string
	Version     int
	StartNodeId string
	Nodes       map[string]*model.Node

	// adjacency: node id -> branch label -> target node id. The single
	// unlabeled edge of a non-branching node is stored under "".
	adjacency map[string]map[string]string
}

// Next returns the target of the edge leaving nodeId with the given
// branch label.
func (f *Flow) Next(nodeId string, label string) (string, bool) {
	targets, ok := f.adjacency[nodeId]
	if !ok {
		return "", false
	}
	target, ok := targets[label]
	return target, ok
}

func (f *Flow) OutgoingLabels(nodeId string) []string {
	targets := f.adjacency[nodeId]
	labels := make([]string, 0, len(targets))
	for label := range targets {
		labels = append(labels, label)
	}
	return labels
}

func Compile(def *model.FlowDefinition) (*Flow, error) {
	if len(def.Nodes) == 0 {
		return nil, validationErrorf("flow %s has no nodes", def.Id)
	}
	nodes := make(map[string]*model.Node, len(def.Nodes))
	startId := ""
	for i := range def.Nodes {
		node := &def.Nodes[i]
		if node.Id == "" {
			return nil, validationErrorf("flow %s has a node without id", def.Id)
		}
		if _, ok := nodes[node.Id]; ok {
			return nil, validationErrorf("node id %s is duplicate", node.Id)
		}
		nodes[node.Id] = node
		if node.Type == model.NODE_TYPE_START {
			if startId != "" {
				return nil, validationErrorf("flow %s has more than one start node", def.Id)
			}
			startId = node.Id
		}
	}
	if startId == "" {
		return nil, validationErrorf("flow %s has no start node", def.Id)
	}

	adjacency := make(map[string]map[string]string)
	for _, edge := range def.Edges {
		if _, ok := nodes[edge.Source]; !ok {
			return nil, validationErrorf("edge %s references unknown source node %s", edge.Id, edge.Source)
		}
		if _, ok := nodes[edge.Target]; !ok {
			return nil, validationErrorf("edge %s references unknown target node %s", edge.Id, edge.Target)
		}
		targets, ok := adjacency[edge.Source]
		if !ok {
			targets = make(map[string]string)
			adjacency[edge.Source] = targets
		}
		if _, ok := targets[edge.SourceHandle]; ok {
			return nil, validationErrorf("node %s has duplicate outgoing edge for label %q", edge.Source, edge.SourceHandle)
		}
		targets[edge.SourceHandle] = edge.Target
	}

	fl := &Flow{
		Id:          def.Id,
		Version:     def.Version,
		StartNodeId: startId,
		Nodes:       nodes,
		adjacency:   adjacency,
	}
	for _, node := range nodes {
		if err := validateNode(fl, node); err != nil {
			return nil, err
		}
	}
	return fl, nil
}

func validateNode(fl *Flow, node *model.Node) error {
	outgoing := fl.adjacency[node.Id]
	switch node.Type {
	case model.NODE_TYPE_START:
		// entry point, single unlabeled edge
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_END:
		if len(outgoing) > 0 {
			return validationErrorf("end node %s must not have outgoing edges", node.Id)
		}
		return nil
	case model.NODE_TYPE_MESSAGE:
		cfg, ok := node.Config.(*model.MessageConfig)
		if !ok || cfg.Content == "" {
			return validationErrorf("message node %s requires content", node.Id)
		}
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_TEMPLATE:
		cfg, ok := node.Config.(*model.TemplateConfig)
		if !ok || cfg.TemplateId == "" {
			return validationErrorf("template node %s requires templateId", node.Id)
		}
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_CONDITION:
		cfg, ok := node.Config.(*model.ConditionConfig)
		if !ok {
			return validationErrorf("condition node %s requires config", node.Id)
		}
		for _, rule := range cfg.Rules {
			if err := validateRule(node.Id, rule); err != nil {
				return err
			}
		}
		for _, label := range []string{"true", "false"} {
			if _, ok := outgoing[label]; !ok {
				return validationErrorf("condition node %s has no edge for branch %q", node.Id, label)
			}
		}
		return nil
	case model.NODE_TYPE_INPUT:
		cfg, ok := node.Config.(*model.InputConfig)
		if !ok || cfg.VariableName == "" {
			return validationErrorf("input node %s requires variableName", node.Id)
		}
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_BUTTON:
		cfg, ok := node.Config.(*model.ButtonConfig)
		if !ok || len(cfg.Buttons) == 0 {
			return validationErrorf("button node %s requires at least one button", node.Id)
		}
		for i, text := range cfg.Buttons {
			_, byIndex := outgoing[strconv.Itoa(i)]
			_, byText := outgoing[text]
			if !byIndex && !byText {
				return validationErrorf("button node %s has no edge for button %q", node.Id, text)
			}
		}
		return nil
	case model.NODE_TYPE_DELAY:
		cfg, ok := node.Config.(*model.DelayConfig)
		if !ok || cfg.Duration <= 0 {
			return validationErrorf("delay node %s requires a positive duration", node.Id)
		}
		if _, ok := delayUnitSeconds[cfg.Unit]; !ok {
			return validationErrorf("delay node %s has unknown unit %q", node.Id, cfg.Unit)
		}
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_API, model.NODE_TYPE_WEBHOOK:
		cfg, ok := node.Config.(*model.APIConfig)
		if !ok || cfg.Url == "" || cfg.Method == "" {
			return validationErrorf("%s node %s requires method and url", node.Type, node.Id)
		}
		if cfg.TimeoutSeconds < 0 || cfg.TimeoutSeconds > MAX_API_TIMEOUT_SECONDS {
			return validationErrorf("%s node %s timeout must be between 1 and %d seconds when set, or 0 for the default %d",
				node.Type, node.Id, MAX_API_TIMEOUT_SECONDS, DEFAULT_API_TIMEOUT_SECONDS)
		}
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_JUMP:
		cfg, ok := node.Config.(*model.JumpConfig)
		if !ok || cfg.TargetNodeId == "" {
			return validationErrorf("jump node %s requires targetNodeId", node.Id)
		}
		if _, ok := fl.Nodes[cfg.TargetNodeId]; !ok {
			return validationErrorf("jump node %s targets unknown node %s", node.Id, cfg.TargetNodeId)
		}
		if len(outgoing) > 0 {
			return validationErrorf("jump node %s must not have outgoing edges", node.Id)
		}
		return nil
	case model.NODE_TYPE_ASSIGNMENT:
		cfg, ok := node.Config.(*model.AssignmentConfig)
		if !ok || cfg.AssigneeId == "" {
			return validationErrorf("assignment node %s requires assigneeId", node.Id)
		}
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_TAG:
		cfg, ok := node.Config.(*model.TagConfig)
		if !ok || cfg.Tag == "" {
			return validationErrorf("tag node %s requires tag", node.Id)
		}
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_CUSTOM_FIELD:
		cfg, ok := node.Config.(*model.CustomFieldConfig)
		if !ok || cfg.Field == "" {
			return validationErrorf("customField node %s requires field", node.Id)
		}
		return requireSingleEdge(node, outgoing)
	case model.NODE_TYPE_SCRIPT:
		cfg, ok := node.Config.(*model.ScriptConfig)
		if !ok || cfg.Source == "" {
			return validationErrorf("script node %s requires source", node.Id)
		}
		return requireSingleEdge(node, outgoing)
	}
	return validationErrorf("node %s has unknown type %s", node.Id, node.Type)
}

func validateRule(nodeId string, rule model.Rule) error {
	switch rule.Operator {
	case model.OP_IS_EMPTY, model.OP_IS_NOT_EMPTY:
		return nil
	case model.OP_EQUALS, model.OP_NOT_EQUALS, model.OP_CONTAINS, model.OP_NOT_CONTAINS,
		model.OP_STARTS_WITH, model.OP_ENDS_WITH, model.OP_GREATER_THAN, model.OP_LESS_THAN:
		if rule.Value == "" {
			return validationErrorf("condition node %s rule on %s requires a value", nodeId, rule.Variable)
		}
		return nil
	}
	return validationErrorf("condition node %s has unknown operator %s", nodeId, rule.Operator)
}

// requireSingleEdge enforces that a non-branching node has at most one
// outgoing edge and that it is unlabeled.
func requireSingleEdge(node *model.Node, outgoing map[string]string) error {
	if len(outgoing) == 0 {
		if node.Type == model.NODE_TYPE_START {
			return validationErrorf("start node %s has no outgoing edge", node.Id)
		}
		return nil
	}
	if len(outgoing) > 1 {
		return validationErrorf("node %s of type %s must have a single outgoing edge", node.Id, node.Type)
	}
	if _, ok := outgoing[""]; !ok {
		return validationErrorf("node %s of type %s must have an unlabeled outgoing edge", node.Id, node.Type)
	}
	return nil
}
