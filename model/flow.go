package model

import (
	"fmt"

	"github.com/goccy/go-json"
)

type NodeType string

const NODE_TYPE_START NodeType = "start"
const NODE_TYPE_END NodeType = "end"
const NODE_TYPE_MESSAGE NodeType = "message"
const NODE_TYPE_TEMPLATE NodeType = "template"
const NODE_TYPE_CONDITION NodeType = "condition"
const NODE_TYPE_INPUT NodeType = "input"
const NODE_TYPE_BUTTON NodeType = "button"
const NODE_TYPE_DELAY NodeType = "delay"
const NODE_TYPE_API NodeType = "api"
const NODE_TYPE_WEBHOOK NodeType = "webhook"
const NODE_TYPE_JUMP NodeType = "jump"
const NODE_TYPE_ASSIGNMENT NodeType = "assignment"
const NODE_TYPE_TAG NodeType = "tag"
const NODE_TYPE_CUSTOM_FIELD NodeType = "customField"
const NODE_TYPE_SCRIPT NodeType = "script"

type Logic string

const LOGIC_AND Logic = "AND"
const LOGIC_OR Logic = "OR"

type Operator string

const OP_EQUALS Operator = "equals"
const OP_NOT_EQUALS Operator = "not_equals"
const OP_CONTAINS Operator = "contains"
const OP_NOT_CONTAINS Operator = "not_contains"
const OP_STARTS_WITH Operator = "starts_with"
const OP_ENDS_WITH Operator = "ends_with"
const OP_GREATER_THAN Operator = "greater_than"
const OP_LESS_THAN Operator = "less_than"
const OP_IS_EMPTY Operator = "is_empty"
const OP_IS_NOT_EMPTY Operator = "is_not_empty"

// FlowDefinition is the authored automation graph. It is immutable per
// version; the engine only reads it.
type FlowDefinition struct {
	Id      string `json:"id"`
	Version int    `json:"version"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

type Edge struct {
	Id           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

type Rule struct {
	Variable string   `json:"variable"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
}

// NodeConfig is the tagged union of per-type node configurations. The
// concrete variant is selected by Node.Type during unmarshalling.
type NodeConfig interface {
	nodeConfig()
}

type MessageConfig struct {
	Content string `json:"content"`
}

type TemplateConfig struct {
	TemplateId string            `json:"templateId"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type ConditionConfig struct {
	Logic Logic  `json:"logic"`
	Rules []Rule `json:"rules"`
}

type InputValidation struct {
	Type    string `json:"type,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

type InputConfig struct {
	VariableName string           `json:"variableName"`
	Prompt       string           `json:"prompt,omitempty"`
	Validation   *InputValidation `json:"validation,omitempty"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
}

type ButtonConfig struct {
	Prompt  string   `json:"prompt,omitempty"`
	Buttons []string `json:"buttons"`
}

type DelayConfig struct {
	Duration int    `json:"duration"`
	Unit     string `json:"unit"`
}

type APIConfig struct {
	Method           string            `json:"method"`
	Url              string            `json:"url"`
	Headers          map[string]string `json:"headers,omitempty"`
	Body             string            `json:"body,omitempty"`
	ResponseVariable string            `json:"responseVariable,omitempty"`
	ResponsePath     string            `json:"responsePath,omitempty"`
	TimeoutSeconds   int               `json:"timeout,omitempty"`
}

type JumpConfig struct {
	TargetNodeId string `json:"targetNodeId"`
}

type AssignmentConfig struct {
	AssigneeId string `json:"assigneeId"`
}

type TagConfig struct {
	Tag       string `json:"tag"`
	Operation string `json:"operation,omitempty"`
}

type CustomFieldConfig struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type ScriptConfig struct {
	Source         string `json:"source"`
	ResultVariable string `json:"resultVariable,omitempty"`
}

func (*MessageConfig) nodeConfig()     {}
func (*TemplateConfig) nodeConfig()    {}
func (*ConditionConfig) nodeConfig()   {}
func (*InputConfig) nodeConfig()       {}
func (*ButtonConfig) nodeConfig()      {}
func (*DelayConfig) nodeConfig()       {}
func (*APIConfig) nodeConfig()         {}
func (*JumpConfig) nodeConfig()        {}
func (*AssignmentConfig) nodeConfig()  {}
func (*TagConfig) nodeConfig()         {}
func (*CustomFieldConfig) nodeConfig() {}
func (*ScriptConfig) nodeConfig()      {}

type Node struct {
	Id     string     `json:"id"`
	Type   NodeType   `json:"type"`
	Config NodeConfig `json:"config,omitempty"`
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Id     string          `json:"id"`
		Type   NodeType        `json:"type"`
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Id = raw.Id
	n.Type = raw.Type
	if len(raw.Config) == 0 || string(raw.Config) == "null" {
		n.Config = nil
		return nil
	}
	cfg, err := decodeConfig(raw.Type, raw.Config)
	if err != nil {
		return err
	}
	n.Config = cfg
	return nil
}

func decodeConfig(nodeType NodeType, data []byte) (NodeConfig, error) {
	var cfg NodeConfig
	switch nodeType {
	case NODE_TYPE_START, NODE_TYPE_END:
		return nil, nil
	case NODE_TYPE_MESSAGE:
		cfg = &MessageConfig{}
	case NODE_TYPE_TEMPLATE:
		cfg = &TemplateConfig{}
	case NODE_TYPE_CONDITION:
		cfg = &ConditionConfig{}
	case NODE_TYPE_INPUT:
		cfg = &InputConfig{}
	case NODE_TYPE_BUTTON:
		cfg = &ButtonConfig{}
	case NODE_TYPE_DELAY:
		cfg = &DelayConfig{}
	case NODE_TYPE_API, NODE_TYPE_WEBHOOK:
		cfg = &APIConfig{}
	case NODE_TYPE_JUMP:
		cfg = &JumpConfig{}
	case NODE_TYPE_ASSIGNMENT:
		cfg = &AssignmentConfig{}
	case NODE_TYPE_TAG:
		cfg = &TagConfig{}
	case NODE_TYPE_CUSTOM_FIELD:
		cfg = &CustomFieldConfig{}
	case NODE_TYPE_SCRIPT:
		cfg = &ScriptConfig{}
	default:
		return nil, fmt.Errorf("unknown node type %s", nodeType)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
