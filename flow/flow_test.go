package flow

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/waflow/waflow/model"
)

func parseDefinition(t *testing.T, raw string) *model.FlowDefinition {
	t.Helper()
	def := &model.FlowDefinition{}
	require.NoError(t, json.Unmarshal([]byte(raw), def))
	return def
}

const simpleFlow = `{
	"id": "welcome", "version": 1,
	"nodes": [
		{"id": "start", "type": "start"},
		{"id": "greet", "type": "message", "config": {"content": "Hi {{contact.name}}"}},
		{"id": "end", "type": "end"}
	],
	"edges": [
		{"id": "e1", "source": "start", "target": "greet"},
		{"id": "e2", "source": "greet", "target": "end"}
	]
}`

func TestCompileSimpleFlow(t *testing.T) {
	fl, err := Compile(parseDefinition(t, simpleFlow))
	require.NoError(t, err)
	require.Equal(t, "start", fl.StartNodeId)
	require.Len(t, fl.Nodes, 3)

	next, ok := fl.Next("start", "")
	require.True(t, ok)
	require.Equal(t, "greet", next)

	cfg, ok := fl.Nodes["greet"].Config.(*model.MessageConfig)
	require.True(t, ok)
	require.Equal(t, "Hi {{contact.name}}", cfg.Content)

	_, ok = fl.Next("end", "")
	require.False(t, ok)
}

func TestCompileRejectsInvalidFlows(t *testing.T) {
	for scenario, tc := range map[string]struct {
		raw     string
		message string
	}{
		"no nodes": {
			raw:     `{"id":"f","version":1,"nodes":[],"edges":[]}`,
			message: "has no nodes",
		},
		"no start node": {
			raw:     `{"id":"f","version":1,"nodes":[{"id":"a","type":"end"}],"edges":[]}`,
			message: "has no start node",
		},
		"two start nodes": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s1","type":"start"},{"id":"s2","type":"start"},{"id":"e","type":"end"}],
				"edges":[{"id":"e1","source":"s1","target":"e"},{"id":"e2","source":"s2","target":"e"}]}`,
			message: "more than one start node",
		},
		"duplicate node id": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},{"id":"s","type":"end"}],"edges":[]}`,
			message: "duplicate",
		},
		"dangling edge target": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},{"id":"e","type":"end"}],
				"edges":[{"id":"e1","source":"s","target":"ghost"}]}`,
			message: "unknown target node",
		},
		"start without outgoing edge": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},{"id":"e","type":"end"}],"edges":[]}`,
			message: "no outgoing edge",
		},
		"condition missing false branch": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"c","type":"condition","config":{"logic":"AND","rules":[{"variable":"{{age}}","operator":"greater_than","value":"18"}]}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"c"},
				{"id":"e2","source":"c","target":"e","sourceHandle":"true"}]}`,
			message: `no edge for branch "false"`,
		},
		"condition rule without value": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"c","type":"condition","config":{"logic":"AND","rules":[{"variable":"{{age}}","operator":"greater_than"}]}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"c"},
				{"id":"e2","source":"c","target":"e","sourceHandle":"true"},
				{"id":"e3","source":"c","target":"e","sourceHandle":"false"}]}`,
			message: "requires a value",
		},
		"button without edge per button": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"b","type":"button","config":{"prompt":"pick","buttons":["Yes","No"]}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"b"},
				{"id":"e2","source":"b","target":"e","sourceHandle":"0"}]}`,
			message: `no edge for button "No"`,
		},
		"message node has two edges": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"m","type":"message","config":{"content":"hi"}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"m"},
				{"id":"e2","source":"m","target":"e","sourceHandle":"a"},
				{"id":"e3","source":"m","target":"e","sourceHandle":"b"}]}`,
			message: "single outgoing edge",
		},
		"message without content": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"m","type":"message","config":{}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"m"},
				{"id":"e2","source":"m","target":"e"}]}`,
			message: "requires content",
		},
		"delay with unknown unit": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"d","type":"delay","config":{"duration":5,"unit":"fortnights"}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"d"},
				{"id":"e2","source":"d","target":"e"}]}`,
			message: "unknown unit",
		},
		"delay with zero duration": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"d","type":"delay","config":{"duration":0,"unit":"minutes"}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"d"},
				{"id":"e2","source":"d","target":"e"}]}`,
			message: "positive duration",
		},
		"api timeout above cap": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"a","type":"api","config":{"method":"GET","url":"https://x.test","timeout":301}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"a"},
				{"id":"e2","source":"a","target":"e"}]}`,
			message: "timeout must be between 1 and 300 seconds",
		},
		"api timeout negative": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"a","type":"api","config":{"method":"GET","url":"https://x.test","timeout":-1}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"a"},
				{"id":"e2","source":"a","target":"e"}]}`,
			message: "timeout must be between 1 and 300 seconds",
		},
		"jump to unknown node": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"j","type":"jump","config":{"targetNodeId":"ghost"}}],
				"edges":[{"id":"e1","source":"s","target":"j"}]}`,
			message: "targets unknown node",
		},
		"jump with outgoing edge": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"j","type":"jump","config":{"targetNodeId":"s"}},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"j"},
				{"id":"e2","source":"j","target":"e"}]}`,
			message: "must not have outgoing edges",
		},
		"end with outgoing edge": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"e"},
				{"id":"e2","source":"e","target":"s"}]}`,
			message: "must not have outgoing edges",
		},
		"duplicate branch label": {
			raw: `{"id":"f","version":1,"nodes":[
				{"id":"s","type":"start"},
				{"id":"e","type":"end"}],
				"edges":[
				{"id":"e1","source":"s","target":"e"},
				{"id":"e2","source":"s","target":"e"}]}`,
			message: "duplicate outgoing edge",
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			_, err := Compile(parseDefinition(t, tc.raw))
			require.Error(t, err)
			require.IsType(t, ValidationError{}, err)
			require.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestApiTimeoutZeroMeansDefault(t *testing.T) {
	raw := `{"id":"f","version":1,"nodes":[
		{"id":"s","type":"start"},
		{"id":"a","type":"api","config":{"method":"GET","url":"https://x.test"}},
		{"id":"e","type":"end"}],
		"edges":[
		{"id":"e1","source":"s","target":"a"},
		{"id":"e2","source":"a","target":"e"}]}`
	fl, err := Compile(parseDefinition(t, raw))
	require.NoError(t, err)
	cfg := fl.Nodes["a"].Config.(*model.APIConfig)
	require.Equal(t, 0, cfg.TimeoutSeconds)
}

func TestButtonEdgesMatchedByText(t *testing.T) {
	raw := `{"id":"f","version":1,"nodes":[
		{"id":"s","type":"start"},
		{"id":"b","type":"button","config":{"prompt":"pick","buttons":["Yes","No"]}},
		{"id":"y","type":"end"},
		{"id":"n","type":"end"}],
		"edges":[
		{"id":"e1","source":"s","target":"b"},
		{"id":"e2","source":"b","target":"y","sourceHandle":"Yes"},
		{"id":"e3","source":"b","target":"n","sourceHandle":"No"}]}`
	fl, err := Compile(parseDefinition(t, raw))
	require.NoError(t, err)
	next, ok := fl.Next("b", "Yes")
	require.True(t, ok)
	require.Equal(t, "y", next)
	require.ElementsMatch(t, []string{"Yes", "No"}, fl.OutgoingLabels("b"))
}

func TestUnknownNodeTypeFailsUnmarshal(t *testing.T) {
	raw := `{"id":"f","version":1,"nodes":[
		{"id":"s","type":"teleport","config":{"x":1}}],"edges":[]}`
	def := &model.FlowDefinition{}
	require.Error(t, json.Unmarshal([]byte(raw), def))
}

func TestDelayUnitSeconds(t *testing.T) {
	for unit, want := range map[string]int64{
		"seconds": 1, "minutes": 60, "hours": 3600, "days": 86400,
	} {
		got, ok := DelayUnitSeconds(unit)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := DelayUnitSeconds("weeks")
	require.False(t, ok)
}
