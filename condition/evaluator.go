// Package condition evaluates authored rule sets against the run's
// variable store.
package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/template"
	"github.com/waflow/waflow/variables"
)

// Evaluate combines the rule results under the given logic. An empty
// rule list is vacuously true under AND and false under OR: OR needs at
// least one true disjunct.
func Evaluate(rules []model.Rule, logic model.Logic, resolver *template.Resolver, store *variables.Store) bool {
	if len(rules) == 0 {
		return logic != model.LOGIC_OR
	}
	for _, rule := range rules {
		matched := evaluateRule(rule, resolver, store)
		if logic == model.LOGIC_OR && matched {
			return true
		}
		if logic != model.LOGIC_OR && !matched {
			return false
		}
	}
	return logic != model.LOGIC_OR
}

func evaluateRule(rule model.Rule, resolver *template.Resolver, store *variables.Store) bool {
	left, found := operand(rule.Variable, resolver, store)
	right := resolver.Resolve(rule.Value, store)

	switch rule.Operator {
	case model.OP_IS_EMPTY:
		return !found || strings.TrimSpace(left) == ""
	case model.OP_IS_NOT_EMPTY:
		return found && strings.TrimSpace(left) != ""
	case model.OP_EQUALS:
		return left == right
	case model.OP_NOT_EQUALS:
		return left != right
	case model.OP_CONTAINS:
		return strings.Contains(left, right)
	case model.OP_NOT_CONTAINS:
		return !strings.Contains(left, right)
	case model.OP_STARTS_WITH:
		return strings.HasPrefix(left, right)
	case model.OP_ENDS_WITH:
		return strings.HasSuffix(left, right)
	case model.OP_GREATER_THAN:
		l, r, ok := numericOperands(left, right)
		return ok && l > r
	case model.OP_LESS_THAN:
		l, r, ok := numericOperands(left, right)
		return ok && l < r
	}
	return false
}

// operand resolves the rule variable: a {{name}} reference, a $-rooted
// jsonpath or a bare store name.
func operand(variable string, resolver *template.Resolver, store *variables.Store) (string, bool) {
	name := strings.TrimSpace(variable)
	if strings.HasPrefix(name, "{{") && strings.HasSuffix(name, "}}") {
		name = strings.TrimSpace(name[2 : len(name)-2])
	}
	value, ok := resolver.Lookup(name, store)
	if !ok || value == nil {
		return "", false
	}
	return fmt.Sprintf("%v", value), true
}

// numericOperands parses both sides as float64. A non-numeric operand
// fails the rule instead of erroring.
func numericOperands(left string, right string) (float64, float64, bool) {
	l, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return 0, 0, false
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return 0, 0, false
	}
	return l, r, true
}
