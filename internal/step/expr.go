package step

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is a restricted predicate over a media item's document form.
// The grammar is a conjunction of comparisons:
//
//	metadata.filename contains ".mp4" && is_video == true
//	metadata.width > 1080
//	metadata.poster_url exists
//
// Operands on the left are dot paths into the item; operands on the right
// are quoted strings, numbers, or booleans. Only the allow-listed
// operators below are available; stored expressions are never evaluated
// as code.
type Expression struct {
	source  string
	clauses []clause
}

type clause struct {
	path []string
	op   string
	arg  any
}

var allowedOps = map[string]struct{}{
	"==":       {},
	"!=":       {},
	">":        {},
	">=":       {},
	"<":        {},
	"<=":       {},
	"contains": {},
	"exists":   {},
}

// ParseExpression compiles a filter expression, rejecting anything outside
// the restricted grammar.
func ParseExpression(source string) (*Expression, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, fmt.Errorf("expression is empty")
	}

	expr := &Expression{source: source}
	for _, part := range strings.Split(trimmed, "&&") {
		tokens, err := tokenize(part)
		if err != nil {
			return nil, err
		}
		c, err := parseClause(tokens)
		if err != nil {
			return nil, err
		}
		expr.clauses = append(expr.clauses, c)
	}
	return expr, nil
}

// Source returns the original expression text.
func (e *Expression) Source() string {
	return e.source
}

// Match evaluates the expression against an item document. All clauses
// must hold.
func (e *Expression) Match(doc map[string]any) bool {
	for _, c := range e.clauses {
		if !c.eval(doc) {
			return false
		}
	}
	return true
}

type token struct {
	text   string
	quoted bool
}

func tokenize(part string) ([]token, error) {
	var tokens []token
	rest := strings.TrimSpace(part)
	for rest != "" {
		if rest[0] == '"' {
			end := 1
			for end < len(rest) {
				if rest[end] == '\\' {
					end += 2
					continue
				}
				if rest[end] == '"' {
					break
				}
				end++
			}
			if end >= len(rest) {
				return nil, fmt.Errorf("unterminated string in expression clause %q", part)
			}
			unquoted, err := strconv.Unquote(rest[:end+1])
			if err != nil {
				return nil, fmt.Errorf("bad string literal in clause %q: %w", part, err)
			}
			tokens = append(tokens, token{text: unquoted, quoted: true})
			rest = strings.TrimSpace(rest[end+1:])
			continue
		}
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			tokens = append(tokens, token{text: rest})
			break
		}
		tokens = append(tokens, token{text: rest[:idx]})
		rest = strings.TrimSpace(rest[idx:])
	}
	return tokens, nil
}

func parseClause(tokens []token) (clause, error) {
	if len(tokens) < 2 {
		return clause{}, fmt.Errorf("expression clause needs a path and an operator")
	}
	if tokens[0].quoted {
		return clause{}, fmt.Errorf("expression clause must start with a field path")
	}
	path := strings.Split(tokens[0].text, ".")

	op := tokens[1].text
	if _, ok := allowedOps[op]; !ok || tokens[1].quoted {
		return clause{}, fmt.Errorf("operator %q is not allowed", tokens[1].text)
	}

	if op == "exists" {
		if len(tokens) != 2 {
			return clause{}, fmt.Errorf("exists takes no operand")
		}
		return clause{path: path, op: op}, nil
	}

	if len(tokens) != 3 {
		return clause{}, fmt.Errorf("operator %q needs exactly one operand", op)
	}
	return clause{path: path, op: op, arg: parseLiteral(tokens[2])}, nil
}

func parseLiteral(t token) any {
	if t.quoted {
		return t.text
	}
	switch t.text {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(t.text, 64); err == nil {
		return n
	}
	return t.text
}

func (c clause) eval(doc map[string]any) bool {
	value, ok := lookupPath(doc, c.path)
	if c.op == "exists" {
		return ok
	}
	if !ok {
		return false
	}

	switch c.op {
	case "==":
		return equals(value, c.arg)
	case "!=":
		return !equals(value, c.arg)
	case "contains":
		s, sok := value.(string)
		arg, aok := c.arg.(string)
		return sok && aok && strings.Contains(s, arg)
	case ">", ">=", "<", "<=":
		left, lok := asNumber(value)
		right, rok := asNumber(c.arg)
		if !lok || !rok {
			return false
		}
		switch c.op {
		case ">":
			return left > right
		case ">=":
			return left >= right
		case "<":
			return left < right
		default:
			return left <= right
		}
	}
	return false
}

func lookupPath(doc map[string]any, path []string) (any, bool) {
	var current any = doc
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func equals(value, arg any) bool {
	if left, lok := asNumber(value); lok {
		if right, rok := asNumber(arg); rok {
			return left == right
		}
	}
	return fmt.Sprint(value) == fmt.Sprint(arg)
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
