package core

import (
	"fmt"
	"strings"
	"unicode"
)

// Marker is a parsed PEP 508 environment marker. A nil *Marker means "no
// marker" and renders as the empty string.
type Marker struct {
	root markerNode
}

type markerNode interface {
	format() string
}

type markerValue struct {
	text     string
	variable bool
}

type markerCompare struct {
	left  markerValue
	op    string
	right markerValue
}

// markerGroup is a flattened run of "and" or "or" clauses.
type markerGroup struct {
	op    string
	items []markerNode
}

var markerVariables = map[string]string{
	"implementation_name":            "implementation_name",
	"implementation_version":         "implementation_version",
	"os_name":                        "os_name",
	"platform_machine":               "platform_machine",
	"platform_release":               "platform_release",
	"platform_system":                "platform_system",
	"platform_version":               "platform_version",
	"python_full_version":            "python_full_version",
	"platform_python_implementation": "platform_python_implementation",
	"python_version":                 "python_version",
	"sys_platform":                   "sys_platform",
	"extra":                          "extra",
	"os.name":                        "os_name",
	"sys.platform":                   "sys_platform",
	"platform.version":               "platform_version",
	"platform.machine":               "platform_machine",
	"platform.python_implementation": "platform_python_implementation",
	"python_implementation":          "platform_python_implementation",
}

var markerOps = []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"}

// ParseMarker parses marker text. Variable aliases are normalized and
// string literals are re-quoted, so equivalent markers render the same.
func ParseMarker(text string) (*Marker, error) {
	p := &markerParser{input: text}
	p.skipSpace()
	if p.done() {
		return nil, fmt.Errorf("empty marker")
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.done() {
		return nil, fmt.Errorf("unexpected %q in marker %q", p.input[p.pos:], text)
	}
	return &Marker{root: node}, nil
}

func (m *Marker) String() string {
	if m == nil || m.root == nil {
		return ""
	}
	return m.root.format()
}

// And joins two markers with "and"; either side may be nil.
func (m *Marker) And(other *Marker) *Marker {
	switch {
	case m == nil:
		return other
	case other == nil:
		return m
	}
	return &Marker{root: joinNodes("and", m.root, other.root)}
}

// Extras returns the extra names the marker selects and the marker left
// once those extra clauses are removed. It only recognizes extra clauses
// that are top-level conjuncts, or a top-level disjunction made purely of
// extra clauses. ok is false when the marker does not gate on an extra.
func (m *Marker) Extras() (names []string, rest *Marker, ok bool) {
	if m == nil {
		return nil, nil, false
	}
	if name, isExtra := extraName(m.root); isExtra {
		return []string{name}, nil, true
	}
	group, isGroup := m.root.(markerGroup)
	if !isGroup {
		return nil, m, false
	}
	if group.op == "or" {
		for _, item := range group.items {
			name, isExtra := extraName(item)
			if !isExtra {
				return nil, m, false
			}
			names = append(names, name)
		}
		return names, nil, true
	}
	var kept []markerNode
	for _, item := range group.items {
		if name, isExtra := extraName(item); isExtra {
			names = append(names, name)
			continue
		}
		if sub, isGroup := item.(markerGroup); isGroup && sub.op == "or" {
			if subNames, allExtras := orExtras(sub); allExtras {
				names = append(names, subNames...)
				continue
			}
		}
		kept = append(kept, item)
	}
	if len(names) == 0 {
		return nil, m, false
	}
	switch len(kept) {
	case 0:
		return names, nil, true
	case 1:
		return names, &Marker{root: kept[0]}, true
	}
	return names, &Marker{root: markerGroup{op: "and", items: kept}}, true
}

func orExtras(group markerGroup) ([]string, bool) {
	var names []string
	for _, item := range group.items {
		name, ok := extraName(item)
		if !ok {
			return nil, false
		}
		names = append(names, name)
	}
	return names, true
}

func extraName(node markerNode) (string, bool) {
	cmp, ok := node.(markerCompare)
	if !ok || cmp.op != "==" {
		return "", false
	}
	switch {
	case cmp.left.variable && cmp.left.text == "extra" && !cmp.right.variable:
		return cmp.right.text, true
	case cmp.right.variable && cmp.right.text == "extra" && !cmp.left.variable:
		return cmp.left.text, true
	}
	return "", false
}

func joinNodes(op string, nodes ...markerNode) markerNode {
	var items []markerNode
	for _, node := range nodes {
		if group, ok := node.(markerGroup); ok && group.op == op {
			items = append(items, group.items...)
			continue
		}
		items = append(items, node)
	}
	if len(items) == 1 {
		return items[0]
	}
	return markerGroup{op: op, items: items}
}

func (v markerValue) format() string {
	if v.variable {
		return v.text
	}
	if strings.Contains(v.text, `"`) {
		return "'" + v.text + "'"
	}
	return `"` + v.text + `"`
}

func (c markerCompare) format() string {
	return c.left.format() + " " + c.op + " " + c.right.format()
}

func (g markerGroup) format() string {
	parts := make([]string, 0, len(g.items))
	for _, item := range g.items {
		text := item.format()
		if sub, ok := item.(markerGroup); ok && sub.op != g.op {
			text = "(" + text + ")"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " "+g.op+" ")
}

type markerParser struct {
	input string
	pos   int
}

func (p *markerParser) done() bool {
	return p.pos >= len(p.input)
}

func (p *markerParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

// keyword consumes word when it appears as a whole word at the cursor.
func (p *markerParser) keyword(word string) bool {
	p.skipSpace()
	if !strings.HasPrefix(p.input[p.pos:], word) {
		return false
	}
	end := p.pos + len(word)
	if end < len(p.input) && isMarkerIdentRune(rune(p.input[end])) {
		return false
	}
	p.pos = end
	return true
}

func (p *markerParser) parseOr() (markerNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = joinNodes("or", left, right)
	}
	return left, nil
}

func (p *markerParser) parseAnd() (markerNode, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		left = joinNodes("and", left, right)
	}
	return left, nil
}

func (p *markerParser) parseExpr() (markerNode, error) {
	p.skipSpace()
	if !p.done() && p.input[p.pos] == '(' {
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.done() || p.input[p.pos] != ')' {
			return nil, fmt.Errorf("missing closing parenthesis in marker %q", p.input)
		}
		p.pos++
		return node, nil
	}
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if left.variable == right.variable && left.variable {
		return nil, fmt.Errorf("marker compares two variables in %q", p.input)
	}
	return markerCompare{left: left, op: op, right: right}, nil
}

func (p *markerParser) parseValue() (markerValue, error) {
	p.skipSpace()
	if p.done() {
		return markerValue{}, fmt.Errorf("unexpected end of marker %q", p.input)
	}
	quote := p.input[p.pos]
	if quote == '\'' || quote == '"' {
		end := strings.IndexByte(p.input[p.pos+1:], quote)
		if end < 0 {
			return markerValue{}, fmt.Errorf("unterminated string in marker %q", p.input)
		}
		text := p.input[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return markerValue{text: text}, nil
	}
	start := p.pos
	for p.pos < len(p.input) && (isMarkerIdentRune(rune(p.input[p.pos])) || p.input[p.pos] == '.') {
		p.pos++
	}
	name := p.input[start:p.pos]
	canonical, ok := markerVariables[name]
	if !ok {
		return markerValue{}, fmt.Errorf("unknown marker variable %q", name)
	}
	return markerValue{text: canonical, variable: true}, nil
}

func (p *markerParser) parseOp() (string, error) {
	p.skipSpace()
	rest := p.input[p.pos:]
	for _, op := range markerOps {
		if strings.HasPrefix(rest, op) {
			p.pos += len(op)
			return op, nil
		}
	}
	if p.keyword("in") {
		return "in", nil
	}
	if p.keyword("not") {
		if p.keyword("in") {
			return "not in", nil
		}
		return "", fmt.Errorf("expected 'in' after 'not' in marker %q", p.input)
	}
	return "", fmt.Errorf("expected marker operator at %q", rest)
}

func isMarkerIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
