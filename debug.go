package stylecheck

import (
	"fmt"
	"strings"

	"github.com/speedata/css/scanner"
)

func indent(s string) string {
	ret := []string{}
	for _, line := range strings.Split(s, "\n") {
		ret = append(ret, "    "+line)
	}
	return strings.Join(ret, "\n")
}

func (b sBlock) String() string {
	ret := []string{}
	var firstline string
	if b.name != "" {
		firstline = fmt.Sprintf("@%s ", b.name)
	}
	if b.statement {
		return firstline + b.componentValues.String() + ";"
	}
	firstline = firstline + b.componentValues.String() + " {"
	ret = append(ret, firstline)
	for _, v := range b.rules {
		ret = append(ret, "    "+v.key.String()+": "+v.value.String()+";")
	}
	for _, v := range b.childAtRules {
		ret = append(ret, indent(v.String()))
	}
	for _, v := range b.blocks {
		ret = append(ret, indent(v.String()))
	}
	ret = append(ret, "}")
	return strings.Join(ret, "\n")
}

// String serializes the tokens back to CSS text. Runs of white space
// collapse to a single blank.
func (t tokenstream) String() string {
	var sb strings.Builder
	for _, tok := range t {
		switch tok.Type {
		case scanner.S:
			sb.WriteString(" ")
		case scanner.Hash:
			sb.WriteString("#" + strings.TrimPrefix(tok.Value, "#"))
		case scanner.AtKeyword:
			sb.WriteString("@" + strings.TrimPrefix(tok.Value, "@"))
		case scanner.Percentage:
			sb.WriteString(strings.TrimSuffix(tok.Value, "%") + "%")
		case scanner.Function:
			sb.WriteString(strings.TrimSuffix(tok.Value, "(") + "(")
		case scanner.String:
			if v := tok.Value; len(v) > 0 && (v[0] == '"' || v[0] == '\'') {
				sb.WriteString(v)
			} else {
				sb.WriteString(`"` + v + `"`)
			}
		case scanner.URI:
			if strings.HasPrefix(tok.Value, "url(") {
				sb.WriteString(tok.Value)
			} else {
				sb.WriteString("url(" + tok.Value + ")")
			}
		default:
			sb.WriteString(tok.Value)
		}
	}
	return sb.String()
}
