package build

import (
	"regexp"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeCSS reparses compiled CSS and prints it back, either in the
// parser's expanded form or compressed.
func normalizeCSS(src string, compress bool) (string, error) {
	sheet, err := parser.Parse(src)
	if err != nil {
		return "", err
	}

	if compress {
		var b strings.Builder
		writeCompressed(&b, sheet.Rules)
		return b.String(), nil
	}

	out := sheet.String()
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

func writeCompressed(b *strings.Builder, rules []*css.Rule) {
	for _, rule := range rules {
		if rule.Kind == css.QualifiedRule {
			b.WriteString(strings.Join(rule.Selectors, ","))
		} else {
			b.WriteString(rule.Name)
			if rule.Prelude != "" {
				b.WriteString(" " + collapse(rule.Prelude))
			}
		}

		if len(rule.Declarations) == 0 && len(rule.Rules) == 0 {
			if rule.Kind == css.AtRule {
				b.WriteString(";")
			} else {
				b.WriteString("{}")
			}
			continue
		}

		b.WriteString("{")
		if rule.EmbedsRules() {
			writeCompressed(b, rule.Rules)
		} else {
			for i, decl := range rule.Declarations {
				if i > 0 {
					b.WriteString(";")
				}
				b.WriteString(decl.Property + ":" + collapse(decl.Value))
				if decl.Important {
					b.WriteString("!important")
				}
			}
		}
		b.WriteString("}")
	}
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// minifyScript collapses whitespace runs to single spaces.
func minifyScript(src string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(src, " "))
}
