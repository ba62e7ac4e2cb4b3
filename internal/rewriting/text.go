package rewriting

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/jonathan/sitetranslate/internal/types"
)

// IgnoredTags hold content that is never translated.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"code":     true,
	"pre":      true,
	"textarea": true,
	"noscript": true,
	"template": true,
}

type frame struct {
	node  *html.Node
	kinds map[types.ElementKind]bool
}

// ReplaceText walks text nodes without recursion and replaces every
// occurrence of each Original with its Translated text. A substitution only
// applies below an element of its Kind. Attributes are never touched.
// It returns the number of text nodes changed.
func ReplaceText(doc *html.Node, subs []Substitution) int {
	if doc == nil || len(subs) == 0 {
		return 0
	}

	changed := 0
	stack := []frame{{node: doc}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := top.node

		switch n.Type {
		case html.TextNode:
			if len(top.kinds) > 0 {
				if replaced, ok := substitute(n.Data, top.kinds, subs); ok {
					n.Data = replaced
					changed++
				}
			}
			continue
		case html.ElementNode:
			if IgnoredTags[strings.ToLower(n.Data)] {
				continue
			}
		}

		kinds := top.kinds
		if n.Type == html.ElementNode {
			if kind, ok := types.ParseElementKind(n.Data); ok && !kinds[kind] {
				next := make(map[types.ElementKind]bool, len(kinds)+1)
				for k := range kinds {
					next[k] = true
				}
				next[kind] = true
				kinds = next
			}
		}

		// Push in reverse so children are visited in document order.
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, frame{node: c, kinds: kinds})
		}
	}
	return changed
}

func substitute(text string, kinds map[types.ElementKind]bool, subs []Substitution) (string, bool) {
	out := text
	for _, s := range subs {
		if s.Original == "" || !kinds[s.Kind] {
			continue
		}
		if strings.Contains(out, s.Original) {
			out = strings.ReplaceAll(out, s.Original, s.Translated)
		}
	}
	return out, out != text
}
