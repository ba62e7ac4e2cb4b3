// Package rewriting turns an upstream page into its translated, proxied form:
// text nodes get translations, internal links route back through /view, and
// relative asset references point at the original origin.
package rewriting

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jonathan/sitetranslate/internal/types"
)

// RootID is the id of the wrapper div placed around the original body content.
const RootID = "sitetranslate-root"

// Substitution replaces Original with Translated in text under a Kind element.
type Substitution struct {
	Original   string
	Translated string
	Kind       types.ElementKind
}

// SubstitutionsFrom keeps the translated fragments, in record order.
func SubstitutionsFrom(fragments []types.Fragment) []Substitution {
	subs := make([]Substitution, 0, len(fragments))
	for _, f := range fragments {
		if f.TranslatedText == nil {
			continue
		}
		original := strings.TrimSpace(f.OriginalText)
		if original == "" || original == *f.TranslatedText {
			continue
		}
		subs = append(subs, Substitution{Original: original, Translated: *f.TranslatedText, Kind: f.ElementKind})
	}
	return subs
}

// Options describe one rewrite.
type Options struct {
	// Page is the absolute upstream URL the HTML was fetched from.
	Page *url.URL
	// Domain is the site key used in proxy links.
	Domain string
	// ProxyBase is the absolute public URL of this service, e.g. http://localhost:8080.
	ProxyBase string
	// Language is the target language code.
	Language      string
	Substitutions []Substitution
}

func (o Options) validate() error {
	if o.Page == nil || o.Page.Host == "" || (o.Page.Scheme != "http" && o.Page.Scheme != "https") {
		return errors.New("page URL must be absolute http(s)")
	}
	if o.Domain == "" {
		return errors.New("domain is required")
	}
	base, err := url.Parse(o.ProxyBase)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("proxy base %q must be an absolute URL", o.ProxyBase)
	}
	return nil
}

// Rewrite parses document, applies the translated substitutions and URL
// rewrites, normalizes <head> and returns the rendered HTML. Applying Rewrite
// to its own output changes nothing further.
func Rewrite(document string, opts Options) (string, error) {
	if err := opts.validate(); err != nil {
		return "", fmt.Errorf("invalid rewrite options: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	root, head, body := skeleton(doc)
	resolveBase := effectiveBase(head, opts.Page)

	ReplaceText(doc, opts.Substitutions)
	rewriteURLs(doc, resolveBase, opts)
	ensureHead(head, resolveBase, opts.Page)
	if opts.Language != "" {
		setAttr(root, "lang", opts.Language)
	}
	wrapBody(body)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

// skeleton returns the html, head and body elements. html.Parse always
// creates all three.
func skeleton(doc *html.Node) (root, head, body *html.Node) {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && n.DataAtom == atom.Html {
			root = n
			break
		}
	}
	if root == nil {
		return nil, nil, nil
	}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.Head:
			head = n
		case atom.Body:
			body = n
		}
	}
	return root, head, body
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	if n == nil {
		return
	}
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}
