package rewriting

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// effectiveBase is the URL relative references resolve against: the page's
// own <base href> if it has one, otherwise the page URL.
func effectiveBase(head *html.Node, page *url.URL) *url.URL {
	if b := findChild(head, atom.Base); b != nil {
		if href, ok := getAttr(b, "href"); ok && strings.TrimSpace(href) != "" {
			if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
				return page.ResolveReference(ref)
			}
		}
	}
	return page
}

// ensureHead adds the charset, viewport and base elements when missing.
// New elements go first in <head> so they precede any URL they affect.
func ensureHead(head *html.Node, base, page *url.URL) {
	if head == nil {
		return
	}

	var missing []*html.Node
	if !hasCharset(head) {
		missing = append(missing, element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	}
	if !hasMeta(head, "viewport") {
		missing = append(missing, element(atom.Meta,
			html.Attribute{Key: "name", Val: "viewport"},
			html.Attribute{Key: "content", Val: "width=device-width, initial-scale=1"},
		))
	}

	if b := findChild(head, atom.Base); b != nil {
		setAttr(b, "href", base.String())
	} else {
		origin := &url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/"}
		missing = append(missing, element(atom.Base, html.Attribute{Key: "href", Val: origin.String()}))
	}

	first := head.FirstChild
	for _, n := range missing {
		head.InsertBefore(n, first)
	}
}

func findChild(parent *html.Node, a atom.Atom) *html.Node {
	if parent == nil {
		return nil
	}
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
	}
	return nil
}

func hasCharset(head *html.Node) bool {
	for n := head.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode || n.DataAtom != atom.Meta {
			continue
		}
		if _, ok := getAttr(n, "charset"); ok {
			return true
		}
		if v, ok := getAttr(n, "http-equiv"); ok && strings.EqualFold(v, "content-type") {
			return true
		}
	}
	return false
}

func hasMeta(head *html.Node, name string) bool {
	for n := head.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode || n.DataAtom != atom.Meta {
			continue
		}
		if v, ok := getAttr(n, "name"); ok && strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// wrapBody moves all body children, in order, into a single root div.
// A body that is already wrapped is left alone.
func wrapBody(body *html.Node) {
	if body == nil || isWrapped(body) {
		return
	}

	wrapper := element(atom.Div, html.Attribute{Key: "id", Val: RootID})
	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		body.RemoveChild(c)
		wrapper.AppendChild(c)
		c = next
	}
	body.AppendChild(wrapper)
}

func isWrapped(body *html.Node) bool {
	var only *html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return false
			}
		case html.CommentNode:
		default:
			if only != nil {
				return false
			}
			only = c
		}
	}
	if only == nil || only.DataAtom != atom.Div {
		return false
	}
	id, _ := getAttr(only, "id")
	return id == RootID
}
