package rewriting

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// assetAttrs lists the URL-bearing attributes made absolute per element.
var assetAttrs = map[atom.Atom][]string{
	atom.Img:    {"src", "srcset"},
	atom.Script: {"src"},
	atom.Link:   {"href"},
	atom.Video:  {"src", "poster"},
	atom.Audio:  {"src"},
	atom.Source: {"src", "srcset"},
	atom.Track:  {"src"},
	atom.Iframe: {"src"},
	atom.Embed:  {"src"},
	atom.Input:  {"src"},
}

// ProxyURL builds the /view link that serves path of domain in lang.
func ProxyURL(proxyBase, domain, path, lang string) string {
	q := url.Values{}
	q.Set("path", path)
	if lang != "" {
		q.Set("lang", lang)
	}
	return strings.TrimRight(proxyBase, "/") + "/view/" + url.PathEscape(domain) + "?" + q.Encode()
}

func rewriteURLs(doc *html.Node, base *url.URL, opts Options) {
	stack := []*html.Node{doc}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.A, atom.Area:
				rewriteLink(n, base, opts)
			case atom.Base:
				// handled by ensureHead
			default:
				for _, key := range assetAttrs[n.DataAtom] {
					rewriteAsset(n, key, base)
				}
			}
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
}

func rewriteLink(n *html.Node, base *url.URL, opts Options) {
	href, ok := getAttr(n, "href")
	if !ok {
		return
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}

	ref, err := url.Parse(href)
	if err != nil {
		return
	}
	target := base.ResolveReference(ref)
	if target.Scheme != "http" && target.Scheme != "https" {
		return
	}
	if !strings.EqualFold(target.Hostname(), opts.Page.Hostname()) || isProxyLink(target, opts.ProxyBase) {
		return
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	proxied := ProxyURL(opts.ProxyBase, opts.Domain, path, opts.Language)
	if target.Fragment != "" {
		proxied += "#" + target.EscapedFragment()
	}
	setAttr(n, "href", proxied)
}

// isProxyLink reports whether target already points at this service's /view
// route. A site and the proxy can share a hostname on different ports.
func isProxyLink(target *url.URL, proxyBase string) bool {
	base, err := url.Parse(proxyBase)
	if err != nil {
		return false
	}
	prefix := strings.TrimRight(base.Path, "/") + "/view/"
	return strings.EqualFold(target.Host, base.Host) && strings.HasPrefix(target.Path, prefix)
}

func rewriteAsset(n *html.Node, key string, base *url.URL) {
	val, ok := getAttr(n, key)
	if !ok {
		return
	}
	if key == "srcset" {
		setAttr(n, key, absoluteSrcset(val, base))
		return
	}
	if abs, changed := absolute(val, base); changed {
		setAttr(n, key, abs)
	}
}

// absolute resolves a relative reference against base. Empty values,
// fragments, data: and other scheme URLs, and protocol-relative URLs are
// returned unchanged.
func absolute(raw string, base *url.URL) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "//") {
		return raw, false
	}
	ref, err := url.Parse(v)
	if err != nil || ref.Scheme != "" {
		return raw, false
	}
	return base.ResolveReference(ref).String(), true
}

// absoluteSrcset resolves each image candidate URL. Candidates are read the
// way browsers read them: the URL runs to the first whitespace, so commas
// inside data: URIs stay part of the URL, and descriptors run to the next
// comma outside parentheses.
func absoluteSrcset(srcset string, base *url.URL) string {
	var candidates []string
	rest := srcset
	for {
		rest = strings.TrimLeft(rest, srcsetSpace+",")
		if rest == "" {
			break
		}
		end := strings.IndexAny(rest, srcsetSpace)
		if end < 0 {
			end = len(rest)
		}
		u, descriptors := rest[:end], ""
		rest = rest[end:]

		if trimmed := strings.TrimRight(u, ","); trimmed != u {
			u = trimmed
		} else {
			depth, i := 0, 0
		scan:
			for ; i < len(rest); i++ {
				switch rest[i] {
				case '(':
					depth++
				case ')':
					if depth > 0 {
						depth--
					}
				case ',':
					if depth == 0 {
						break scan
					}
				}
			}
			descriptors = strings.Join(strings.Fields(rest[:i]), " ")
			rest = rest[i:]
		}

		if abs, changed := absolute(u, base); changed {
			u = abs
		}
		if descriptors != "" {
			u += " " + descriptors
		}
		candidates = append(candidates, u)
	}
	return strings.Join(candidates, ", ")
}

const srcsetSpace = " \t\n\r\f"
