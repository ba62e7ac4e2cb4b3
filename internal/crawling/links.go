package crawling

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonPageExtensions lists path extensions that never lead to an HTML page.
var nonPageExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true, ".bmp": true,
	".zip": true, ".rar": true, ".gz": true, ".tar": true, ".tgz": true, ".7z": true,
	".exe": true, ".dmg": true, ".iso": true, ".apk": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true, ".wav": true,
	".css": true, ".js": true, ".mjs": true, ".json": true, ".xml": true, ".rss": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

// rejectedPrefixes are href prefixes that never name a crawlable page.
var rejectedPrefixes = []string{"mailto:", "tel:", "javascript:", "#"}

// DiscoverLinks returns the unique same-host paths linked from anchors in doc.
// Only hrefs starting with "/", "./" or "../" are considered; each is resolved
// against base and reduced to its path.
func DiscoverLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		p, ok := ResolvePath(href, base)
		if !ok || seen[p] {
			return
		}
		seen[p] = true
		links = append(links, p)
	})

	return links
}

// ResolvePath applies the link policy to a single href. It returns the
// normalized site path and true when href names an internal page.
func ResolvePath(href string, base *url.URL) (string, bool) {
	href = strings.TrimSpace(href)
	if !acceptHref(href) {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if !strings.EqualFold(resolved.Hostname(), base.Hostname()) {
		return "", false
	}

	p := resolved.Path
	if p == "" {
		p = "/"
	}
	if nonPageExtensions[strings.ToLower(path.Ext(p))] {
		return "", false
	}
	return p, true
}

func acceptHref(href string) bool {
	if href == "" {
		return false
	}
	lower := strings.ToLower(href)
	for _, prefix := range rejectedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	if strings.Contains(href, "@") || hasSchemePrefix(href) {
		return false
	}
	return strings.HasPrefix(href, "/") || strings.HasPrefix(href, "./") || strings.HasPrefix(href, "../")
}

// hasSchemePrefix reports whether a "word:" prefix appears before the first slash.
func hasSchemePrefix(href string) bool {
	head := href
	if i := strings.Index(href, "/"); i >= 0 {
		head = href[:i]
	}
	return strings.Contains(head, ":")
}

// NormalizePath makes p site-relative, starting with "/".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if u, err := url.Parse(p); err == nil && (u.Scheme != "" || u.Host != "") {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
