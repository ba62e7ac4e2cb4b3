package rewriting

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/sitetranslate/internal/types"
)

func testOptions(t *testing.T, page string, subs ...Substitution) Options {
	t.Helper()
	u, err := url.Parse(page)
	require.NoError(t, err)
	return Options{
		Page:          u,
		Domain:        u.Host,
		ProxyBase:     "http://proxy.local:8080",
		Language:      "es",
		Substitutions: subs,
	}
}

func rewrite(t *testing.T, doc string, opts Options) string {
	t.Helper()
	out, err := Rewrite(doc, opts)
	require.NoError(t, err)
	return out
}

func TestRewrite_ReplacesMatchedSubstringOnly(t *testing.T) {
	opts := testOptions(t, "https://example.com/", Substitution{Original: "Hello", Translated: "Hola", Kind: types.KindP})
	out := rewrite(t, `<p>Hello world</p>`, opts)
	assert.Contains(t, out, "<p>Hola world</p>")
}

func TestRewrite_ReplacesAllOccurrencesInTextNode(t *testing.T) {
	opts := testOptions(t, "https://example.com/", Substitution{Original: "Hi", Translated: "Hola", Kind: types.KindSpan})
	out := rewrite(t, `<span>Hi and Hi again</span>`, opts)
	assert.Contains(t, out, "<span>Hola and Hola again</span>")
}

func TestRewrite_AttributesUntouched(t *testing.T) {
	opts := testOptions(t, "https://example.com/", Substitution{Original: "Hello", Translated: "Hola", Kind: types.KindP})
	out := rewrite(t, `<p title="Hello" data-label="Hello">Hello</p><img alt="Hello" src="/a.png">`, opts)

	assert.Contains(t, out, `title="Hello"`)
	assert.Contains(t, out, `data-label="Hello"`)
	assert.Contains(t, out, `alt="Hello"`)
	assert.Contains(t, out, `>Hola</p>`)
}

func TestRewrite_ScriptAndStyleUntouched(t *testing.T) {
	opts := testOptions(t, "https://example.com/", Substitution{Original: "Hello", Translated: "Hola", Kind: types.KindP})
	doc := `<p>Hello<script>var s = "Hello";</script><style>.Hello{}</style></p>`
	out := rewrite(t, doc, opts)

	assert.Contains(t, out, `var s = "Hello";`)
	assert.Contains(t, out, `.Hello{}`)
	assert.Contains(t, out, `<p>Hola<script>`)
}

func TestRewrite_KindMustMatch(t *testing.T) {
	opts := testOptions(t, "https://example.com/", Substitution{Original: "Home", Translated: "Inicio", Kind: types.KindA})
	out := rewrite(t, `<div>Home</div><p>Home</p><a href="#top"><span>Home</span></a>`, opts)

	assert.Contains(t, out, "<div>Home</div>")
	assert.Contains(t, out, "<p>Home</p>")
	assert.Contains(t, out, "<span>Inicio</span>")
}

func TestRewrite_NoSubstitutionsLeavesText(t *testing.T) {
	out := rewrite(t, `<h1>Welcome</h1>`, testOptions(t, "https://example.com/"))
	assert.Contains(t, out, "<h1>Welcome</h1>")
}

func TestRewrite_EscapesTranslatedText(t *testing.T) {
	opts := testOptions(t, "https://example.com/", Substitution{Original: "Terms", Translated: "Términos <y> condiciones", Kind: types.KindA})
	out := rewrite(t, `<a href="#t">Terms</a>`, opts)
	assert.Contains(t, out, "Términos &lt;y&gt; condiciones")
}

func TestRewrite_InternalLinksGoThroughProxy(t *testing.T) {
	opts := testOptions(t, "https://example.com/blog/post")
	doc := `<a id="abs" href="/about">About</a>
<a id="rel" href="../contact?x=1#form">Contact</a>
<a id="full" href="https://EXAMPLE.com/pricing">Pricing</a>
<a id="ext" href="https://other.org/">Other</a>
<a id="mail" href="mailto:a@example.com">Mail</a>
<a id="frag" href="#top">Top</a>`
	out := rewrite(t, doc, opts)

	assert.Contains(t, out, `id="abs" href="http://proxy.local:8080/view/example.com?lang=es&amp;path=%2Fabout"`)
	assert.Contains(t, out, `id="rel" href="http://proxy.local:8080/view/example.com?lang=es&amp;path=%2Fcontact%3Fx%3D1#form"`)
	assert.Contains(t, out, `id="full" href="http://proxy.local:8080/view/example.com?lang=es&amp;path=%2Fpricing"`)
	assert.Contains(t, out, `id="ext" href="https://other.org/"`)
	assert.Contains(t, out, `id="mail" href="mailto:a@example.com"`)
	assert.Contains(t, out, `id="frag" href="#top"`)
}

func TestRewrite_AssetsBecomeAbsolute(t *testing.T) {
	opts := testOptions(t, "https://example.com/docs/page")
	doc := `<html><head>
<link rel="stylesheet" href="/css/site.css">
<script src="js/app.js"></script>
</head><body>
<img id="rel" src="img/logo.png" srcset="a.png 1x, /b.png 2x">
<img id="data" src="data:image/png;base64,AAAA">
<img id="lazy" srcset="data:image/gif;base64,R0lGODlhAQABAAAAACw= 1x">
<img id="mixed" srcset="data:image/gif;base64,AAAA 1x,hi.png 2x">
<img id="abs" src="https://cdn.example.net/x.png">
<img id="proto" src="//cdn.example.net/y.png">
<video src="/v.mp4" poster="poster.jpg"></video>
</body></html>`
	out := rewrite(t, doc, opts)

	assert.Contains(t, out, `href="https://example.com/css/site.css"`)
	assert.Contains(t, out, `src="https://example.com/docs/js/app.js"`)
	assert.Contains(t, out, `src="https://example.com/docs/img/logo.png"`)
	assert.Contains(t, out, `srcset="https://example.com/docs/a.png 1x, https://example.com/b.png 2x"`)
	assert.Contains(t, out, `src="data:image/png;base64,AAAA"`)
	assert.Contains(t, out, `id="lazy" srcset="data:image/gif;base64,R0lGODlhAQABAAAAACw= 1x"`)
	assert.Contains(t, out, `id="mixed" srcset="data:image/gif;base64,AAAA 1x, https://example.com/docs/hi.png 2x"`)
	assert.Contains(t, out, `src="https://cdn.example.net/x.png"`)
	assert.Contains(t, out, `src="//cdn.example.net/y.png"`)
	assert.Contains(t, out, `src="https://example.com/v.mp4"`)
	assert.Contains(t, out, `poster="https://example.com/docs/poster.jpg"`)
}

func TestRewrite_ExistingBaseIsHonoured(t *testing.T) {
	opts := testOptions(t, "https://example.com/docs/page")
	doc := `<html><head><base href="/static/"></head><body><img src="logo.png"></body></html>`
	out := rewrite(t, doc, opts)

	assert.Contains(t, out, `<base href="https://example.com/static/"/>`)
	assert.Contains(t, out, `src="https://example.com/static/logo.png"`)
	assert.Equal(t, 1, strings.Count(out, "<base"))
}

func TestRewrite_Idempotent(t *testing.T) {
	opts := testOptions(t, "https://example.com/docs/page",
		Substitution{Original: "Hello", Translated: "Hola", Kind: types.KindP})
	doc := `<!DOCTYPE html><html><head><title>T</title><link rel="stylesheet" href="a.css"></head>
<body><p>Hello</p><a href="/about">About</a><img src="i.png" srcset="s.png 2x"><video poster="p.jpg"></video></body></html>`

	once := rewrite(t, doc, opts)
	twice := rewrite(t, once, opts)
	assert.Equal(t, once, twice)
}

func TestRewrite_Idempotent_ProxySharesHostname(t *testing.T) {
	opts := testOptions(t, "http://localhost:3000/")
	opts.ProxyBase = "http://localhost:8080"
	doc := `<html><body><a href="/about">About</a></body></html>`

	once := rewrite(t, doc, opts)
	assert.Contains(t, once, `href="http://localhost:8080/view/localhost:3000?lang=es&amp;path=%2Fabout"`)

	twice := rewrite(t, once, opts)
	assert.Equal(t, once, twice)
}

func TestRewrite_HeadNormalized(t *testing.T) {
	out := rewrite(t, `<html><head><title>T</title></head><body><p>x</p></body></html>`, testOptions(t, "https://example.com/a/b"))

	head := out[strings.Index(out, "<head>"):strings.Index(out, "</head>")]
	assert.Contains(t, head, `<meta charset="utf-8"/>`)
	assert.Contains(t, head, `<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
	assert.Contains(t, head, `<base href="https://example.com/"/>`)
	assert.Less(t, strings.Index(head, "<base"), strings.Index(head, "<title>"))
	assert.Contains(t, out, `<html lang="es">`)
}

func TestRewrite_KeepsExistingMeta(t *testing.T) {
	doc := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=iso-8859-1"><meta name="Viewport" content="width=320"></head><body></body></html>`
	out := rewrite(t, doc, testOptions(t, "https://example.com/"))

	assert.NotContains(t, out, `charset="utf-8"`)
	assert.Contains(t, out, `content="width=320"`)
	assert.Equal(t, 1, strings.Count(strings.ToLower(out), `name="viewport"`))
}

func TestRewrite_BodyWrappedPreservingOrder(t *testing.T) {
	doc := `<html><head><style>.a{}</style><link rel="stylesheet" href="/one.css"></head>
<body><style>.b{}</style><h1>Title</h1><link rel="stylesheet" href="/two.css"><p>Text</p></body></html>`
	out := rewrite(t, doc, testOptions(t, "https://example.com/"))

	assert.Contains(t, out, `<body><div id="sitetranslate-root">`)
	order := []string{".a{}", "/one.css", ".b{}", "<h1>Title</h1>", "/two.css", "<p>Text</p>"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		require.GreaterOrEqual(t, idx, 0, marker)
		assert.Greater(t, idx, last, marker)
		last = idx
	}
	assert.Equal(t, 1, strings.Count(out, RootID))
}

func TestRewrite_MalformedMarkup(t *testing.T) {
	opts := testOptions(t, "https://example.com/", Substitution{Original: "Hello", Translated: "Hola", Kind: types.KindP})
	out := rewrite(t, `<p>Hello<div><p>Hello again<span>`, opts)
	assert.Equal(t, 2, strings.Count(out, "Hola"))
}

func TestRewrite_InvalidOptions(t *testing.T) {
	page, _ := url.Parse("https://example.com/")
	_, err := Rewrite("<p>x</p>", Options{Page: page, Domain: "example.com"})
	assert.Error(t, err)

	_, err = Rewrite("<p>x</p>", Options{Domain: "example.com", ProxyBase: "http://p"})
	assert.Error(t, err)

	_, err = Rewrite("<p>x</p>", Options{Page: page, ProxyBase: "http://p"})
	assert.Error(t, err)
}

func TestSubstitutionsFrom(t *testing.T) {
	hola := "Hola"
	same := "OK"
	fragments := []types.Fragment{
		{OriginalText: " Hello ", TranslatedText: &hola, ElementKind: types.KindP},
		{OriginalText: "Pending", ElementKind: types.KindP},
		{OriginalText: "OK", TranslatedText: &same, ElementKind: types.KindButton},
	}

	subs := SubstitutionsFrom(fragments)
	require.Len(t, subs, 1)
	assert.Equal(t, Substitution{Original: "Hello", Translated: "Hola", Kind: types.KindP}, subs[0])
}

func TestProxyURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/view/example.com?lang=fr&path=%2Fa%2Fb",
		ProxyURL("http://localhost:8080/", "example.com", "/a/b", "fr"))
	assert.Equal(t, "http://h/view/example.com:8443?path=%2F",
		ProxyURL("http://h", "example.com:8443", "/", ""))
}
