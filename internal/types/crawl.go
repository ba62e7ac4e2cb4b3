package types

// ExtractedFragment is a translatable text unit found in a parsed page.
type ExtractedFragment struct {
	Text string
	Kind ElementKind
}

// CrawlResult describes one successfully visited page. It is never persisted.
type CrawlResult struct {
	Path      string `json:"path"`
	Title     string `json:"title"`
	TextCount int    `json:"textCount"`
	Language  string `json:"language,omitempty"`
}

// CrawlReport is the outcome of one bounded crawl.
type CrawlReport struct {
	Domain  string        `json:"domain"`
	Pages   []CrawlResult `json:"pages"`
	Visited int           `json:"visited"`
	Failed  int           `json:"failed"`
}
