package service

import (
	"fmt"
	"strings"
)

// Links bundles the direct URL and the copy-paste embed snippets returned
// with every uploaded or listed image.
type Links struct {
	URL      string `json:"url"`
	BBCode   string `json:"bbcode"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// buildLinks derives all embed forms by plain concatenation of base URL
// and storage key. base is the user's custom blob base URL when they have
// configured one, otherwise the deployment default; empty alt falls back
// to the storage key so the HTML snippet always has an alt attribute.
func buildLinks(base, storageKey, alt string) Links {
	url := strings.TrimRight(base, "/") + "/" + storageKey
	if alt == "" {
		alt = storageKey
	}

	return Links{
		URL:      url,
		BBCode:   fmt.Sprintf("[img]%s[/img]", url),
		Markdown: fmt.Sprintf("![%s](%s)", alt, url),
		HTML:     fmt.Sprintf(`<img src="%s" alt="%s" />`, url, alt),
	}
}

// linkBase picks the base URL for a user: their custom one if set, else
// the configured default.
func linkBase(custom, fallback string) string {
	if custom != "" {
		return custom
	}
	return fallback
}
