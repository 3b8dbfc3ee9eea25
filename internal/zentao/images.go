package zentao

import (
	"regexp"
	"strings"
)

// Bug records embed screenshots either as HTML markup in rich-text fields or
// as bare URLs. Two independent matches feed an ordered, deduplicated set.
var (
	imgSrcPattern  = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)
	bareURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>)]+\.(?:png|jpe?g|gif|bmp|webp|svg)`)
)

// imageTextFields are the free-text bug fields scanned for embedded images.
var imageTextFields = []string{"steps", "title", "keywords", "comment", "mailto"}

// ExtractImageURLs scans the known free-text fields of a bug record for
// markup image sources and bare image URLs, in field order, deduplicated.
func ExtractImageURLs(record map[string]any) []string {
	if record == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var urls []string
	add := func(url string) {
		trimmed := strings.TrimSpace(url)
		if trimmed == "" {
			return
		}
		if _, ok := seen[trimmed]; ok {
			return
		}
		seen[trimmed] = struct{}{}
		urls = append(urls, trimmed)
	}

	for _, field := range imageTextFields {
		text, ok := record[field].(string)
		if !ok || text == "" {
			continue
		}
		for _, match := range imgSrcPattern.FindAllStringSubmatch(text, -1) {
			add(match[1])
		}
		for _, match := range bareURLPattern.FindAllString(text, -1) {
			add(match)
		}
	}
	return urls
}
