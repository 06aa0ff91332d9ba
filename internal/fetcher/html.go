package fetcher

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors lists elements stripped before collapsing a page to text.
const noiseSelectors = "script, style, nav, footer, header, noscript"

// blockSelectors are the elements whose text becomes its own line when
// collapsing HTML to plain text, so paragraph structure survives for the
// extractor LLM instead of being mashed into one run-on line.
const blockSelectors = "p, li, h1, h2, h3, h4, h5, h6, pre, blockquote, td"

// ExtractHTMLText strips noise tags from the document and collapses what
// remains to newline-separated text.
func ExtractHTMLText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find(noiseSelectors).Remove()

	var lines []string
	doc.Find(blockSelectors).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			lines = append(lines, text)
		}
	})

	if len(lines) == 0 {
		body := doc.Find("body").First()
		if body.Length() == 0 {
			return strings.TrimSpace(doc.Text()), nil
		}
		return strings.TrimSpace(body.Text()), nil
	}

	return strings.Join(lines, "\n"), nil
}
