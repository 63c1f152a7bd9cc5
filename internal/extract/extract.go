package extract

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// Result is one structured search result in document order. Immutable once
// produced.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Placeholders for fields the markup did not yield. A container is included
// only when both title and link resolved to real values; the snippet may stay
// a placeholder. This inclusion rule is a deliberate heuristic tied to the
// target site's current markup, so it stays here in one place.
const (
	NoTitle   = "No title"
	NoLink    = "No link"
	NoSnippet = "No description"
)

// snippetSelectors are the known snippet element shapes, tried in priority
// order. Class names track the target site's markup and rot over time;
// falling through to NoSnippet is expected, not an error.
var snippetSelectors = []string{
	"span.aCOpRe, span.st",
	"div.VwiC3b, div.yXK7lf",
}

// Results parses a result page and returns at most limit results, in document
// order. A malformed or empty body yields an empty slice, never an error;
// extraction degrades to "fewer results" by design of the caller's contract.
func Results(body []byte, limit int) []Result {
	if limit <= 0 {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var results []Result
	doc.Find("div.g").EachWithBreak(func(_ int, container *goquery.Selection) bool {
		title := NoTitle
		if heading := container.Find("h3").First(); heading.Length() > 0 {
			title = heading.Text()
		}

		link := NoLink
		if anchor := container.Find("a[href]").First(); anchor.Length() > 0 {
			if href, ok := anchor.Attr("href"); ok {
				link = href
			}
		}

		snippet := NoSnippet
		for _, sel := range snippetSelectors {
			if el := container.Find(sel).First(); el.Length() > 0 {
				snippet = el.Text()
				break
			}
		}

		if title != NoTitle && link != NoLink {
			results = append(results, Result{Title: title, Link: link, Snippet: snippet})
		}

		// Stop early once we have enough; later containers stay unexamined.
		return len(results) < limit
	})

	return results
}
