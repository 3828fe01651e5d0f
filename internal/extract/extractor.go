// Package extract parses fetched HTML into structured contact fields.
//
// The heuristics are intentionally approximate: no public-suffix awareness,
// no international phone-format validation beyond the digit-count and
// zip-code filters. Their exact behavior is a compatibility contract, so
// resist the urge to improve them.
package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	emailRE = regexp.MustCompile(`(?i)[a-zA-Z0-9.\-+_]+@[a-zA-Z0-9.\-+_]+\.[a-zA-Z]{2,}`)
	// Polish postal codes (DD-DDD) masquerade as phone fragments.
	zipCodeRE = regexp.MustCompile(`\b\d{2}-\d{3}\b`)
	// Nine digits in groups of three, optionally preceded by a country code.
	phoneRE = regexp.MustCompile(`(?:\+?\d{2}\s*)?(\d{3}[\s-]?\d{3}[\s-]?\d{3}|\d{9})`)

	digitJoiner = strings.NewReplacer(" ", "", "-", "")
)

// Contacts holds the extracted fields of one page. Multi-valued fields are
// ';'-joined strings, matching the spreadsheet columns.
type Contacts struct {
	Emails       string
	Phones       string
	Description  string
	ContactLinks string
}

// Extract parses the page and pulls contact details out of it. An empty or
// unparsable page yields all-empty fields; a single bad page never fails the
// pipeline.
func Extract(htmlContent, baseURL string) Contacts {
	if htmlContent == "" {
		return Contacts{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return Contacts{}
	}

	doc.Find("script, style").Remove()
	text := flattenText(doc)

	return Contacts{
		Emails:       joinSorted(emailRE.FindAllString(text, -1)),
		Phones:       joinSorted(findPhones(text)),
		Description:  description(doc),
		ContactLinks: strings.Join(contactLinks(doc, baseURL), ";"),
	}
}

// findPhones keeps nine-digit groups that do not fall into the postal-code
// pattern and clean to at least nine digits.
func findPhones(text string) []string {
	var phones []string
	for _, match := range phoneRE.FindAllStringSubmatch(text, -1) {
		num := match[1]
		clean := digitJoiner.Replace(num)
		if !zipCodeRE.MatchString(num) && len(clean) >= 9 {
			phones = append(phones, num)
		}
	}
	return phones
}

func description(doc *goquery.Document) string {
	desc := strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if desc == "" {
		desc = strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}
	return desc
}

// contactLinks returns every anchor that looks like a contact page, resolved
// against the page URL, in encounter order. Duplicates and mailto links are
// retained as-is.
func contactLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		lower := strings.ToLower(href)
		if !strings.Contains(lower, "kontakt") && !strings.Contains(lower, "contact") &&
			!strings.HasPrefix(lower, "mailto:") {
			return
		}
		resolved := href
		if base != nil {
			if abs, err := base.Parse(href); err == nil {
				resolved = abs.String()
			}
		}
		links = append(links, resolved)
	})
	return links
}

// flattenText joins the document's text nodes with single spaces, the same
// shape the regexes were tuned against.
func flattenText(doc *goquery.Document) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return ""
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	unique := make([]string, 0, len(set))
	for v := range set {
		unique = append(unique, v)
	}
	sort.Strings(unique)
	return strings.Join(unique, ";")
}
