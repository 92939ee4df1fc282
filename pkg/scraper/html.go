package scraper

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "noscript": true, "svg": true, "iframe": true,
	"form": true, "template": true,
}

// paragraphSelectors are tried in order; the first one with matches wins.
var paragraphSelectors = []string{
	"article p",
	".entry-content p",
	".post-content p",
	"main p",
	"p",
}

// ExtractText converts HTML to plain text, one block element per line,
// removing navigation, footers and scripts.
func ExtractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var sb strings.Builder
	extractTextFromNode(doc, &sb)

	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = CollapseSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func extractTextFromNode(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		if skipTags[n.Data] {
			return
		}
		switch n.Data {
		case "br", "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "h5", "h6", "section", "article":
			sb.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextFromNode(c, sb)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n")
		}
	}
}

// StripMarkup removes tags and entities from an HTML fragment and collapses
// whitespace into single spaces.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseSpace(s)
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return CollapseSpace(s)
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return CollapseSpace(sb.String())
}

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Paragraphs returns up to max leading paragraphs that are at least minLen
// characters long, using the first selector in the content selector list
// that matches anything.
func Paragraphs(htmlContent string, max, minLen int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}

	for _, sel := range paragraphSelectors {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}
		var parts []string
		found.EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= max {
				return false
			}
			text := CollapseSpace(s.Text())
			if utf8.RuneCountInString(text) >= minLen {
				parts = append(parts, text)
			}
			return true
		})
		if len(parts) > 0 {
			return parts
		}
	}
	return nil
}

// LeadText returns the first three substantial paragraphs of an article page
// joined by spaces. Pages without usable paragraphs fall back to the first
// 500 characters of their visible text when there is enough of it.
func LeadText(htmlContent string) string {
	if parts := Paragraphs(htmlContent, 3, 30); len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	text := CollapseSpace(ExtractText(htmlContent))
	if utf8.RuneCountInString(text) > 100 {
		r := []rune(text)
		if len(r) > 500 {
			r = r[:500]
		}
		return string(r)
	}
	return ""
}

func extractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	return findTitle(doc)
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
