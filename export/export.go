// Package export renders a reviewed proposal as a standalone HTML document with
// every advice item attached as a numbered comment next to its extract.
package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"grant_proposal_advisor/advisor"
)

// Section is one answered question together with its current advice.
type Section struct {
	ID       advisor.ParagraphID
	Question string
	Text     string
	Advice   []advisor.AdviceItem
}

// Document is the unit handed to an Annotator.
type Document struct {
	Title          string
	ProjectContext string
	Sections       []Section
}

// Annotator writes a Document with its advice attached as comments.
type Annotator interface {
	Annotate(w io.Writer, doc Document) error
}

// Source is the read side of an advisor session.
type Source interface {
	ProjectContext() string
	Paragraphs() map[advisor.ParagraphID]string
	Advice(id advisor.ParagraphID) ([]advisor.AdviceItem, error)
}

// Collect snapshots every paragraph of src in paragraph ID order. Question
// text is filled in when questions knows the ID.
func Collect(title string, src Source, questions advisor.QuestionLookup) (Document, error) {
	paragraphs := src.Paragraphs()
	ids := make([]advisor.ParagraphID, 0, len(paragraphs))
	for id := range paragraphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	doc := Document{Title: title, ProjectContext: src.ProjectContext()}
	for _, id := range ids {
		items, err := src.Advice(id)
		if err != nil {
			return Document{}, err
		}
		s := Section{ID: id, Text: paragraphs[id], Advice: items}
		if questions != nil {
			if q, err := questions.Lookup(id); err == nil {
				s.Question = q.Question
			}
		}
		doc.Sections = append(doc.Sections, s)
	}
	return doc, nil
}

// HTMLAnnotator renders paragraphs as markdown and highlights each extract
// with a <mark> linked to its comment. Advice whose extract cannot be located
// in the text is listed as a general comment under the section.
type HTMLAnnotator struct {
	md goldmark.Markdown
}

func NewHTMLAnnotator() *HTMLAnnotator {
	return &HTMLAnnotator{md: goldmark.New(goldmark.WithExtensions(extension.Strikethrough))}
}

// Private-use runes bracket extracts while the markdown is converted; they
// pass through goldmark untouched and are swapped for tags afterwards.
const (
	openMark  = '\uE000'
	closeMark = '\uE001'
	endMark   = '\uE002'
)

var markerRe = regexp.MustCompile(`\x{E000}([0-9]+)\x{E001}|\x{E002}([0-9]+)\x{E001}`)

const pageStyle = `body{font-family:Georgia,serif;max-width:46em;margin:2em auto;line-height:1.5}
mark.extract{background:#fff3b0}
sup.ref a{text-decoration:none}
ol.comments{font-size:.9em;color:#333}
.unanchored{font-size:.9em;border-left:3px solid #ccc;padding-left:1em}`

func (a *HTMLAnnotator) Annotate(w io.Writer, doc Document) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n<style>\n%s\n</style>\n</head>\n<body>\n", html.EscapeString(doc.Title), pageStyle)
	if doc.Title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(doc.Title))
	}
	if doc.ProjectContext != "" {
		fmt.Fprintf(&b, "<p class=\"project\">%s</p>\n", html.EscapeString(doc.ProjectContext))
	}

	n := 0
	for _, s := range doc.Sections {
		if err := a.writeSection(&b, s, &n); err != nil {
			return fmt.Errorf("export section %q: %w", s.ID, err)
		}
	}
	b.WriteString("</body>\n</html>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (a *HTMLAnnotator) writeSection(b *strings.Builder, s Section, n *int) error {
	heading := s.Question
	if heading == "" {
		heading = s.ID
	}
	fmt.Fprintf(b, "<section id=\"%s\">\n<h2>%s</h2>\n", html.EscapeString(s.ID), html.EscapeString(heading))

	anchored, unanchored := placeExtracts(s.Text, s.Advice)
	numbers := make(map[int]int, len(s.Advice))
	for i := range s.Advice {
		*n++
		numbers[i] = *n
	}

	marked := markText(stripMarkers(s.Text), anchored, numbers)
	body, err := a.toHTML(marked)
	if err != nil {
		return err
	}
	body = markerRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := markerRe.FindStringSubmatch(m)
		if sub[1] != "" {
			return fmt.Sprintf(`<mark class="extract" id="extract-%s">`, sub[1])
		}
		return fmt.Sprintf(`</mark><sup class="ref"><a href="#comment-%s">%s</a></sup>`, sub[2], sub[2])
	})
	fmt.Fprintf(b, "<div class=\"answer\">\n%s</div>\n", body)

	var listed []int
	for i := range s.Advice {
		if _, ok := unanchored[i]; !ok {
			listed = append(listed, i)
		}
	}
	if len(listed) > 0 {
		b.WriteString("<ol class=\"comments\">\n")
		for _, i := range listed {
			item := s.Advice[i]
			fmt.Fprintf(b, "<li value=\"%d\" id=\"comment-%d\"><a href=\"#extract-%d\">&ldquo;%s&rdquo;</a> %s</li>\n",
				numbers[i], numbers[i], numbers[i], html.EscapeString(item.Extract), html.EscapeString(item.Advice))
		}
		b.WriteString("</ol>\n")
	}
	if len(unanchored) > 0 {
		b.WriteString("<div class=\"unanchored\">\n<h3>General comments</h3>\n<ul>\n")
		for i := range s.Advice {
			if _, ok := unanchored[i]; !ok {
				continue
			}
			item := s.Advice[i]
			fmt.Fprintf(b, "<li id=\"comment-%d\">", numbers[i])
			if item.Extract != "" {
				fmt.Fprintf(b, "&ldquo;%s&rdquo; ", html.EscapeString(item.Extract))
			}
			fmt.Fprintf(b, "%s</li>\n", html.EscapeString(item.Advice))
		}
		b.WriteString("</ul>\n</div>\n")
	}
	b.WriteString("</section>\n")
	return nil
}

func (a *HTMLAnnotator) toHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := a.md.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type placement struct {
	item       int
	start, end int
}

// placeExtracts locates the first occurrence of each extract. Blank extracts,
// extracts missing from the text and extracts overlapping an earlier
// placement are reported as unanchored.
func placeExtracts(text string, items []advisor.AdviceItem) ([]placement, map[int]struct{}) {
	text = stripMarkers(text)
	var placed []placement
	unanchored := make(map[int]struct{})
	for i, item := range items {
		extract := stripMarkers(strings.TrimSpace(item.Extract))
		start := -1
		if extract != "" {
			start = strings.Index(text, extract)
		}
		if start < 0 {
			unanchored[i] = struct{}{}
			continue
		}
		p := placement{item: i, start: start, end: start + len(extract)}
		if overlaps(placed, p) {
			unanchored[i] = struct{}{}
			continue
		}
		placed = append(placed, p)
	}
	sort.Slice(placed, func(i, j int) bool { return placed[i].start < placed[j].start })
	return placed, unanchored
}

func overlaps(placed []placement, p placement) bool {
	for _, q := range placed {
		if p.start < q.end && q.start < p.end {
			return true
		}
	}
	return false
}

func markText(text string, placed []placement, numbers map[int]int) string {
	var b strings.Builder
	last := 0
	for _, p := range placed {
		num := strconv.Itoa(numbers[p.item])
		b.WriteString(text[last:p.start])
		b.WriteRune(openMark)
		b.WriteString(num)
		b.WriteRune(closeMark)
		b.WriteString(text[p.start:p.end])
		b.WriteRune(endMark)
		b.WriteString(num)
		b.WriteRune(closeMark)
		last = p.end
	}
	b.WriteString(text[last:])
	return b.String()
}

func stripMarkers(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case openMark, closeMark, endMark:
			return -1
		}
		return r
	}, s)
}

// DiffHTML converts the markdown produced by textdiff.Render to HTML, so
// removed words come out as <del> and added words as <strong>.
func DiffHTML(rendered string) (string, error) {
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough))
	if err := md.Convert([]byte(rendered), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
