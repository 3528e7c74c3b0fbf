package book

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

func mustParse(t *testing.T, src string) *Book {
	t.Helper()
	b, err := ParseBytes([]byte(src), "", zap.NewNop())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return b
}

func xhtml(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head><body>` + body + `</body></html>`
}

func countChapters(chapters []*Chapter) int {
	n := 0
	for _, ch := range chapters {
		n += 1 + countChapters(ch.Children)
	}
	return n
}

func TestBuildChapterTree_NestedExample(t *testing.T) {
	b := mustParse(t, xhtml(`
<div id="c1"><h1>Intro</h1><p>one</p></div>
<div id="p1" title="Part One">
  <div id="c2"><h2>Two</h2><p>two</p></div>
</div>`))

	if len(b.Chapters) != 2 {
		t.Fatalf("expected 2 top-level chapters, got %d", len(b.Chapters))
	}
	if countChapters(b.Chapters) != 3 {
		t.Errorf("expected 3 chapters total, got %d", countChapters(b.Chapters))
	}

	c1, p1 := b.Chapters[0], b.Chapters[1]
	if c1.ID != "c1" || c1.Title != "Intro" {
		t.Errorf("first chapter = %s(%q)", c1.ID, c1.Title)
	}
	if p1.ID != "p1" || p1.Title != "Part One" {
		t.Errorf("second chapter = %s(%q)", p1.ID, p1.Title)
	}
	if len(p1.Children) != 1 || p1.Children[0].ID != "c2" || p1.Children[0].Title != "Two" {
		t.Errorf("unexpected children of p1: %+v", p1.Children)
	}
}

func TestBuildChapterTree_ChapterInsideNonChapterWrapper(t *testing.T) {
	// A wrapper without an id is never a boundary itself but may contain one.
	b := mustParse(t, xhtml(`
<div id="outer">
  <div class="wrapper">
    <section id="inner"><h3>Deep</h3></section>
  </div>
</div>`))

	if len(b.Chapters) != 1 {
		t.Fatalf("expected 1 top-level chapter, got %d", len(b.Chapters))
	}
	outer := b.Chapters[0]
	if len(outer.Children) != 1 || outer.Children[0].ID != "inner" {
		t.Fatalf("inner section should be a child chapter, got %+v", outer.Children)
	}
}

func TestBuildChapterTree_DuplicateIDFails(t *testing.T) {
	_, err := ParseBytes([]byte(xhtml(`
<div id="ch1"><p>a</p></div>
<div id="ch1"><p>b</p></div>`)), "", zap.NewNop())
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
	if !strings.Contains(err.Error(), "ch1") {
		t.Errorf("error should name the offending id: %v", err)
	}
}

func TestBuildChapterTree_ZeroChapters(t *testing.T) {
	b := mustParse(t, xhtml(`<p>no chapters here</p>`))
	if len(b.Chapters) != 0 {
		t.Errorf("expected empty chapter sequence, got %d", len(b.Chapters))
	}
}

func TestBuildChapterTree_DetachesDescendantContent(t *testing.T) {
	b := mustParse(t, xhtml(`
<div id="p1"><p>parent text</p><div id="c1"><p>child text</p></div></div>`))

	p1 := b.Chapters[0]
	doc := docFor(p1)
	if strings.Contains(doc, "child text") {
		t.Errorf("parent content should not include child chapter content: %s", doc)
	}
	if !strings.Contains(doc, "parent text") {
		t.Errorf("parent content missing its own text: %s", doc)
	}
}

func docFor(ch *Chapter) string {
	doc := etree.NewDocument()
	doc.SetRoot(ch.Element.Copy())
	s, _ := doc.WriteToString()
	return s
}

func TestResolveTitle_AttributeWins(t *testing.T) {
	b := mustParse(t, xhtml(`<div id="c1" title="Explicit"><h1>Heading</h1></div>`))
	if got := b.Chapters[0].Title; got != "Explicit" {
		t.Errorf("title = %q, want Explicit", got)
	}
}

func TestResolveTitle_LeadingHeading(t *testing.T) {
	b := mustParse(t, xhtml(`<div id="c1">
  <h2>Second <em>Level</em></h2><p>text</p></div>`))
	if got := b.Chapters[0].Title; got != "Second Level" {
		t.Errorf("title = %q, want Second Level", got)
	}
}

func TestResolveTitle_HeadingNotFirstDoesNotMatch(t *testing.T) {
	b := mustParse(t, xhtml(`<div id="c1"><p>lead-in</p><h2>Late</h2></div>`))
	if got := b.Chapters[0].Title; got != "c1" {
		t.Errorf("title = %q, want id fallback c1", got)
	}
}

func TestResolveTitle_WhitespaceHeadingFallsThrough(t *testing.T) {
	b := mustParse(t, xhtml(`<div id="c1"><h3>   </h3></div>`))
	if got := b.Chapters[0].Title; got != "c1" {
		t.Errorf("title = %q, want c1", got)
	}
}

func TestResolveTitle_IDVerbatim(t *testing.T) {
	b := mustParse(t, xhtml(`<div id="some-chapter_id"><p>x</p></div>`))
	if got := b.Chapters[0].Title; got != "some-chapter_id" {
		t.Errorf("title = %q, want some-chapter_id verbatim", got)
	}
}

func TestResolveTitle_HeadingEntityExpanded(t *testing.T) {
	b := mustParse(t, xhtml(`<div id="c1"><h1>War &amp; Peace&mdash;Again</h1></div>`))
	if got := b.Chapters[0].Title; got != "War & Peace—Again" {
		t.Errorf("title = %q", got)
	}
}
