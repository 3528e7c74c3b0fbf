package book

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Chapter is one node of the book's chapter tree. ID is unique across the
// whole book, not just among siblings. Element holds the chapter's own markup
// with descendant chapter elements already detached.
type Chapter struct {
	ID       string
	Title    string
	Element  *etree.Element
	Children []*Chapter

	// Namespaces carries prefixed namespace declarations inherited from the
	// chapter element's ancestors at its original document position, so the
	// serialized fragment can re-declare the ones its subtree uses.
	Namespaces map[string]string
}

// chapterTags are the block elements that act as chapter boundaries when they
// carry an id attribute.
var chapterTags = map[string]bool{
	"div":     true,
	"section": true,
	"article": true,
	"aside":   true,
}

// headingTags are the elements considered for automatic title detection.
var headingTags = map[string]bool{
	"h1": true,
	"h2": true,
	"h3": true,
}

// idSet tracks every identifier observed in the book. Chapter ids and image
// package ids share this namespace.
type idSet map[string]struct{}

func (s idSet) add(id string) bool {
	if _, exists := s[id]; exists {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s idSet) has(id string) bool {
	_, exists := s[id]
	return exists
}

func isChapterElement(e *etree.Element) bool {
	return e.Space == "" && chapterTags[e.Tag] && e.SelectAttrValue("id", "") != ""
}

// buildChapterTree walks body in document order with an explicit stack and
// returns the top-level chapter sequence plus a flat list of every chapter.
// An id-bearing block element found inside another chapter's subtree becomes
// a child chapter. A duplicate id anywhere in the document is a structural
// error. The chapter elements are left attached; the caller detaches them
// once image collection has seen the complete document.
func buildChapterTree(body *etree.Element, ids idSet, entities map[string]string) (top []*Chapter, flat []*Chapter, err error) {
	type frame struct {
		elem      *etree.Element
		enclosing *Chapter
	}

	stack := []frame{{elem: body}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		enclosing := f.enclosing
		if isChapterElement(f.elem) {
			id := f.elem.SelectAttrValue("id", "")
			if !ids.add(id) {
				return nil, nil, fmt.Errorf("duplicate chapter id %q", id)
			}
			ch := &Chapter{
				ID:         id,
				Title:      resolveTitle(f.elem, entities),
				Element:    f.elem,
				Namespaces: inheritedNamespaces(f.elem),
			}
			if enclosing != nil {
				enclosing.Children = append(enclosing.Children, ch)
			} else {
				top = append(top, ch)
			}
			flat = append(flat, ch)
			enclosing = ch
		}

		children := f.elem.ChildElements()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{elem: children[i], enclosing: enclosing})
		}
	}
	return top, flat, nil
}

// detachChapters removes every chapter element from its DOM parent, so a
// chapter's serialized content stops at the start of its first chapter
// descendant instead of duplicating it.
func detachChapters(flat []*Chapter) {
	for _, ch := range flat {
		if p := ch.Element.Parent(); p != nil {
			p.RemoveChild(ch.Element)
		}
	}
}

// resolveTitle applies the title fallback policy for one chapter element:
// an explicit title attribute wins; otherwise the text of a leading h1/h2/h3
// heading; otherwise the id itself. Pure over the element's local view.
func resolveTitle(elem *etree.Element, entities map[string]string) string {
	if attr := elem.SelectAttrValue("title", ""); attr != "" {
		expanded, _ := ExpandReferences(attr, entities)
		return expanded
	}

	if h := leadingHeading(elem); h != nil {
		text, _ := ExpandReferences(textContent(h), entities)
		if text = strings.Join(strings.Fields(text), " "); text != "" {
			return text
		}
	}

	return elem.SelectAttrValue("id", "")
}

// leadingHeading returns the heading element that opens elem's content, or
// nil when anything other than whitespace or a comment precedes it.
func leadingHeading(elem *etree.Element) *etree.Element {
	for _, tok := range elem.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return nil
			}
		case *etree.Comment:
			// ignored
		case *etree.Element:
			if t.Space == "" && headingTags[t.Tag] {
				return t
			}
			return nil
		default:
			return nil
		}
	}
	return nil
}

// textContent concatenates all character data beneath e in document order.
func textContent(e *etree.Element) string {
	var b strings.Builder
	appendText(&b, e)
	return b.String()
}

func appendText(b *strings.Builder, e *etree.Element) {
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			appendText(b, t)
		}
	}
}

// inheritedNamespaces collects prefixed xmlns declarations from elem's
// ancestor chain. Declarations closer to elem win.
func inheritedNamespaces(elem *etree.Element) map[string]string {
	var chain []*etree.Element
	for p := elem.Parent(); p != nil; p = p.Parent() {
		chain = append(chain, p)
	}

	ns := make(map[string]string)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, a := range chain[i].Attr {
			if a.Space == "xmlns" {
				ns[a.Key] = a.Value
			}
		}
	}
	return ns
}
