package epub

import (
	"github.com/beevik/etree"
	"go.uber.org/zap"

	"xhtml2epub/internal/book"
)

const (
	xhtmlNS = "http://www.w3.org/1999/xhtml"
	epubNS  = "http://www.idpf.org/2007/ops"
)

// buildChapterDocument renders one chapter as a self-contained XHTML content
// document: character references expanded, image references rewritten to
// package paths and namespace declarations reduced to the ones the fragment
// actually uses.
func buildChapterDocument(ch *book.Chapter, b *book.Book, log *zap.Logger) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", xhtmlNS)

	head := html.CreateElement("head")
	title := head.CreateElement("title")
	title.SetText(ch.Title)

	for _, sheet := range b.Stylesheets {
		link := head.CreateElement("link")
		link.CreateAttr("rel", "stylesheet")
		link.CreateAttr("type", sheet.MediaType)
		link.CreateAttr("href", sheet.Href)
	}

	body := html.CreateElement("body")

	content := ch.Element.Copy()
	rewriteImageRefs(content, b.Images, log)
	expandReferences(content, b.Entities, log)
	pruneNamespaces(content, ch.Namespaces, log)
	body.AddChild(content)

	return doc
}

// expandReferences resolves named character references left in text and
// attribute content by the permissive parse. Unknown names are passed through
// and warned about once each.
func expandReferences(root *etree.Element, entities map[string]string, log *zap.Logger) {
	warned := make(map[string]bool)
	warn := func(names []string) {
		for _, name := range names {
			if !warned[name] {
				warned[name] = true
				log.Warn("unresolved character reference", zap.String("entity", name))
			}
		}
	}

	stack := []*etree.Element{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for i := range e.Attr {
			expanded, unresolved := book.ExpandReferences(e.Attr[i].Value, entities)
			e.Attr[i].Value = expanded
			warn(unresolved)
		}
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				expanded, unresolved := book.ExpandReferences(t.Data, entities)
				t.Data = expanded
				warn(unresolved)
			case *etree.Element:
				stack = append(stack, t)
			}
		}
	}
}

// rewriteImageRefs points every embedded image at its package-relative asset
// path.
func rewriteImageRefs(root *etree.Element, reg *book.ImageRegistry, log *zap.Logger) {
	for _, img := range findAll(root, "img") {
		src := img.SelectAttrValue("src", "")
		if src == "" {
			continue
		}
		asset, ok := reg.Lookup(src)
		if !ok {
			log.Warn("image reference missing from registry", zap.String("src", src))
			continue
		}
		if attr := img.SelectAttr("src"); attr != nil {
			attr.Value = asset.PackageHref
		}
	}
}

// pruneNamespaces strips namespace declarations the fragment does not use and
// re-declares, on the fragment root, the inherited prefixes it does use. The
// XHTML default namespace is dropped from the subtree since the enclosing
// document already declares it.
func pruneNamespaces(root *etree.Element, inherited map[string]string, log *zap.Logger) {
	decls := make(map[string]string, len(inherited))
	for prefix, uri := range inherited {
		decls[prefix] = uri
	}

	used := make(map[string]bool)
	stack := []*etree.Element{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if e.Space != "" {
			used[e.Space] = true
		}

		var kept []etree.Attr
		for _, a := range e.Attr {
			switch {
			case a.Space == "xmlns":
				decls[a.Key] = a.Value
			case a.Space == "" && a.Key == "xmlns":
				if a.Value != xhtmlNS {
					kept = append(kept, a)
				}
			default:
				if a.Space != "" && a.Space != "xml" {
					used[a.Space] = true
				}
				kept = append(kept, a)
			}
		}
		e.Attr = kept

		for _, child := range e.ChildElements() {
			stack = append(stack, child)
		}
	}

	for prefix := range used {
		uri, ok := decls[prefix]
		if !ok {
			log.Warn("undeclared namespace prefix in chapter content", zap.String("prefix", prefix))
			continue
		}
		root.CreateAttr("xmlns:"+prefix, uri)
	}
}

// findAll returns every descendant element with the given unprefixed tag,
// including root itself.
func findAll(root *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	stack := []*etree.Element{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.Space == "" && e.Tag == tag {
			out = append(out, e)
		}
		children := e.ChildElements()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}
