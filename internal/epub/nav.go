package epub

import (
	"fmt"

	"github.com/beevik/etree"
)

// buildNav renders the EPUB 3 navigation document. The nested ol structure
// mirrors the chapter tree exactly.
func buildNav(p *Package) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", xhtmlNS)
	html.CreateAttr("xmlns:epub", epubNS)

	head := html.CreateElement("head")
	title := head.CreateElement("title")
	title.SetText("Table of Contents")

	body := html.CreateElement("body")

	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")

	h1 := nav.CreateElement("h1")
	h1.SetText("Table of Contents")

	buildNavList(nav, p.Nav)
	return doc
}

func buildNavList(parent *etree.Element, nodes []NavNode) {
	if len(nodes) == 0 {
		return
	}
	ol := parent.CreateElement("ol")
	for _, n := range nodes {
		li := ol.CreateElement("li")
		a := li.CreateElement("a")
		a.CreateAttr("href", n.Href)
		a.SetText(n.Title)
		buildNavList(li, n.Children)
	}
}

// buildNCX renders the EPUB 2 compatibility navigation control file.
func buildNCX(p *Package) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	ncx := doc.CreateElement("ncx")
	ncx.CreateAttr("xmlns", "http://www.daisy.org/z3986/2005/ncx/")
	ncx.CreateAttr("version", "2005-1")

	head := ncx.CreateElement("head")

	metaUID := head.CreateElement("meta")
	metaUID.CreateAttr("name", "dtb:uid")
	metaUID.CreateAttr("content", p.Identifier)

	metaDepth := head.CreateElement("meta")
	metaDepth.CreateAttr("name", "dtb:depth")
	metaDepth.CreateAttr("content", fmt.Sprintf("%d", navDepth(p.Nav)))

	metaTotal := head.CreateElement("meta")
	metaTotal.CreateAttr("name", "dtb:totalPageCount")
	metaTotal.CreateAttr("content", "0")

	metaMax := head.CreateElement("meta")
	metaMax.CreateAttr("name", "dtb:maxPageNumber")
	metaMax.CreateAttr("content", "0")

	docTitle := ncx.CreateElement("docTitle")
	text := docTitle.CreateElement("text")
	text.SetText(p.Title)

	navMap := ncx.CreateElement("navMap")
	playOrder := 0
	buildNavPoints(navMap, p.Nav, &playOrder)

	return doc
}

func buildNavPoints(parent *etree.Element, nodes []NavNode, playOrder *int) {
	for _, n := range nodes {
		*playOrder++
		navPoint := parent.CreateElement("navPoint")
		navPoint.CreateAttr("id", "navpoint-"+n.ID)
		navPoint.CreateAttr("playOrder", fmt.Sprintf("%d", *playOrder))

		navLabel := navPoint.CreateElement("navLabel")
		labelText := navLabel.CreateElement("text")
		labelText.SetText(n.Title)

		content := navPoint.CreateElement("content")
		content.CreateAttr("src", n.Href)

		buildNavPoints(navPoint, n.Children, playOrder)
	}
}

func navDepth(nodes []NavNode) int {
	depth := 0
	for _, n := range nodes {
		if d := 1 + navDepth(n.Children); d > depth {
			depth = d
		}
	}
	return depth
}
