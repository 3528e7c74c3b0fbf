package epub

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"xhtml2epub/internal/book"
)

// Item is one manifest entry of the package.
type Item struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// NavNode is one node of the navigation tree. The tree mirrors the chapter
// nesting exactly.
type NavNode struct {
	ID       string
	Title    string
	Href     string
	Children []NavNode
}

// ChapterDoc is a serialized chapter content document.
type ChapterDoc struct {
	ID       string
	Title    string
	Filename string
	Doc      *etree.Document
}

// CoverPage describes the generated SVG cover page for a decodable cover
// image.
type CoverPage struct {
	Asset  *book.ImageAsset
	Width  int
	Height int
}

// Package is the logical EPUB structure derived from a Book: container
// metadata, manifest, reading order and navigation tree. It is produced once
// and never mutated.
type Package struct {
	Identifier string
	Title      string
	Author     string
	Language   string

	Manifest []Item
	Spine    []string // chapter ids in reading order
	Nav      []NavNode
	Docs     []ChapterDoc
	Images   []*book.ImageAsset
	Styles   []book.Stylesheet
	Cover    *CoverPage
}

// Assemble derives the logical package from a parsed book: one content
// document and manifest entry per chapter, one manifest entry per unique
// image asset, a spine in flattened document order and a navigation tree
// mirroring the chapter nesting. Container metadata substitutes empty strings
// for absent fields; the identifier alone receives a generated urn:uuid value
// because the container must reference a non-empty unique identifier.
func Assemble(b *book.Book, log *zap.Logger) (*Package, error) {
	p := &Package{
		Identifier: b.Metadata.UID,
		Title:      b.Metadata.Title,
		Author:     b.Metadata.Author,
		Language:   b.Metadata.Language,
		Images:     b.Images.Assets(),
		Styles:     b.Stylesheets,
	}
	if p.Identifier == "" {
		p.Identifier = "urn:uuid:" + uuid.NewString()
	}

	p.Manifest = append(p.Manifest,
		Item{ID: "nav", Href: "nav.xhtml", MediaType: "application/xhtml+xml", Properties: "nav"},
		Item{ID: "ncx", Href: "toc.ncx", MediaType: "application/x-dtbncx+xml"},
	)

	for _, ch := range flattenChapters(b.Chapters) {
		filename := ch.ID + ".xhtml"
		p.Docs = append(p.Docs, ChapterDoc{
			ID:       ch.ID,
			Title:    ch.Title,
			Filename: filename,
			Doc:      buildChapterDocument(ch, b, log),
		})
		p.Manifest = append(p.Manifest, Item{
			ID:        ch.ID,
			Href:      filename,
			MediaType: "application/xhtml+xml",
		})
		p.Spine = append(p.Spine, ch.ID)
	}

	p.Cover = resolveCoverPage(b, log)

	cover := b.Images.Cover()
	for _, asset := range p.Images {
		item := Item{
			ID:        asset.PackageID,
			Href:      asset.PackageHref,
			MediaType: asset.MediaType,
		}
		if asset == cover {
			item.Properties = "cover-image"
		}
		p.Manifest = append(p.Manifest, item)
	}
	if p.Cover != nil {
		p.Manifest = append(p.Manifest, Item{
			ID:        "cover-page",
			Href:      "cover.xhtml",
			MediaType: "application/xhtml+xml",
		})
	}

	for i, sheet := range p.Styles {
		p.Manifest = append(p.Manifest, Item{
			ID:        fmt.Sprintf("css%d", i+1),
			Href:      sheet.Href,
			MediaType: sheet.MediaType,
		})
	}

	p.Nav = buildNavNodes(b.Chapters)
	if err := checkNavSpine(p); err != nil {
		return nil, err
	}
	return p, nil
}

// flattenChapters produces the reading order: each chapter immediately
// followed by its children's subtrees, in document order.
func flattenChapters(top []*book.Chapter) []*book.Chapter {
	var out []*book.Chapter
	stack := make([]*book.Chapter, 0, len(top))
	for i := len(top) - 1; i >= 0; i-- {
		stack = append(stack, top[i])
	}
	for len(stack) > 0 {
		ch := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, ch)
		for i := len(ch.Children) - 1; i >= 0; i-- {
			stack = append(stack, ch.Children[i])
		}
	}
	return out
}

func buildNavNodes(chapters []*book.Chapter) []NavNode {
	nodes := make([]NavNode, 0, len(chapters))
	for _, ch := range chapters {
		nodes = append(nodes, NavNode{
			ID:       ch.ID,
			Title:    ch.Title,
			Href:     ch.ID + ".xhtml",
			Children: buildNavNodes(ch.Children),
		})
	}
	return nodes
}

// checkNavSpine verifies the standing invariant that the navigation tree and
// the spine contain exactly the same chapters.
func checkNavSpine(p *Package) error {
	navIDs := make(map[string]bool)
	var collect func(nodes []NavNode)
	collect = func(nodes []NavNode) {
		for _, n := range nodes {
			navIDs[n.ID] = true
			collect(n.Children)
		}
	}
	collect(p.Nav)

	if len(navIDs) != len(p.Spine) {
		return fmt.Errorf("navigation tree has %d chapters but spine has %d", len(navIDs), len(p.Spine))
	}
	for _, id := range p.Spine {
		if !navIDs[id] {
			return fmt.Errorf("spine chapter %q missing from navigation tree", id)
		}
	}
	return nil
}

// resolveCoverPage decodes the cover image to size the SVG cover page. A
// cover that cannot be decoded (missing, corrupt, SVG) downgrades to no
// cover page with a warning; the image itself still ships in the package.
func resolveCoverPage(b *book.Book, log *zap.Logger) *CoverPage {
	asset := b.Images.Cover()
	if asset == nil {
		return nil
	}
	if asset.MediaType == "image/svg+xml" {
		log.Warn("svg cover image, skipping cover page", zap.String("src", asset.SourcePath))
		return nil
	}

	img, err := imaging.Open(assetPath(b, asset.SourcePath))
	if err != nil {
		log.Warn("unable to decode cover image, skipping cover page",
			zap.String("src", asset.SourcePath), zap.Error(err))
		return nil
	}

	bounds := img.Bounds()
	return &CoverPage{Asset: asset, Width: bounds.Dx(), Height: bounds.Dy()}
}
