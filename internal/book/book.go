package book

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Stylesheet is a stylesheet link carried through from the manuscript.
type Stylesheet struct {
	Href      string
	MediaType string
}

// Book is the parsed model of one manuscript: metadata, the chapter tree,
// the image registry and everything the packager needs to emit an EPUB.
type Book struct {
	Source      string // path the manuscript was read from, "" when parsed from memory
	SourceDir   string // directory asset references resolve against
	Metadata    Metadata
	Chapters    []*Chapter
	Images      *ImageRegistry
	Stylesheets []Stylesheet

	// Entities is the character reference table for this book: the built-in
	// named set overlaid with the document's internal declarations.
	Entities map[string]string
}

// Parse reads and parses the XHTML manuscript at path into a Book.
func Parse(path string, log *zap.Logger) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	b, err := parseSource(data, path, log)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return b, nil
}

// ParseBytes parses an in-memory manuscript. source names the origin for
// diagnostics; relative asset references resolve against its directory, or
// the current directory when source is empty.
func ParseBytes(data []byte, source string, log *zap.Logger) (*Book, error) {
	return parseSource(data, source, log)
}

// parseSource builds the book model from raw manuscript bytes. source names
// the origin for diagnostics and asset resolution.
func parseSource(data []byte, source string, log *zap.Logger) (*Book, error) {
	decls := internalEntities(data)

	entities := make(map[string]string, len(namedEntities)+len(decls))
	for name, text := range namedEntities {
		entities[name] = text
	}
	for name, text := range decls {
		entities[name] = text
	}

	doc := etree.NewDocument()
	// Permissive mode keeps references to internally declared entities as
	// literal text; they are expanded during serialization.
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	body := root.SelectElement("body")
	if body == nil {
		return nil, fmt.Errorf("document has no body element")
	}

	ids := make(idSet)
	chapters, flat, err := buildChapterTree(body, ids, entities)
	if err != nil {
		return nil, err
	}

	b := &Book{
		Source:    source,
		SourceDir: filepath.Dir(source),
		Metadata:  extractMetadata(decls),
		Chapters:  chapters,
		Images:    NewImageRegistry(ids),
		Entities:  entities,
	}
	if source == "" {
		b.SourceDir = "."
	}

	if err := collectImages(root, b.Images, log); err != nil {
		return nil, err
	}
	collectStylesheets(root, b)

	// Only now that the image walk has seen the whole document can chapter
	// elements leave their parents.
	detachChapters(flat)

	if len(chapters) == 0 {
		log.Warn("no chapters found", zap.String("source", source))
	}
	return b, nil
}

// collectImages resolves every embedded image reference in document order.
func collectImages(root *etree.Element, reg *ImageRegistry, log *zap.Logger) error {
	for _, img := range root.FindElements(".//img") {
		src := img.SelectAttrValue("src", "")
		if src == "" {
			log.Warn("img element without src attribute, skipping")
			continue
		}

		if _, err := reg.Resolve(src, img.SelectAttrValue("id", "")); err != nil {
			return err
		}

		if img.SelectAttr("alt") == nil {
			img.CreateAttr("alt", capitalize(basename(src)))
		}
	}
	return nil
}

// collectStylesheets records stylesheet links for passthrough into the
// package and into each chapter document's head.
func collectStylesheets(root *etree.Element, b *Book) {
	for _, link := range root.FindElements(".//link") {
		if link.SelectAttrValue("rel", "") != "stylesheet" {
			continue
		}
		href := link.SelectAttrValue("href", "")
		if href == "" {
			continue
		}
		mediaType := link.SelectAttrValue("type", "")
		if mediaType == "" {
			mediaType = "text/css"
		}
		b.Stylesheets = append(b.Stylesheets, Stylesheet{Href: href, MediaType: mediaType})
	}
}

// EpubFilename suggests an output name based on the book's author and title.
func (b *Book) EpubFilename() string {
	author := b.Metadata.Author
	if author == "" {
		author = "Unknown Author"
	}
	title := b.Metadata.Title
	if title == "" {
		title = "Unknown Title"
	}
	return fmt.Sprintf("%s - %s.epub", author, title)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
