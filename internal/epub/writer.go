package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"xhtml2epub/internal/book"
)

const (
	mimetypeContent = "application/epub+zip"
	oebpsDir        = "OEBPS"
)

// Write assembles the book into a logical package and emits it as an EPUB
// container at outputPath. Nothing is written when assembly fails; a failure
// during emission leaves no partial file behind.
func Write(b *book.Book, outputPath string, log *zap.Logger) error {
	p, err := Assemble(b, log)
	if err != nil {
		return err
	}

	log.Info("writing EPUB", zap.String("output", outputPath), zap.Int("chapters", len(p.Docs)))

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer f.Close()

	if err := writePackage(f, b, p); err != nil {
		os.Remove(outputPath)
		return err
	}
	return f.Close()
}

func writePackage(w io.Writer, b *book.Book, p *Package) error {
	zw := zip.NewWriter(w)
	defer zw.Close()

	if err := writeMimetype(zw); err != nil {
		return fmt.Errorf("unable to write mimetype: %w", err)
	}
	if err := writeContainer(zw); err != nil {
		return fmt.Errorf("unable to write container: %w", err)
	}

	for _, cd := range p.Docs {
		if err := writeXMLToZip(zw, path.Join(oebpsDir, cd.Filename), cd.Doc); err != nil {
			return fmt.Errorf("unable to write chapter %s: %w", cd.ID, err)
		}
	}

	for _, asset := range p.Images {
		data, err := os.ReadFile(assetPath(b, asset.SourcePath))
		if err != nil {
			return fmt.Errorf("unable to read image %s: %w", asset.SourcePath, err)
		}
		if err := writeDataToZip(zw, path.Join(oebpsDir, asset.PackageHref), data); err != nil {
			return fmt.Errorf("unable to write image %s: %w", asset.PackageID, err)
		}
	}

	for _, sheet := range p.Styles {
		data, err := os.ReadFile(assetPath(b, sheet.Href))
		if err != nil {
			return fmt.Errorf("unable to read stylesheet %s: %w", sheet.Href, err)
		}
		if err := writeDataToZip(zw, path.Join(oebpsDir, sheet.Href), data); err != nil {
			return fmt.Errorf("unable to write stylesheet %s: %w", sheet.Href, err)
		}
	}

	if p.Cover != nil {
		if err := writeXMLToZip(zw, path.Join(oebpsDir, "cover.xhtml"), buildCoverPage(p)); err != nil {
			return fmt.Errorf("unable to write cover page: %w", err)
		}
	}

	if err := writeXMLToZip(zw, path.Join(oebpsDir, "content.opf"), buildOPF(p)); err != nil {
		return fmt.Errorf("unable to write OPF: %w", err)
	}
	if err := writeXMLToZip(zw, path.Join(oebpsDir, "nav.xhtml"), buildNav(p)); err != nil {
		return fmt.Errorf("unable to write NAV: %w", err)
	}
	if err := writeXMLToZip(zw, path.Join(oebpsDir, "toc.ncx"), buildNCX(p)); err != nil {
		return fmt.Errorf("unable to write NCX: %w", err)
	}

	return zw.Close()
}

// assetPath resolves a manuscript-relative asset reference against the
// source file's directory. Absolute references are used as-is.
func assetPath(b *book.Book, ref string) string {
	ref = filepath.FromSlash(ref)
	if filepath.IsAbs(ref) || b.SourceDir == "" {
		return ref
	}
	return filepath.Join(b.SourceDir, ref)
}

// writeMimetype writes the mandatory first entry, uncompressed so readers
// can identify the package type.
func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mimetypeContent)
	return err
}

func writeContainer(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfiles := container.CreateElement("rootfiles")
	rootfile := rootfiles.CreateElement("rootfile")
	rootfile.CreateAttr("full-path", path.Join(oebpsDir, "content.opf"))
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	return writeXMLToZip(zw, "META-INF/container.xml", doc)
}

// buildCoverPage renders an SVG wrapper page sized to the decoded cover
// image dimensions.
func buildCoverPage(p *Package) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", xhtmlNS)

	head := html.CreateElement("head")
	title := head.CreateElement("title")
	title.SetText(p.Title)

	style := head.CreateElement("style")
	style.CreateAttr("type", "text/css")
	style.SetText("html, body { margin: 0; padding: 0; width: 100%; height: 100%; } svg { display: block; width: auto; height: 100%; margin: 0 auto; }")

	body := html.CreateElement("body")

	svg := body.CreateElement("svg")
	svg.CreateAttr("version", "1.1")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", p.Cover.Width, p.Cover.Height))
	svg.CreateAttr("preserveAspectRatio", "xMidYMid meet")

	image := svg.CreateElement("image")
	image.CreateAttr("x", "0")
	image.CreateAttr("y", "0")
	image.CreateAttr("width", fmt.Sprintf("%d", p.Cover.Width))
	image.CreateAttr("height", fmt.Sprintf("%d", p.Cover.Height))
	image.CreateAttr("xlink:href", p.Cover.Asset.PackageHref)

	return doc
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
