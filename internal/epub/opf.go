package epub

import (
	"github.com/beevik/etree"
)

const (
	opfNS = "http://www.idpf.org/2007/opf"
	dcNS  = "http://purl.org/dc/elements/1.1/"
)

// buildOPF renders the package document: metadata, manifest and spine.
// Metadata elements are emitted even when their value is empty, since the
// package format requires well-formed elements for unset fields.
func buildOPF(p *Package) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", opfNS)
	pkg.CreateAttr("version", "3.0")
	pkg.CreateAttr("unique-identifier", "BookId")

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", dcNS)

	dcIdentifier := metadata.CreateElement("dc:identifier")
	dcIdentifier.CreateAttr("id", "BookId")
	dcIdentifier.SetText(p.Identifier)

	dcTitle := metadata.CreateElement("dc:title")
	dcTitle.SetText(p.Title)

	dcLang := metadata.CreateElement("dc:language")
	dcLang.SetText(p.Language)

	dcCreator := metadata.CreateElement("dc:creator")
	dcCreator.SetText(p.Author)

	if cover := coverImageID(p); cover != "" {
		meta := metadata.CreateElement("meta")
		meta.CreateAttr("name", "cover")
		meta.CreateAttr("content", cover)
	}

	manifest := pkg.CreateElement("manifest")
	for _, it := range p.Manifest {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", it.ID)
		item.CreateAttr("href", it.Href)
		item.CreateAttr("media-type", it.MediaType)
		if it.Properties != "" {
			item.CreateAttr("properties", it.Properties)
		}
	}

	spine := pkg.CreateElement("spine")
	spine.CreateAttr("toc", "ncx")
	if p.Cover != nil {
		coverRef := spine.CreateElement("itemref")
		coverRef.CreateAttr("idref", "cover-page")
		coverRef.CreateAttr("linear", "no")
	}
	for _, id := range p.Spine {
		itemref := spine.CreateElement("itemref")
		itemref.CreateAttr("idref", id)
	}

	return doc
}

// coverImageID returns the manifest id of the cover image asset, if any.
func coverImageID(p *Package) string {
	for _, it := range p.Manifest {
		if it.Properties == "cover-image" {
			return it.ID
		}
	}
	return ""
}
