package epub

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"xhtml2epub/internal/book"
)

func mustParse(t *testing.T, src string) *book.Book {
	t.Helper()
	b, err := book.ParseBytes([]byte(src), "", zap.NewNop())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return b
}

func renderChapter(t *testing.T, b *book.Book, i int) string {
	t.Helper()
	doc := buildChapterDocument(b.Chapters[i], b, zap.NewNop())
	s, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	return s
}

func TestBuildChapterDocument_ExpandsReferences(t *testing.T) {
	b := mustParse(t, `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html [
  <!ENTITY house "Bleak House">
]>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head><body>
<div id="c1"><h1>One</h1><p title="&house;">&house;&mdash;done</p></div>
</body></html>`)

	out := renderChapter(t, b, 0)
	if !strings.Contains(out, "Bleak House—done") {
		t.Errorf("text references not expanded: %s", out)
	}
	if !strings.Contains(out, `title="Bleak House"`) {
		t.Errorf("attribute references not expanded: %s", out)
	}
	if strings.Contains(out, "&house;") {
		t.Errorf("raw reference left in output: %s", out)
	}
}

func TestBuildChapterDocument_RewritesImageRefs(t *testing.T) {
	b := mustParse(t, `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head><body>
<div id="c1"><img src="pics/cover.jpg"/></div>
</body></html>`)

	out := renderChapter(t, b, 0)
	if !strings.Contains(out, `src="images/cover.jpg"`) {
		t.Errorf("image src not rewritten to package path: %s", out)
	}
	if strings.Contains(out, "pics/cover.jpg") {
		t.Errorf("original source path left in output: %s", out)
	}
}

func TestBuildChapterDocument_HeadCarriesStylesheets(t *testing.T) {
	b := mustParse(t, `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title>
<link rel="stylesheet" type="text/css" href="style.css"/></head><body>
<div id="c1" title="First"><p>x</p></div>
</body></html>`)

	out := renderChapter(t, b, 0)
	if !strings.Contains(out, `href="style.css"`) {
		t.Errorf("stylesheet link missing from chapter head: %s", out)
	}
	if !strings.Contains(out, "<title>First</title>") {
		t.Errorf("chapter title missing from head: %s", out)
	}
}

func TestBuildChapterDocument_DropsUnusedNamespaceDecls(t *testing.T) {
	b := mustParse(t, `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head><body>
<div id="c1" xmlns:unused="http://example.com/unused"><p>x</p></div>
</body></html>`)

	out := renderChapter(t, b, 0)
	if strings.Contains(out, "unused") {
		t.Errorf("unused namespace declaration survived: %s", out)
	}
}

func TestBuildChapterDocument_RedeclaresInheritedPrefix(t *testing.T) {
	b := mustParse(t, `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:m="http://www.w3.org/1998/Math/MathML">
<head><title>t</title></head><body>
<div id="c1"><p><m:math><m:mi>x</m:mi></m:math></p></div>
</body></html>`)

	out := renderChapter(t, b, 0)
	if !strings.Contains(out, `xmlns:m="http://www.w3.org/1998/Math/MathML"`) {
		t.Errorf("used inherited prefix must be re-declared on the fragment: %s", out)
	}
}

func TestBuildChapterDocument_DropsRedundantDefaultNamespace(t *testing.T) {
	b := mustParse(t, `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head><body>
<div id="c1" xmlns="http://www.w3.org/1999/xhtml"><p>x</p></div>
</body></html>`)

	out := renderChapter(t, b, 0)
	if strings.Count(out, `xmlns="http://www.w3.org/1999/xhtml"`) != 1 {
		t.Errorf("redundant default namespace on the fragment should be dropped: %s", out)
	}
}
