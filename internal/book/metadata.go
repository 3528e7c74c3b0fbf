package book

import (
	"regexp"
)

// Metadata holds the book-level information declared through DTD internal
// entities. All fields are optional; absent entities leave the field empty.
type Metadata struct {
	Title    string
	Author   string
	Language string
	UID      string
}

var (
	internalSubsetRe = regexp.MustCompile(`(?s)<!DOCTYPE[^>\[]*\[(.*?)\]\s*>`)
	entityDeclRe     = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_][A-Za-z0-9._-]*)\s+(?:"([^"]*)"|'([^']*)')\s*>`)
)

// internalEntities scans the raw document for the DOCTYPE internal subset and
// returns all general entity declarations found there. Character references
// inside replacement text are expanded so a declaration like
// <!ENTITY em "&#x2014;"> yields usable literal text.
func internalEntities(src []byte) map[string]string {
	decls := make(map[string]string)

	subset := internalSubsetRe.FindSubmatch(src)
	if subset == nil {
		return decls
	}

	for _, m := range entityDeclRe.FindAllSubmatch(subset[1], -1) {
		name := string(m[1])
		value := string(m[2])
		if len(m[2]) == 0 {
			value = string(m[3])
		}
		value, _ = ExpandReferences(value, namedEntities)
		decls[name] = value
	}
	return decls
}

// extractMetadata picks the recognized book metadata entities out of the
// declared set. Any other declared entity is inert data available for body
// content, not metadata. No validation is applied to uid.
func extractMetadata(decls map[string]string) Metadata {
	return Metadata{
		Title:    decls["title"],
		Author:   decls["author"],
		Language: decls["language"],
		UID:      decls["uid"],
	}
}
