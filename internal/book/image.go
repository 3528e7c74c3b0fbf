package book

import (
	"fmt"
	"path"
	"strings"
)

// ImageAsset is one embedded image scheduled for inclusion in the package.
type ImageAsset struct {
	SourcePath  string // as referenced by the manuscript
	PackageID   string // manifest id, unique across the whole book
	PackageHref string // package-relative path, e.g. images/photo.jpg
	MediaType   string
}

// mediaTypes maps source file extensions to image media types. Extensions
// outside this map are a structural error: the manifest must not guess.
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// ImageRegistry assigns package identifiers to embedded image references and
// deduplicates identical source paths. Identifiers live in the same
// uniqueness namespace as chapter ids.
type ImageRegistry struct {
	assets   []*ImageAsset
	bySource map[string]*ImageAsset
	ids      idSet
	hrefs    map[string]struct{}
}

// NewImageRegistry returns a registry whose generated and recorded ids must
// not collide with any identifier already present in ids.
func NewImageRegistry(ids idSet) *ImageRegistry {
	return &ImageRegistry{
		bySource: make(map[string]*ImageAsset),
		ids:      ids,
		hrefs:    make(map[string]struct{}),
	}
}

// Resolve returns the asset for sourcePath, registering it on first sight.
// A repeated source path always yields the first resolution, regardless of
// existingID. A non-empty existingID on first resolution is trusted verbatim
// but must not collide with any observed identifier. Otherwise a fresh
// img.<basename> identifier is synthesized.
func (r *ImageRegistry) Resolve(sourcePath, existingID string) (*ImageAsset, error) {
	if a, ok := r.bySource[sourcePath]; ok {
		return a, nil
	}

	ext := strings.ToLower(path.Ext(sourcePath))
	mediaType, ok := mediaTypes[ext]
	if !ok {
		return nil, fmt.Errorf("unknown image type for %q", sourcePath)
	}

	id := existingID
	if id != "" {
		if !r.ids.add(id) {
			return nil, fmt.Errorf("image id %q on %q collides with an existing identifier", id, sourcePath)
		}
	} else {
		id = r.freshID(basename(sourcePath))
	}

	a := &ImageAsset{
		SourcePath:  sourcePath,
		PackageID:   id,
		PackageHref: r.freshHref(path.Base(sourcePath)),
		MediaType:   mediaType,
	}
	r.assets = append(r.assets, a)
	r.bySource[sourcePath] = a
	return a, nil
}

// Lookup returns the asset previously resolved for sourcePath, if any.
func (r *ImageRegistry) Lookup(sourcePath string) (*ImageAsset, bool) {
	a, ok := r.bySource[sourcePath]
	return a, ok
}

// Assets returns all registered assets in document order.
func (r *ImageRegistry) Assets() []*ImageAsset {
	return r.assets
}

// Cover returns the first registered image, the book's cover by convention,
// or nil when the book has no images.
func (r *ImageRegistry) Cover() *ImageAsset {
	if len(r.assets) == 0 {
		return nil
	}
	return r.assets[0]
}

func (r *ImageRegistry) freshID(base string) string {
	id := "img." + base
	for n := 2; !r.ids.add(id); n++ {
		id = fmt.Sprintf("img.%s-%d", base, n)
	}
	return id
}

func (r *ImageRegistry) freshHref(filename string) string {
	href := "images/" + filename
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 2; ; n++ {
		if _, taken := r.hrefs[href]; !taken {
			break
		}
		href = fmt.Sprintf("images/%s-%d%s", stem, n, ext)
	}
	r.hrefs[href] = struct{}{}
	return href
}

// basename strips the directory and extension from a source path.
func basename(p string) string {
	b := path.Base(p)
	return strings.TrimSuffix(b, path.Ext(b))
}
