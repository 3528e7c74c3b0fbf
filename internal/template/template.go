// Package template materializes a starter manuscript demonstrating the
// conventions the converter expects: metadata entities in the DOCTYPE
// internal subset and id-bearing div elements as chapter boundaries.
package template

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed files
var files embed.FS

// Write copies the starter manuscript files into destDir. The directory must
// not already exist.
func Write(destDir string) error {
	if _, err := os.Stat(destDir); err == nil {
		return fmt.Errorf("destination %q already exists", destDir)
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("unable to create %q: %w", destDir, err)
	}

	root, err := fs.Sub(files, "files")
	if err != nil {
		return err
	}

	return fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, filepath.FromSlash(p))
		if d.IsDir() {
			if p == "." {
				return nil
			}
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(root, p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
