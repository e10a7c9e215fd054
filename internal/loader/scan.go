package loader

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// IsViewFile reports whether name is a loadable view file.
func IsViewFile(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}

// LoadDir recursively loads every view file under dir, in lexical path order.
// Hidden files and directories are skipped.
func LoadDir(dir string) ([]ViewDef, error) {
	var views []ViewDef

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsViewFile(d.Name()) {
			return nil
		}

		v, err := LoadFile(path)
		if err != nil {
			return err
		}
		views = append(views, v)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load views from %s: %w", dir, err)
	}
	return views, nil
}
