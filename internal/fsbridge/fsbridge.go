// Package fsbridge holds the thin filesystem pass-throughs the presentation
// layer calls: workspace directory listing and directory creation. Native
// dialogs stay behind an interface; the shell supplies the implementation.
package fsbridge

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirEntry describes one subdirectory of a listed root.
type DirEntry struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
	Depth        int    `json:"depth"`
}

// FolderPicker is the native folder-selection dialog, supplied by the
// presentation layer. ok is false when the user cancelled.
type FolderPicker interface {
	RequestFolderSelection() (path string, ok bool, err error)
}

// ListSubdirectories returns the subdirectories of root, ordered by path.
// With recursive false only immediate children are returned; otherwise
// descent stops at maxDepth (1 = immediate children, <=0 = unlimited).
// Unreadable directories are skipped, not fatal.
func ListSubdirectories(root string, recursive bool, maxDepth int) ([]DirEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	if !recursive {
		maxDepth = 1
	}

	var out []DirEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() || path == root {
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return fs.SkipDir
		}
		depth := strings.Count(rel, string(filepath.Separator)) + 1
		if maxDepth > 0 && depth > maxDepth {
			return fs.SkipDir
		}
		out = append(out, DirEntry{
			Name:         d.Name(),
			Path:         path,
			RelativePath: rel,
			Depth:        depth,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// OpenOrCreateDirectory ensures path exists as a directory.
func OpenOrCreateDirectory(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("%s exists and is not a directory", path)
	case os.IsNotExist(err):
		return os.MkdirAll(path, 0o750)
	default:
		return err
	}
}
