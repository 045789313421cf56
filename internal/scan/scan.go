// Package scan builds the node tree the image assembler packs from: it
// walks a directory tree, classifies each entry as a file, symlink or
// subdirectory, and assigns pass-1 provisional inode numbers per the
// scheme squashfs.BuildTree's pass-2 renumbering expects.
package scan

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opacklab/opack/squashfs"
)

// ReadLinkFunc resolves the target of the symlink at fsPath, a path
// relative to the fs.FS root being scanned. fs.FS has no generic way to
// read a symlink's target, so the caller supplies this.
type ReadLinkFunc func(fsPath string) (string, error)

// Scan walks fsys from its root and returns the provisionally-numbered
// tree described in spec.md §3 "Pass 1": every file and symlink gets its
// inode number as it's visited, every directory gets its number only after
// all of its children have been scanned.
func Scan(fsys fs.FS, readLink ReadLinkFunc) (*squashfs.ScanNode, error) {
	var counter uint32
	return scanDir(fsys, ".", "", nil, readLink, &counter)
}

// ScanOS scans a real OS directory tree rooted at dir.
func ScanOS(dir string) (*squashfs.ScanNode, error) {
	return Scan(os.DirFS(dir), func(fsPath string) (string, error) {
		return os.Readlink(filepath.Join(dir, fsPath))
	})
}

func scanDir(fsys fs.FS, fsPath, name string, parent *squashfs.ScanNode, readLink ReadLinkFunc, counter *uint32) (*squashfs.ScanNode, error) {
	entries, err := fs.ReadDir(fsys, fsPath)
	if err != nil {
		return nil, err
	}

	dir := &squashfs.ScanNode{
		Kind:   squashfs.KindDir,
		Name:   name,
		Parent: parent,
	}

	names := make([]string, 0, len(entries))
	byName := make(map[string]fs.DirEntry, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
		byName[e.Name()] = e
	}
	sort.Strings(names) // scan order needn't match final sibling order, but a stable order keeps inode assignment deterministic

	for _, name := range names {
		e := byName[name]
		childPath := path.Join(fsPath, name)

		info, err := e.Info()
		if err != nil {
			continue // leaf vanished or unreadable between ReadDir and Info: drop it, non-fatal
		}

		switch {
		case e.IsDir():
			child, err := scanDir(fsys, childPath, name, dir, readLink, counter)
			if err != nil {
				continue // ScanError on subtree: skip it, the rest of the scan continues
			}
			dir.Children = append(dir.Children, child)

		case info.Mode()&fs.ModeSymlink != 0:
			target, err := readLink(childPath)
			if err != nil {
				continue
			}
			*counter++
			dir.Children = append(dir.Children, &squashfs.ScanNode{
				Kind:   squashfs.KindSymlink,
				Name:   name,
				Ino:    *counter,
				Target: normalizeTarget(target),
				Parent: dir,
			})

		case info.Mode().IsRegular():
			*counter++
			dir.Children = append(dir.Children, &squashfs.ScanNode{
				Kind:       squashfs.KindFile,
				Name:       name,
				Ino:        *counter,
				SourcePath: childPath,
				Size:       uint64(info.Size()),
				Parent:     dir,
			})

		default:
			// Block/char devices, FIFOs and sockets are an explicit non-goal.
		}
	}

	*counter++
	dir.Ino = *counter
	return dir, nil
}

func normalizeTarget(target string) string {
	return strings.ReplaceAll(target, `\`, "/")
}
