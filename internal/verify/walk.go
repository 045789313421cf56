package verify

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/opacklab/opack/squashfs"
)

// Walk returns every node reachable from the image's root directory, in
// the order its directory listings were written (spec.md §8 invariant 4
// expects this to already be Unicode code-point order per directory).
func (r *Reader) Walk() ([]Entry, error) {
	var out []Entry
	if err := r.walkDir(uint32(r.sb.RootInode), "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func inflate(raw []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func (r *Reader) walkDir(off uint32, path string, out *[]Entry) error {
	h := parseInodeHeader(r.inodeRaw[off:])
	di := parseDirInode(r.inodeRaw[off:])
	*out = append(*out, Entry{Path: path, Kind: squashfs.KindDir, Ino: h.number})

	if di.fileSize <= 3 {
		return nil
	}

	decoded, err := decodeFrom(r.dirRaw, di.startBlock)
	if err != nil {
		return fmt.Errorf("decoding directory listing for %q: %w", path, err)
	}
	end := int(di.offset) + int(di.fileSize) - 3
	if end > len(decoded) {
		return fmt.Errorf("directory listing for %q runs past decoded table", path)
	}
	listing := decoded[di.offset:end]

	pos := 0
	for pos < len(listing) {
		hdr := parseDirHeaderBytes(listing[pos:])
		pos += dirHeaderSize
		for i := uint32(0); i <= hdr.count; i++ {
			entry, n := parseDirEntryBytes(listing[pos:])
			pos += n

			childIno := uint32(int64(hdr.inodeNumber) + int64(entry.inodeDelta))
			childOff := hdr.startBlock + uint32(entry.offset)
			childPath := path + "/" + entry.name

			switch entry.typ {
			case uint16(squashfs.DirType):
				if err := r.walkDir(childOff, childPath, out); err != nil {
					return err
				}
			case uint16(squashfs.SymlinkType):
				sl := parseSymlinkInode(r.inodeRaw[childOff:])
				*out = append(*out, Entry{Path: childPath, Kind: squashfs.KindSymlink, Ino: childIno, Target: sl.target})
			default:
				reg := parseRegInode(r.inodeRaw[childOff:], r.sb.BlockSize)
				*out = append(*out, Entry{Path: childPath, Kind: squashfs.KindFile, Ino: childIno, Size: reg.fileSize})
			}
		}
	}
	return nil
}

const dirHeaderSize = 12

// findInodeOffset re-walks the tree looking for path, returning the raw
// offset of its inode record within the decoded inode table.
func (r *Reader) findInodeOffset(path string) (uint32, uint16, error) {
	var found uint32
	var foundType uint16
	var walk func(off uint32, cur string) (bool, error)
	walk = func(off uint32, cur string) (bool, error) {
		if cur == path {
			found = off
			foundType = uint16(squashfs.DirType)
			return true, nil
		}
		di := parseDirInode(r.inodeRaw[off:])
		if di.fileSize <= 3 {
			return false, nil
		}
		decoded, err := decodeFrom(r.dirRaw, di.startBlock)
		if err != nil {
			return false, err
		}
		end := int(di.offset) + int(di.fileSize) - 3
		listing := decoded[di.offset:end]

		pos := 0
		for pos < len(listing) {
			hdr := parseDirHeaderBytes(listing[pos:])
			pos += dirHeaderSize
			for i := uint32(0); i <= hdr.count; i++ {
				entry, n := parseDirEntryBytes(listing[pos:])
				pos += n
				childOff := hdr.startBlock + uint32(entry.offset)
				childPath := cur + "/" + entry.name
				if childPath == path {
					found = childOff
					foundType = entry.typ
					return true, nil
				}
				if entry.typ == uint16(squashfs.DirType) {
					ok, err := walk(childOff, childPath)
					if err != nil {
						return false, err
					}
					if ok {
						return true, nil
					}
				}
			}
		}
		return false, nil
	}

	ok, err := walk(uint32(r.sb.RootInode), "")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, fmt.Errorf("path not found: %s", path)
	}
	return found, foundType, nil
}

// ReadFile returns path's content exactly as it would be reconstructed by a
// conforming SquashFS reader: data blocks in order, followed by the file's
// fragment tail (if any).
func (r *Reader) ReadFile(path string) ([]byte, error) {
	off, typ, err := r.findInodeOffset(path)
	if err != nil {
		return nil, err
	}
	if typ != uint16(squashfs.FileType) {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	reg := parseRegInode(r.inodeRaw[off:], r.sb.BlockSize)

	out := make([]byte, 0, reg.fileSize)
	pos := uint64(reg.startBlock)
	for _, sz := range reg.blockSizes {
		n := sz &^ 0x1000000
		raw := r.image[pos : pos+uint64(n)]
		if sz&0x1000000 != 0 {
			out = append(out, raw...)
		} else {
			dec, err := inflate(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, dec...)
		}
		pos += uint64(n)
	}

	if reg.fragment != 0xFFFFFFFF {
		fe := r.fragEntries[reg.fragment]
		n := fe.size &^ 0x1000000
		raw := r.image[fe.startBlock : fe.startBlock+uint64(n)]
		var blk []byte
		if fe.size&0x1000000 != 0 {
			blk = raw
		} else {
			blk, err = inflate(raw)
			if err != nil {
				return nil, err
			}
		}
		need := int(reg.fileSize) - len(out)
		out = append(out, blk[reg.fragOffset:][:need]...)
	}

	return out, nil
}

// Readlink returns a symlink's stored target.
func (r *Reader) Readlink(path string) (string, error) {
	off, typ, err := r.findInodeOffset(path)
	if err != nil {
		return "", err
	}
	if typ != uint16(squashfs.SymlinkType) {
		return "", fmt.Errorf("%s is not a symlink", path)
	}
	return parseSymlinkInode(r.inodeRaw[off:]).target, nil
}
