// Package verify reads back a SquashFS 4.0 image produced by the squashfs
// package, so the test suite can check round-trip correctness against the
// exact conventions that package's writer uses (metablock framing, the
// inode/directory table offset scheme, fragment assembly). It is adapted
// from the read-side files of a SquashFS library this project started
// from, trimmed to what a conformance test needs and never exposed as a
// CLI feature -- reading/extracting images is out of scope for opack itself.
package verify

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/opacklab/opack/squashfs"
)

// Entry describes one node discovered while walking a decoded image.
type Entry struct {
	Path   string
	Kind   squashfs.NodeKind
	Ino    uint32
	Target string
	Size   uint32
}

// Reader decodes a finished SquashFS 4.0 image held entirely in memory.
type Reader struct {
	image []byte
	sb    squashfs.Superblock

	inodeRaw []byte // the whole inode table, decompressed
	dirRaw   []byte // the whole directory table, still compressed (decoded per-metablock on demand)

	fragEntries []fragEntry
}

type fragEntry struct {
	startBlock uint64
	size       uint32
}

// Open parses image and decodes its inode and fragment tables.
func Open(image []byte) (*Reader, error) {
	var sb squashfs.Superblock
	if err := sb.UnmarshalBinary(image); err != nil {
		return nil, err
	}
	if sb.VMajor != 4 || sb.VMinor != 0 {
		return nil, fmt.Errorf("unsupported version %d.%d", sb.VMajor, sb.VMinor)
	}

	r := &Reader{image: image, sb: sb}

	inodeSection := image[sb.InodeTableStart:sb.DirTableStart]
	inodeRaw, err := decodeFrom(inodeSection, 0)
	if err != nil {
		return nil, fmt.Errorf("decoding inode table: %w", err)
	}
	r.inodeRaw = inodeRaw

	dirEnd := uint64(len(image))
	if sb.FragCount != 0xFFFFFFFF {
		dirEnd = sb.FragTableStart
	} else {
		dirEnd = sb.IdTableStart
	}
	r.dirRaw = image[sb.DirTableStart:dirEnd]

	if sb.FragCount != 0xFFFFFFFF && sb.FragCount > 0 {
		entries, err := r.readFragmentTable()
		if err != nil {
			return nil, fmt.Errorf("decoding fragment table: %w", err)
		}
		r.fragEntries = entries
	}

	return r, nil
}

// Superblock returns the decoded super block.
func (r *Reader) Superblock() squashfs.Superblock { return r.sb }

// readIndexedTable decodes a metablock run addressed via the index array a
// table like the fragment or id table ends with (squashfs.Image.writeMetablocks
// with withIndex=true): start is the absolute file offset of that index array,
// rawLen is the known decompressed byte length of the table's content.
func (r *Reader) readIndexedTable(start uint64, rawLen int) ([]byte, error) {
	nBlocks := (rawLen + metaBlockSize - 1) / metaBlockSize
	if nBlocks == 0 {
		nBlocks = 1
	}
	idx := r.image[start : start+uint64(8*nBlocks)]

	var out []byte
	for i := 0; i < nBlocks; i++ {
		off := binary.LittleEndian.Uint64(idx[i*8:])
		blk, _, err := readOneMetablock(r.image, uint32(off))
		if err != nil {
			return nil, err
		}
		out = append(out, blk...)
	}
	return out, nil
}

func (r *Reader) readFragmentTable() ([]fragEntry, error) {
	raw, err := r.readIndexedTable(r.sb.FragTableStart, int(r.sb.FragCount)*16)
	if err != nil {
		return nil, err
	}
	entries := make([]fragEntry, r.sb.FragCount)
	for i := range entries {
		b := raw[i*16:]
		entries[i] = fragEntry{
			startBlock: binary.LittleEndian.Uint64(b[0:]),
			size:       binary.LittleEndian.Uint32(b[8:]),
		}
	}
	return entries, nil
}

const metaBlockSize = 8192

// readOneMetablock decodes the single metablock whose 2-byte frame header
// begins at pos within buf, returning the decompressed payload and the
// number of input bytes the frame occupied.
func readOneMetablock(buf []byte, pos uint32) ([]byte, uint32, error) {
	if int(pos)+2 > len(buf) {
		return nil, 0, io.ErrUnexpectedEOF
	}
	h := binary.LittleEndian.Uint16(buf[pos:])
	size := uint32(h &^ 0x8000)
	if int(pos)+2+int(size) > len(buf) {
		return nil, 0, io.ErrUnexpectedEOF
	}
	raw := buf[pos+2 : pos+2+size]
	consumed := 2 + size

	if h&0x8000 != 0 {
		cp := make([]byte, len(raw))
		copy(cp, raw)
		return cp, consumed, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	return out, consumed, err
}

// decodeFrom decodes every metablock in section starting at byte offset
// start, concatenating their decompressed payloads until the section is
// exhausted.
func decodeFrom(section []byte, start uint32) ([]byte, error) {
	var out []byte
	pos := start
	for pos < uint32(len(section)) {
		blk, n, err := readOneMetablock(section, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, blk...)
		pos += n
	}
	return out, nil
}
