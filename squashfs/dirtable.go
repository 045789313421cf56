package squashfs

import (
	"bytes"
	"encoding/binary"
)

// dirHeaderSize and dirEntryBaseSize are struct squashfs_dir_header and the
// fixed part of struct squashfs_dir_entry (the name is appended inline).
const (
	dirHeaderSize    = 12
	dirEntryBaseSize = 8
)

// marshalDirHeader encodes struct squashfs_dir_header.
func marshalDirHeader(count, startBlock, inodeNumber uint32) []byte {
	buf := make([]byte, dirHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], count)
	binary.LittleEndian.PutUint32(buf[4:], startBlock)
	binary.LittleEndian.PutUint32(buf[8:], inodeNumber)
	return buf
}

// marshalDirEntry encodes struct squashfs_dir_entry: offset locates the
// child's inode within the metablock named by the enclosing dir_header,
// inodeDelta is the child's inode number minus the header's base
// inode_number, kind picks the on-disk type code, and name is stored
// without a NUL terminator (size = len(name)-1 per the format).
func marshalDirEntry(offset uint16, inodeDelta int16, kind NodeKind, name string) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, offset)
	binary.Write(buf, binary.LittleEndian, inodeDelta)
	binary.Write(buf, binary.LittleEndian, uint16(kind.squashfsType()))
	binary.Write(buf, binary.LittleEndian, uint16(len(name)-1))
	buf.WriteString(name)
	return buf.Bytes()
}

// splitDirRuns groups a directory's (already name-sorted) children into
// runs that each fit in one dir_header: at most 256 entries, and every
// entry's inode number within int16 delta range of the run's first child.
// Ported from the corrective behaviour spec.md §9 Open Question 2 requires
// in place of the original's unhandled overflow.
func splitDirRuns(children []*Node) [][]*Node {
	if len(children) == 0 {
		return nil
	}
	var runs [][]*Node
	start := 0
	for i := 1; i < len(children); i++ {
		delta := int64(children[i].Ino) - int64(children[start].Ino)
		if i-start >= 256 || delta < -32768 || delta > 32767 {
			runs = append(runs, children[start:i])
			start = i
		}
	}
	return append(runs, children[start:])
}

// dirListingSize returns the byte length of every dir_header+dir_entry run
// that will be written for children, the generalization of spec.md §4.G's
// single-header file_size formula to however many runs splitDirRuns produces.
func dirListingSize(runs [][]*Node) int {
	n := 0
	for _, run := range runs {
		n += dirHeaderSize
		for _, c := range run {
			n += dirEntryBaseSize + len(c.Name)
		}
	}
	return n
}

// packDir implements spec.md §4.G: emit this directory's dir_inode into the
// inode table and, if it has children, their dir_header/dir_entry runs into
// the directory table. It records a fix-up so the image assembler can
// rewrite this directory's own start_block once the directory table's
// compressed layout is known (spec.md §4.I step 3).
func packDir(t *tables, node *Node) {
	metablockPosition := uint32(t.inodeTable.Len())
	t.inodeOffset[node.Ino] = metablockPosition

	parentIno := node.Ino // root self-parent, spec.md §9 Open Question 1
	if node.Parent != nil {
		parentIno = node.Parent.Ino
	}

	recPos := t.inodeTable.Len()

	var fileSize uint16 = 3
	var dirOffset uint16

	if len(node.Children) > 0 {
		// A dir_header names one inode-table metablock, so a run is also
		// cut wherever its children's inodes cross into another one.
		var runs [][]*Node
		for _, run := range splitDirRuns(node.Children) {
			start := 0
			for i := 1; i < len(run); i++ {
				if t.inodeOffset[run[i].Ino]/metaBlockSize != t.inodeOffset[run[start].Ino]/metaBlockSize {
					runs = append(runs, run[start:i])
					start = i
				}
			}
			runs = append(runs, run[start:])
		}
		fileSize = uint16(dirListingSize(runs)) + 3

		for i, run := range runs {
			if i == 0 {
				dirOffset = uint16(t.dirTable.Len() % metaBlockSize)
				t.fixups = append(t.fixups, fixup{
					patchPos:      recPos + dirInodeStartBlockOffset,
					dirBlockIndex: t.dirTable.Len() / metaBlockSize,
				})
			}

			base := run[0].Ino
			// Anchored on this run's own first child, not the directory's
			// own (later, trailing) inode record: a directory with enough
			// children to span more than one metablock has runs whose
			// entries don't share the directory's own aligned block.
			alignedInodeBlock := (t.inodeOffset[base] / metaBlockSize) * metaBlockSize
			t.dirTable.Append(marshalDirHeader(uint32(len(run)-1), alignedInodeBlock, base))

			for _, c := range run {
				delta := int16(int64(c.Ino) - int64(base))
				off := uint16(t.inodeOffset[c.Ino] % metaBlockSize)
				t.dirTable.Append(marshalDirEntry(off, delta, c.Kind, c.Name))
			}
		}
	}

	h := inodeHeader{Type: DirType, Number: node.Ino}
	t.inodeTable.Append(marshalDirInode(h, 0, fileSize, dirOffset, parentIno))
}
