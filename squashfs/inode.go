package squashfs

import (
	"bytes"
	"encoding/binary"
)

// inodeHeader is struct squashfs_inode_header. Ownership, permission bits
// and timestamps are non-goals (spec Non-goals): Mode, Uid, Gid and Mtime
// are always left at zero.
type inodeHeader struct {
	Type   Type
	Mode   uint16
	Uid    uint16
	Gid    uint16
	Mtime  uint32
	Number uint32
}

func (h inodeHeader) marshal(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, uint16(h.Type))
	binary.Write(buf, binary.LittleEndian, h.Mode)
	binary.Write(buf, binary.LittleEndian, h.Uid)
	binary.Write(buf, binary.LittleEndian, h.Gid)
	binary.Write(buf, binary.LittleEndian, h.Mtime)
	binary.Write(buf, binary.LittleEndian, h.Number)
}

const inodeHeaderSize = 16

// marshalRegInode encodes struct squashfs_reg_inode: a regular file whose
// data lives in blockSizes data blocks starting at startBlock, plus an
// optional fragment tail (fragIndex/fragOffset, or 0xffffffff/0 when the
// file has no fragment).
func marshalRegInode(h inodeHeader, startBlock, fragIndex, fragOffset, fileSize uint32, blockSizes []uint32) []byte {
	buf := &bytes.Buffer{}
	h.marshal(buf)
	binary.Write(buf, binary.LittleEndian, startBlock)
	binary.Write(buf, binary.LittleEndian, fragIndex)
	binary.Write(buf, binary.LittleEndian, fragOffset)
	binary.Write(buf, binary.LittleEndian, fileSize)
	for _, sz := range blockSizes {
		binary.Write(buf, binary.LittleEndian, sz)
	}
	return buf.Bytes()
}

// marshalSymlinkInode encodes struct squashfs_symlink_inode. Hardlinks are
// a non-goal, so nlink is always 1.
func marshalSymlinkInode(h inodeHeader, target string) []byte {
	buf := &bytes.Buffer{}
	h.marshal(buf)
	binary.Write(buf, binary.LittleEndian, uint32(1))
	binary.Write(buf, binary.LittleEndian, uint32(len(target)))
	buf.WriteString(target)
	return buf.Bytes()
}

// dirInodeStartBlockOffset is the byte offset of the start_block field
// within a marshalDirInode record -- always right after the 16-byte
// inode_header -- used to locate the fix-up position recorded in §4.G.
const dirInodeStartBlockOffset = inodeHeaderSize

// marshalDirInode encodes struct squashfs_dir_inode. startBlock is written
// as a placeholder (typically 0) and patched once the directory table's
// compressed metablock layout is known (spec.md §4.I step 3).
func marshalDirInode(h inodeHeader, startBlock uint32, fileSize, offset uint16, parentInode uint32) []byte {
	buf := &bytes.Buffer{}
	h.marshal(buf)
	binary.Write(buf, binary.LittleEndian, startBlock)
	binary.Write(buf, binary.LittleEndian, uint32(2)) // nlink: self + parent's '..'
	binary.Write(buf, binary.LittleEndian, fileSize)
	binary.Write(buf, binary.LittleEndian, offset)
	binary.Write(buf, binary.LittleEndian, parentInode)
	return buf.Bytes()
}

// squashfsType maps a Node's kind to the on-disk inode type code.
func (k NodeKind) squashfsType() Type {
	switch k {
	case KindDir:
		return DirType
	case KindSymlink:
		return SymlinkType
	default:
		return FileType
	}
}
