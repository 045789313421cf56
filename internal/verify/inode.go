package verify

import "encoding/binary"

type inodeHeader struct {
	typ    uint16
	number uint32
}

func parseInodeHeader(b []byte) inodeHeader {
	return inodeHeader{
		typ:    binary.LittleEndian.Uint16(b[0:]),
		number: binary.LittleEndian.Uint32(b[12:]),
	}
}

type regInode struct {
	startBlock uint32
	fragment   uint32
	fragOffset uint32
	fileSize   uint32
	blockSizes []uint32
}

// parseRegInode decodes struct squashfs_reg_inode. blockSize is needed to
// derive the trailing blocks[] array length, the same arithmetic the writer
// used to decide it (squashfs.packFile).
func parseRegInode(b []byte, blockSize uint32) regInode {
	reg := regInode{
		startBlock: binary.LittleEndian.Uint32(b[16:]),
		fragment:   binary.LittleEndian.Uint32(b[20:]),
		fragOffset: binary.LittleEndian.Uint32(b[24:]),
		fileSize:   binary.LittleEndian.Uint32(b[28:]),
	}

	full := reg.fileSize / blockSize
	tail := reg.fileSize % blockSize
	var count uint32
	if reg.fragment == 0xFFFFFFFF {
		if tail > 0 {
			count = full + 1
		} else {
			count = full
		}
	} else {
		count = full
	}

	reg.blockSizes = make([]uint32, count)
	for i := range reg.blockSizes {
		reg.blockSizes[i] = binary.LittleEndian.Uint32(b[32+i*4:])
	}
	return reg
}

type symlinkInode struct {
	target string
}

func parseSymlinkInode(b []byte) symlinkInode {
	size := binary.LittleEndian.Uint32(b[20:])
	return symlinkInode{target: string(b[24 : 24+size])}
}

type dirInode struct {
	startBlock  uint32
	fileSize    uint16
	offset      uint16
	parentInode uint32
}

func parseDirInode(b []byte) dirInode {
	return dirInode{
		startBlock:  binary.LittleEndian.Uint32(b[16:]),
		fileSize:    binary.LittleEndian.Uint16(b[24:]),
		offset:      binary.LittleEndian.Uint16(b[26:]),
		parentInode: binary.LittleEndian.Uint32(b[28:]),
	}
}

type dirHeaderRec struct {
	count       uint32
	startBlock  uint32
	inodeNumber uint32
}

func parseDirHeaderBytes(b []byte) dirHeaderRec {
	return dirHeaderRec{
		count:       binary.LittleEndian.Uint32(b[0:]),
		startBlock:  binary.LittleEndian.Uint32(b[4:]),
		inodeNumber: binary.LittleEndian.Uint32(b[8:]),
	}
}

type dirEntryRec struct {
	offset     uint16
	inodeDelta int16
	typ        uint16
	name       string
}

// parseDirEntryBytes decodes one squashfs_dir_entry and returns it plus the
// total byte length it occupied (for the caller to advance past).
func parseDirEntryBytes(b []byte) (dirEntryRec, int) {
	size := binary.LittleEndian.Uint16(b[6:])
	nameLen := int(size) + 1
	e := dirEntryRec{
		offset:     binary.LittleEndian.Uint16(b[0:]),
		inodeDelta: int16(binary.LittleEndian.Uint16(b[2:])),
		typ:        binary.LittleEndian.Uint16(b[4:]),
		name:       string(b[8 : 8+nameLen]),
	}
	return e, 8 + nameLen
}
