package squashfs

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"log"
)

// fixup records a directory inode's start_block field (already appended to
// the inode table with a zero placeholder) together with the directory
// table metablock index whose compressed offset must be written there once
// the directory table's layout is known (spec.md §4.I step 3).
type fixup struct {
	patchPos      int
	dirBlockIndex int
}

// tables holds the in-memory sections the reverse pack loop builds before
// any of them reach the image's output buffer (spec.md §3 "Running output
// state", §9 "back-patching without seeks").
type tables struct {
	inodeTable *byteVec
	dirTable   *byteVec
	fragPool   *byteVec

	inodeOffset map[uint32]uint32
	fixups      []fixup
	fragEntries []fragEntry

	rootInodeOffset uint32
}

// dropFromParent removes n from its parent directory's child list, spec.md
// §4.J's non-fatal leaf-open handling: the node is left out of its
// directory's entries entirely.
func dropFromParent(n *Node) {
	p := n.Parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			return
		}
	}
}

func newTables() *tables {
	return &tables{
		inodeTable:  newByteVec(metaBlockSize),
		dirTable:    newByteVec(metaBlockSize),
		fragPool:    newByteVec(defaultBlockSize),
		inodeOffset: make(map[uint32]uint32),
	}
}

// Pack implements spec.md §4.I: it walks root (built by the scanning
// layer), assembles every section of a SquashFS 4.0 image, and flushes the
// finished bytes to the Image's sink. src supplies the byte content of File
// nodes, addressed by Node.SourcePath.
func (img *Image) Pack(root *ScanNode, src fs.FS) error {
	if img.finalized {
		return ErrAlreadyFinalized
	}

	if err := img.pad(SuperblockSize); err != nil {
		return err
	}

	packOrder, rootNode, total := BuildTree(root)
	t := newTables()

	for _, n := range packOrder {
		switch n.Kind {
		case KindFile:
			if err := img.packFile(t, n, src); err != nil {
				if errors.Is(err, ErrLeafOpen) {
					log.Printf("opack: %v", err)
					dropFromParent(n)
					continue
				}
				return err
			}
		case KindSymlink:
			packSymlink(t, n)
		case KindDir:
			packDir(t, n)
		}
		if n == rootNode {
			t.rootInodeOffset = t.inodeOffset[n.Ino]
		}
	}

	if err := img.writeFragmentBlocks(t); err != nil {
		return err
	}

	framedDirTable, dirBlockOffsets, err := deferredMetablocks(t.dirTable.Bytes(), img.comp)
	if err != nil {
		return err
	}

	inodeRaw := t.inodeTable.Bytes()
	for _, fx := range t.fixups {
		binary.LittleEndian.PutUint32(inodeRaw[fx.patchPos:], dirBlockOffsets[fx.dirBlockIndex])
	}

	var sb Superblock
	sb.Magic = Magic
	sb.VMajor = 4
	sb.VMinor = 0
	sb.Comp = img.compID
	sb.BlockSize = img.blockSize
	sb.BlockLog = BlockLogFor(img.blockSize)
	sb.Flags = Duplicates | img.extraFlags
	sb.ModTime = img.modTime
	sb.IdCount = 1
	sb.InodeCount = uint32(total)
	sb.RootInode = uint64(t.rootInodeOffset)

	sb.InodeTableStart = img.offset
	if _, err := img.writeMetablocks(inodeRaw, false); err != nil {
		return err
	}

	sb.DirTableStart = img.offset
	if err := img.write(framedDirTable); err != nil {
		return err
	}

	if len(t.fragEntries) > 0 {
		fragRaw := make([]byte, 0, 16*len(t.fragEntries))
		for _, e := range t.fragEntries {
			fragRaw = append(fragRaw, e.marshal()...)
		}
		sb.FragCount = uint32(len(t.fragEntries))
		idx, err := img.writeMetablocks(fragRaw, true)
		if err != nil {
			return err
		}
		sb.FragTableStart = idx
	} else {
		sb.FragCount = 0xFFFFFFFF
	}

	idRaw := make([]byte, 4) // single uid=gid=0 entry
	idx, err := img.writeMetablocks(idRaw, true)
	if err != nil {
		return err
	}
	sb.IdTableStart = idx

	sb.XattrIdTableStart = 0xFFFFFFFFFFFFFFFF
	sb.LookupTableStart = 0xFFFFFFFFFFFFFFFF
	sb.BytesUsed = img.offset

	if err := img.alignTo(4096); err != nil {
		return err
	}

	sbBytes, err := sb.MarshalBinary()
	if err != nil {
		return err
	}
	copy(img.buf.Bytes()[0:SuperblockSize], sbBytes)

	if _, err := img.sink.Write(img.buf.Bytes()); err != nil {
		return err
	}

	img.finalized = true
	return nil
}
