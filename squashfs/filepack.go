package squashfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
)

// packFile implements spec.md §4.F: stream a regular file's data through
// the parallel block compressor, decide whether its tail becomes a final
// short data block or a fragment-pool entry, and append a reg_inode to the
// inode table. A failure to open the source file is non-fatal (§4.J,
// §7 LeafOpenError): the caller drops the node from its parent.
func (img *Image) packFile(t *tables, node *Node, src fs.FS) error {
	f, err := src.Open(node.SourcePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLeafOpen, node.SourcePath, err)
	}
	defer f.Close()

	size := node.Size
	bs := uint64(img.blockSize)
	full := size / bs
	tail := size % bs

	var blockCount uint64
	var useFragment bool
	if tail > 0 {
		if img.noTailEnds && size >= bs {
			blockCount = full + 1
		} else {
			blockCount = full
			useFragment = true
		}
	} else {
		blockCount = full
	}

	raws := make([][]byte, blockCount)
	for i := range raws {
		n := img.blockSize
		if !useFragment && uint64(i) == blockCount-1 && tail > 0 {
			n = uint32(tail)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("reading %s: %w", node.SourcePath, err)
		}
		raws[i] = buf
	}

	packed, err := compressBlocksParallel(context.Background(), raws, img.comp, img.workers)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", node.SourcePath, err)
	}

	blockSizes := make([]uint32, len(packed))
	for i, pb := range packed {
		blockSizes[i] = pb.SizeField()
	}

	fragment, fragOffset := uint32(0xFFFFFFFF), uint32(0)
	if useFragment {
		tailBuf := make([]byte, tail)
		if _, err := io.ReadFull(f, tailBuf); err != nil {
			return fmt.Errorf("reading tail of %s: %w", node.SourcePath, err)
		}
		fragment = uint32(t.fragPool.Len()) / img.blockSize
		fragOffset = uint32(t.fragPool.Len()) % img.blockSize
		t.fragPool.Append(tailBuf)
	}

	startBlock := uint32(img.offset)
	h := inodeHeader{Type: FileType, Number: node.Ino}
	rec := marshalRegInode(h, startBlock, fragment, fragOffset, uint32(size), blockSizes)
	t.inodeOffset[node.Ino] = uint32(t.inodeTable.Len())
	t.inodeTable.Append(rec)

	for _, pb := range packed {
		if err := img.write(pb.Data); err != nil {
			return err
		}
	}

	if img.progress != nil {
		img.progress(node.SourcePath)
	}
	return nil
}

// packSymlink implements spec.md §4's symlink subcase: a symlink_inode with
// the (already backslash-normalized) UTF-8 target appended inline.
func packSymlink(t *tables, node *Node) {
	h := inodeHeader{Type: SymlinkType, Number: node.Ino}
	t.inodeOffset[node.Ino] = uint32(t.inodeTable.Len())
	t.inodeTable.Append(marshalSymlinkInode(h, node.Target))
}
