package squashfs

import "encoding/binary"

// fragEntry is one row of the in-memory fragment-entry table, struct
// squashfs_fragment_entry (unused is always zero).
type fragEntry struct {
	startBlock uint64
	size       uint32
}

func (e fragEntry) marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:], e.startBlock)
	binary.LittleEndian.PutUint32(buf[8:], e.size)
	return buf
}

// writeFragmentBlocks implements spec.md §4.H: split the accumulated
// fragment pool into blockSize chunks (the last may be shorter), compress
// each as a single bare block (no metablock framing) and write it to the
// image, recording one fragEntry per block. Called once, after every file
// in the tree has been packed.
func (img *Image) writeFragmentBlocks(t *tables) error {
	pool := t.fragPool.Bytes()
	for len(pool) > 0 {
		n := len(pool)
		if uint32(n) > img.blockSize {
			n = int(img.blockSize)
		}
		chunk := pool[:n]
		pool = pool[n:]

		pb, err := compressBlock(chunk, img.comp)
		if err != nil {
			return err
		}

		t.fragEntries = append(t.fragEntries, fragEntry{
			startBlock: img.offset,
			size:       pb.SizeField(),
		})

		if err := img.write(pb.Data); err != nil {
			return err
		}
	}
	return nil
}
