package squashfs

import "encoding/binary"

// metaBlockSize is the maximum size of one metadata block (8 KiB), per the
// SquashFS 4.0 format and opack.c's MDB_SIZE.
const metaBlockSize = 8192

// frameMetablock compresses one slice (<=8192 bytes) and prepends the
// 2-byte little-endian frame header: the compressed length with the top
// bit clear, or the raw length with the top bit (0x8000) set when
// compression didn't shrink the block. Mirrors opack.c's compress_to_file
// for the ismeta=true case and the teacher's writeMetadataBlock.
func frameMetablock(slice []byte, comp Compressor) ([]byte, error) {
	compressed, err := comp(slice)
	header := make([]byte, 2)
	if err == nil && len(compressed) < len(slice) {
		binary.LittleEndian.PutUint16(header, uint16(len(compressed)))
		return append(header, compressed...), nil
	}
	binary.LittleEndian.PutUint16(header, uint16(len(slice))|0x8000)
	return append(header, slice...), nil
}

// writeMetablocks splits data into consecutive 8 KiB slices, frames each
// with frameMetablock and writes them to the image. If withIndex is set, it
// follows with a packed array of uint64 little-endian offsets (one per
// metablock, absolute file position of that block's header) and returns
// the offset that index array itself starts at -- the value stored in
// superblock fields like IdTableStart/FragTableStart, per the SquashFS
// "indirect table" convention. Ported from opack.c's compress_meta_blocks.
func (img *Image) writeMetablocks(data []byte, withIndex bool) (uint64, error) {
	var blockOffsets []uint64

	for len(data) > 0 {
		n := len(data)
		if n > metaBlockSize {
			n = metaBlockSize
		}
		if withIndex {
			blockOffsets = append(blockOffsets, img.offset)
		}
		framed, err := frameMetablock(data[:n], img.comp)
		if err != nil {
			return 0, err
		}
		if err := img.write(framed); err != nil {
			return 0, err
		}
		data = data[n:]
	}

	indexStart := img.offset
	if withIndex {
		idx := make([]byte, 8*len(blockOffsets))
		for i, o := range blockOffsets {
			binary.LittleEndian.PutUint64(idx[i*8:], o)
		}
		if err := img.write(idx); err != nil {
			return 0, err
		}
	}
	return indexStart, nil
}

// deferredMetablocks frames data into metablocks in memory rather than on
// the output file, returning the concatenated framed bytes plus, for each
// input metablock, the byte offset within that returned buffer at which its
// frame header begins. This is opack.c's pre_compress_meta_blocks: it lets
// the directory table builder (§4.G) learn where each directory's entry run
// will land *before* the table is actually written, so dir_inode.start_block
// fix-ups can be resolved against those in-buffer offsets and later added to
// the directory table's absolute file start.
func deferredMetablocks(data []byte, comp Compressor) ([]byte, []uint32, error) {
	out := newByteVec(metaBlockSize)
	var blockOffsets []uint32

	for len(data) > 0 {
		n := len(data)
		if n > metaBlockSize {
			n = metaBlockSize
		}
		blockOffsets = append(blockOffsets, uint32(out.Len()))
		framed, err := frameMetablock(data[:n], comp)
		if err != nil {
			return nil, nil, err
		}
		out.Append(framed)
		data = data[n:]
	}

	return out.Bytes(), blockOffsets, nil
}
