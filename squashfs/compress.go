package squashfs

import (
	"bytes"

	"github.com/klauspost/compress/zlib"
)

// Compressor is the pure byte-in/byte-out compression function the image
// assembler is built against. The codec itself is an external collaborator:
// nothing in this package cares how bytes get smaller, only that they do
// (or don't, in which case the caller falls back to storing them raw).
type Compressor func(block []byte) ([]byte, error)

// SquashComp identifies the compression algorithm recorded in the superblock.
// opack only ever writes ZlibComp; the others exist so the constant matches
// the SquashFS 4.0 spec.
type SquashComp uint16

const (
	ZlibComp SquashComp = 1
	LzmaComp SquashComp = 2
	LzoComp  SquashComp = 3
	XzComp   SquashComp = 4
	Lz4Comp  SquashComp = 5
	ZstdComp SquashComp = 6
)

// DefaultCompressor compresses a block with zlib at the best compression
// level, mirroring opack.c's compress2(..., Z_BEST_COMPRESSION). It uses
// klauspost/compress's zlib implementation, a drop-in for compress/zlib
// that the rest of this corpus (direktiv-vorteil, distr1-distri) already
// depends on for the same reason: meaningfully faster at the same ratio.
func DefaultCompressor(block []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(block); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
