package squashfs

import (
	"io"
	"runtime"
)

// defaultBlockSize is the data block size opack.c always used (128 KiB).
const defaultBlockSize = 131072

// Option configures an Image at construction time, the same functional
// options shape as the teacher's writer.go WriterOption.
type Option func(*Image) error

// WithBlockSize sets the data block size. It must be a non-zero power of
// two; the value is not checked. Without this option NewImage uses 128 KiB.
func WithBlockSize(n uint32) Option {
	return func(img *Image) error {
		img.blockSize = n
		return nil
	}
}

// WithCompression overrides the block/metablock compressor. The default is
// DefaultCompressor (zlib at best compression).
func WithCompression(id SquashComp, comp Compressor) Option {
	return func(img *Image) error {
		img.compID = id
		img.comp = comp
		return nil
	}
}

// WithWorkers bounds the number of data blocks compressed concurrently.
// The default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(img *Image) error {
		img.workers = n
		return nil
	}
}

// WithNoTailEnds controls whether the final partial block of a file at
// least one block long is written as a short last data block instead of
// being sent to the fragment pool. Files smaller than one block always go
// to the fragment pool. Default true, matching opack.c.
func WithNoTailEnds(v bool) Option {
	return func(img *Image) error {
		img.noTailEnds = v
		return nil
	}
}

// WithFlags ORs additional SquashFS superblock flags into the image, on
// top of the ones Image sets itself (Duplicates is always set, even
// though this packer never deduplicates identical files, see DESIGN.md).
func WithFlags(f Flags) Option {
	return func(img *Image) error {
		img.extraFlags |= f
		return nil
	}
}

// WithProgress registers a callback invoked with each regular file's
// source path as it's packed. There is no default; opack's CLI wires this
// to its -v flag (see SPEC_FULL.md's supplemented verbose-progress
// feature, grounded on opack.c's per-file printf lines).
func WithProgress(fn func(path string)) Option {
	return func(img *Image) error {
		img.progress = fn
		return nil
	}
}

// WithModTime overrides the super block's own build-time timestamp.
// Per-inode timestamps are a non-goal and stay zero regardless (see
// DESIGN.md); this only affects the single mkfs_time-equivalent field.
// Default is left at zero (epoch); callers that want reproducible images
// should leave it unset.
func WithModTime(t int32) Option {
	return func(img *Image) error {
		img.modTime = t
		return nil
	}
}

// Image is the assembler described in spec.md §4.I: it owns the running
// byte offset and sequences every other component (metablock framer, block
// pool, file/dir/fragment packers) to produce one finished SquashFS 4.0
// image. Content is staged into an in-memory buffer rather than seeked
// within the real output: the super block is the only section written
// after sections that follow it on disk, and spec.md §9's "back-patching
// without seeks" design note is extended to cover it the same way
// directory-inode fix-ups are handled, by rewriting bytes already held in
// memory rather than seeking the sink.
type Image struct {
	sink io.Writer
	buf  *byteVec

	offset uint64

	blockSize  uint32
	compID     SquashComp
	comp       Compressor
	workers    int
	noTailEnds bool
	extraFlags Flags
	modTime    int32
	progress   func(path string)

	finalized bool
}

// NewImage wraps sink, the destination the finished image is flushed to
// once Pack completes. opts are applied in order.
func NewImage(sink io.Writer, opts ...Option) (*Image, error) {
	img := &Image{
		sink:       sink,
		buf:        newByteVec(defaultBlockSize),
		blockSize:  defaultBlockSize,
		compID:     ZlibComp,
		comp:       DefaultCompressor,
		workers:    runtime.NumCPU(),
		noTailEnds: true,
	}
	for _, opt := range opts {
		if err := opt(img); err != nil {
			return nil, err
		}
	}
	if img.workers < 1 {
		img.workers = 1
	}
	return img, nil
}

// write appends p to the staging buffer and advances the running offset.
// Every write to the image goes through this method so offset bookkeeping
// never drifts from the buffer's length.
func (img *Image) write(p []byte) error {
	img.buf.Append(p)
	img.offset += uint64(len(p))
	return nil
}

// pad writes n zero bytes, used to align block-start offsets.
func (img *Image) pad(n int) error {
	if n <= 0 {
		return nil
	}
	return img.write(make([]byte, n))
}

// alignTo pads the image to the next multiple of n bytes.
func (img *Image) alignTo(n uint64) error {
	rem := img.offset % n
	if rem == 0 {
		return nil
	}
	return img.pad(int(n - rem))
}
