package squashfs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// packedBlock is one compressed (or stored raw) data block, ready to be
// written to the image. Data is exactly what lands on disk; the 24-bit
// size field opack.c packs alongside it is derived with SizeField.
type packedBlock struct {
	Data         []byte
	Uncompressed bool
}

// SizeField returns the on-disk block-size word: the byte length of Data,
// with bit 24 (0x1000000) set when the block is stored uncompressed
// (SquashFS 4.0 data block size field).
func (b packedBlock) SizeField() uint32 {
	n := uint32(len(b.Data))
	if b.Uncompressed {
		n |= 0x1000000
	}
	return n
}

// compressBlock compresses raw with comp, falling back to storing it
// uncompressed when compression doesn't shrink it -- every block (data,
// fragment, or metablock interior) in this format makes that same choice.
func compressBlock(raw []byte, comp Compressor) (packedBlock, error) {
	compressed, err := comp(raw)
	if err != nil {
		return packedBlock{Data: raw, Uncompressed: true}, nil
	}
	if len(compressed) >= len(raw) {
		return packedBlock{Data: raw, Uncompressed: true}, nil
	}
	return packedBlock{Data: compressed}, nil
}

// compressBlocksParallel compresses each of blocks, bounding concurrency to
// workers while preserving submission order in the returned slice. This is
// opack.c's compresstask/compresstask_proc worker pool (there, Windows
// threads pulling off a task queue; here, a bounded errgroup), which spec.md
// §5 requires: blocks may finish compressing out of order, but must be
// written to the image in the order they were submitted.
func compressBlocksParallel(ctx context.Context, blocks [][]byte, comp Compressor, workers int) ([]packedBlock, error) {
	out := make([]packedBlock, len(blocks))
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)

	for i, raw := range blocks {
		i, raw := i, raw
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		g.Go(func() error {
			defer func() { <-sem }()
			pb, err := compressBlock(raw, comp)
			if err != nil {
				return err
			}
			out[i] = pb
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
