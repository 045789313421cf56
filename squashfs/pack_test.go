package squashfs

import (
	"bytes"
	"encoding/binary"
	"testing"
	"testing/fstest"
)

func mustScanTree(fsys fstest.MapFS) *ScanNode {
	// Minimal hand-built scan tree mirroring what internal/scan would
	// produce for fsys, used here so this package's tests don't need to
	// import internal/scan (which itself imports this package).
	var counter uint32
	root := &ScanNode{Kind: KindDir}

	for name, f := range fsys {
		counter++
		root.Children = append(root.Children, &ScanNode{
			Kind:       KindFile,
			Name:       name,
			Ino:        counter,
			SourcePath: name,
			Size:       uint64(len(f.Data)),
			Parent:     root,
		})
	}
	counter++
	root.Ino = counter
	return root
}

func TestPackWritesMagic(t *testing.T) {
	fsys := fstest.MapFS{
		"a.txt": {Data: []byte("hello")},
	}
	root := mustScanTree(fsys)

	var buf bytes.Buffer
	img, err := NewImage(&buf)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := img.Pack(root, fsys); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	data := buf.Bytes()
	if len(data) < SuperblockSize {
		t.Fatalf("output too small: %d bytes", len(data))
	}
	if got := binary.LittleEndian.Uint32(data[:4]); got != Magic {
		t.Fatalf("magic = %x, want %x", got, Magic)
	}
}

func TestPackRejectsDoublePack(t *testing.T) {
	fsys := fstest.MapFS{}
	root := mustScanTree(fsys)

	var buf bytes.Buffer
	img, err := NewImage(&buf)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := img.Pack(root, fsys); err != nil {
		t.Fatalf("first Pack: %v", err)
	}
	if err := img.Pack(root, fsys); err != ErrAlreadyFinalized {
		t.Fatalf("second Pack error = %v, want ErrAlreadyFinalized", err)
	}
}

func TestPackDropsUnopenableLeaf(t *testing.T) {
	root := &ScanNode{Kind: KindDir}
	missing := &ScanNode{
		Kind:       KindFile,
		Name:       "gone.txt",
		Ino:        1,
		SourcePath: "gone.txt", // not present in the empty MapFS below
		Parent:     root,
	}
	present := &ScanNode{
		Kind:       KindFile,
		Name:       "here.txt",
		Ino:        2,
		SourcePath: "here.txt",
		Size:       2,
		Parent:     root,
	}
	root.Children = []*ScanNode{missing, present}
	root.Ino = 3

	fsys := fstest.MapFS{
		"here.txt": {Data: []byte("ok")},
	}

	var buf bytes.Buffer
	img, err := NewImage(&buf)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := img.Pack(root, fsys); err != nil {
		t.Fatalf("Pack should tolerate an unopenable leaf, got: %v", err)
	}
	var sb Superblock
	if err := sb.UnmarshalBinary(buf.Bytes()); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	data := buf.Bytes()
	h := binary.LittleEndian.Uint16(data[sb.DirTableStart:])
	start := sb.DirTableStart + 2
	listing := decompressOrRaw(t, h, data[start:start+uint64(h&^0x8000)])
	if !bytes.Contains(listing, []byte("here.txt")) || bytes.Contains(listing, []byte("gone.txt")) {
		t.Fatalf("expected gone.txt dropped from its directory listing, listing = %q", listing)
	}
}

func TestPackManyBlocksWithFragmentTail(t *testing.T) {
	fsys := fstest.MapFS{
		"big.bin": {Data: bytes.Repeat([]byte{0x5}, 131072*3+42)},
	}
	root := mustScanTree(fsys)

	var buf bytes.Buffer
	img, err := NewImage(&buf, WithNoTailEnds(false))
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if err := img.Pack(root, fsys); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("no data written")
	}

	var sb Superblock
	if err := sb.UnmarshalBinary(buf.Bytes()); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if sb.FragCount != 1 {
		t.Fatalf("FragCount = %d, want 1 (tail spilled to fragment pool)", sb.FragCount)
	}
}
