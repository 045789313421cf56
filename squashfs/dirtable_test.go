package squashfs

import "testing"

func makeChildren(n int, startIno uint32) []*Node {
	out := make([]*Node, n)
	for i := range out {
		out[i] = &Node{Kind: KindFile, Ino: startIno + uint32(i), Name: "f"}
	}
	return out
}

func TestSplitDirRunsCountLimit(t *testing.T) {
	children := makeChildren(300, 1)
	runs := splitDirRuns(children)
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2 (300 children, cap 256)", len(runs))
	}
	if len(runs[0]) != 256 {
		t.Errorf("first run len = %d, want 256", len(runs[0]))
	}
	if len(runs[1]) != 44 {
		t.Errorf("second run len = %d, want 44", len(runs[1]))
	}
}

func TestSplitDirRunsDeltaOverflow(t *testing.T) {
	children := []*Node{
		{Kind: KindFile, Ino: 1, Name: "a"},
		{Kind: KindFile, Ino: 2, Name: "b"},
		{Kind: KindFile, Ino: 70000, Name: "c"}, // delta from 1 exceeds int16 range
	}
	runs := splitDirRuns(children)
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if len(runs[0]) != 2 || len(runs[1]) != 1 {
		t.Fatalf("run sizes = %d,%d want 2,1", len(runs[0]), len(runs[1]))
	}
}

func TestSplitDirRunsEmpty(t *testing.T) {
	if runs := splitDirRuns(nil); runs != nil {
		t.Fatalf("splitDirRuns(nil) = %v, want nil", runs)
	}
}

func TestDirListingSizeSingleRun(t *testing.T) {
	children := []*Node{
		{Kind: KindFile, Ino: 1, Name: "abc"},
		{Kind: KindFile, Ino: 2, Name: "de"},
	}
	runs := splitDirRuns(children)
	got := dirListingSize(runs)
	want := dirHeaderSize + (dirEntryBaseSize + 3) + (dirEntryBaseSize + 2)
	if got != want {
		t.Fatalf("dirListingSize = %d, want %d", got, want)
	}
}

func TestDirListingSizeMultiRun(t *testing.T) {
	children := makeChildren(300, 1)
	runs := splitDirRuns(children)
	got := dirListingSize(runs)
	want := 2*dirHeaderSize + 300*(dirEntryBaseSize+1)
	if got != want {
		t.Fatalf("dirListingSize = %d, want %d", got, want)
	}
}

func TestPackDirEmptyDirectory(t *testing.T) {
	tb := newTables()
	node := &Node{Kind: KindDir, Ino: 1, Name: ""}
	packDir(tb, node)

	if tb.inodeTable.Len() == 0 {
		t.Fatal("packDir wrote nothing to the inode table")
	}
	if tb.dirTable.Len() != 0 {
		t.Fatalf("dirTable should stay empty for a childless directory, got %d bytes", tb.dirTable.Len())
	}
	if _, ok := tb.inodeOffset[1]; !ok {
		t.Fatal("packDir did not record an inode offset for the directory")
	}
}

func TestPackDirWithChildrenWritesListing(t *testing.T) {
	tb := newTables()

	child := &Node{Kind: KindFile, Ino: 2, Name: "file.txt"}
	tb.inodeOffset[2] = 0 // pretend the file was already packed

	parent := &Node{Kind: KindDir, Ino: 3, Name: "dir", Children: []*Node{child}}
	child.Parent = parent

	packDir(tb, parent)

	if tb.dirTable.Len() == 0 {
		t.Fatal("expected a dir_header+dir_entry run to be written")
	}
	if len(tb.fixups) != 1 {
		t.Fatalf("expected one fixup for the directory's own start_block, got %d", len(tb.fixups))
	}
}
