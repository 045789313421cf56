package squashfs

import "testing"

// buildScanTree mimics what internal/scan produces: a root directory with
// two leaves and one subdirectory holding one more leaf, numbered as pass 1
// would (leaves and directories share one monotonic counter, a directory's
// own number coming after all its children).
func buildScanTree() *ScanNode {
	root := &ScanNode{Kind: KindDir, Name: ""}

	a := &ScanNode{Kind: KindFile, Name: "a.txt", Ino: 1, Parent: root}
	b := &ScanNode{Kind: KindSymlink, Name: "b.link", Ino: 2, Parent: root}

	sub := &ScanNode{Kind: KindDir, Name: "sub", Parent: root}
	c := &ScanNode{Kind: KindFile, Name: "c.txt", Ino: 3, Parent: sub}
	sub.Children = []*ScanNode{c}
	sub.Ino = 4

	root.Children = []*ScanNode{a, b, sub}
	root.Ino = 5

	return root
}

func TestBuildTreeRenumbering(t *testing.T) {
	root := buildScanTree()
	packOrder, rootNode, total := BuildTree(root)

	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}

	// Directories keep their pass-1 numbers.
	if rootNode.Ino != 5 {
		t.Errorf("root ino = %d, want 5", rootNode.Ino)
	}

	var sub *Node
	for _, c := range rootNode.Children {
		if c.Kind == KindDir {
			sub = c
		}
	}
	if sub == nil {
		t.Fatal("no subdirectory found among root's children")
	}
	if sub.Ino != 4 {
		t.Errorf("sub ino = %d, want 4", sub.Ino)
	}

	// Leaves are shifted by R = root's provisional number (5).
	for _, c := range rootNode.Children {
		switch c.Name {
		case "a.txt":
			if c.Ino != 1+5 {
				t.Errorf("a.txt ino = %d, want %d", c.Ino, 1+5)
			}
		case "b.link":
			if c.Ino != 2+5 {
				t.Errorf("b.link ino = %d, want %d", c.Ino, 2+5)
			}
		}
	}
	if sub.Children[0].Ino != 3+5 {
		t.Errorf("c.txt ino = %d, want %d", sub.Children[0].Ino, 3+5)
	}

	// Pack order is post-order: every descendant of sub precedes sub,
	// and sub precedes root (the root is always last).
	if packOrder[len(packOrder)-1] != rootNode {
		t.Errorf("last packed node is not root")
	}
	posSub, posC := -1, -1
	for i, n := range packOrder {
		if n == sub {
			posSub = i
		}
		if n == sub.Children[0] {
			posC = i
		}
	}
	if posC >= posSub {
		t.Errorf("c.txt (pos %d) must precede its parent sub (pos %d)", posC, posSub)
	}
}

func TestSortChildrenOrdersByName(t *testing.T) {
	root := &ScanNode{Kind: KindDir, Name: "", Ino: 10}
	root.Children = []*ScanNode{
		{Kind: KindFile, Name: "zeta", Ino: 1, Parent: root},
		{Kind: KindFile, Name: "alpha", Ino: 2, Parent: root},
		{Kind: KindFile, Name: "mid", Ino: 3, Parent: root},
	}

	rootNode, _ := renumber(root)
	names := make([]string, len(rootNode.Children))
	for i, c := range rootNode.Children {
		names[i] = c.Name
	}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Children[%d] = %q, want %q (full: %v)", i, names[i], want[i], names)
		}
	}
}

func TestDescsMatchesChildren(t *testing.T) {
	root := buildScanTree()
	rootNode, _ := renumber(root)

	descs := rootNode.Descs()
	if len(descs) != len(rootNode.Children) {
		t.Fatalf("Descs() len = %d, want %d", len(descs), len(rootNode.Children))
	}
	for i, c := range rootNode.Children {
		if descs[i].Ino != c.Ino || descs[i].Kind != c.Kind {
			t.Errorf("Descs()[%d] = %+v, want {Ino:%d Kind:%d}", i, descs[i], c.Ino, c.Kind)
		}
	}
}

func TestFlattenEmptyRoot(t *testing.T) {
	root := &ScanNode{Kind: KindDir, Name: "", Ino: 1}
	packOrder, rootNode, total := BuildTree(root)
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if len(packOrder) != 1 || packOrder[0] != rootNode {
		t.Fatalf("packOrder = %v, want single root node", packOrder)
	}
}
