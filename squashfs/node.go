package squashfs

import "sort"

// NodeKind discriminates the three node variants the packer supports.
// Device, FIFO and socket inodes are explicitly out of scope (spec Non-goals).
type NodeKind uint8

const (
	KindFile NodeKind = iota + 1
	KindSymlink
	KindDir
)

// ScanNode is the tree shape the filesystem scanning layer hands to the
// image assembler -- the "Input contract to the image assembler" of
// spec.md §6. Leaves carry a provisional inode number assigned by a
// monotonic counter during the scan; directories carry theirs only once
// every descendant has been visited, so within a subtree a directory's
// provisional number is always the largest (spec.md §3, inode-numbering
// protocol, pass 1). This mirrors opack.c's nodeitem/accept_directory.
type ScanNode struct {
	Kind NodeKind
	Name string // base name; empty only for the root
	Ino  uint32 // provisional inode number (pass 1)

	// File
	SourcePath string
	Size       uint64

	// Symlink
	Target string // backslashes already normalized to '/'

	// Directory
	Children []*ScanNode
	Parent   *ScanNode // nil for the root
}

// Node is the post-renumbering representation the image assembler packs
// from (spec.md §3's "Node"). Unlike ScanNode its Ino is final: directories
// keep their pass-1 number, leaves have been shifted by the root's
// provisional number so every leaf inode in a subtree sorts above every
// directory inode in the same subtree.
type Node struct {
	Kind NodeKind
	Ino  uint32
	Name string

	SourcePath string
	Size       uint64

	Target string

	Children []*Node // sorted by Unicode code point, same order as Descs()
	Parent   *Node   // final-numbered parent, nil for the root
}

// ChildDesc is one entry of a directory's child list: {child_inode_number,
// child_type} from spec.md §3.
type ChildDesc struct {
	Ino  uint32
	Kind NodeKind
}

// Descs returns this directory's child descriptors, in the same order as Children.
func (n *Node) Descs() []ChildDesc {
	d := make([]ChildDesc, len(n.Children))
	for i, c := range n.Children {
		d[i] = ChildDesc{Ino: c.Ino, Kind: c.Kind}
	}
	return d
}

// BuildTree runs the pass-2 renumbering protocol over a scanner-built tree
// and returns the packing order the image assembler consumes: every node
// reachable from root, with every directory listed after all of its
// descendants (spec.md §3 invariant 2, §4.I "iterate nodes in reverse").
// The returned total is the node count recorded in the superblock's
// InodeCount field.
func BuildTree(root *ScanNode) (packOrder []*Node, rootNode *Node, total int) {
	rootNode, total = renumber(root)
	packOrder = flatten(rootNode)
	return
}

// renumber assigns final inode numbers (spec.md §3 pass 2): every leaf's
// provisional inode n becomes n+R, where R is the root's provisional inode
// number; directory numbers are kept as-is. Ported from opack.c's
// regenerate_inode_num, simplified by walking real parent/child pointers
// instead of opack.c's flat array + provisional->final lookup table (the
// lookup table existed only to work around C's flat nodeitem array).
func renumber(root *ScanNode) (*Node, int) {
	R := root.Ino
	count := 0

	var walk func(s *ScanNode, parent *Node) *Node
	walk = func(s *ScanNode, parent *Node) *Node {
		count++
		n := &Node{
			Kind:       s.Kind,
			Name:       s.Name,
			SourcePath: s.SourcePath,
			Size:       s.Size,
			Target:     s.Target,
			Parent:     parent,
		}
		if s.Kind == KindDir {
			n.Ino = s.Ino // directories keep their pass-1 number
			n.Children = make([]*Node, len(s.Children))
			for i, c := range s.Children {
				n.Children[i] = walk(c, n)
			}
			sortChildren(n)
		} else {
			n.Ino = s.Ino + R
		}
		return n
	}

	return walk(root, nil), count
}

// sortChildren orders a directory's children by Unicode code point
// comparison of their names (spec.md §3 invariant 3). Go's byte-wise string
// ordering agrees with code point order for well-formed UTF-8.
func sortChildren(dir *Node) {
	sort.Slice(dir.Children, func(i, j int) bool {
		return dir.Children[i].Name < dir.Children[j].Name
	})
}

// flatten returns every node in the pack order spec.md §4.I processes in
// reverse: for each directory, all its descendants come before the
// directory itself (post-order for directories, invariant 2).
func flatten(root *Node) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind == KindDir {
			for _, c := range n.Children {
				walk(c)
			}
		}
		out = append(out, n)
	}
	walk(root)
	return out
}
