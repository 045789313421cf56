package squashfs

import "strings"

// Flags is the superblock's flags word (struct squashfs_super_block.flags).
type Flags uint16

const (
	UncompressedInodes Flags = 1 << iota
	UncompressedData
	Check
	UncompressedFragments
	NoFragments
	AlwaysFragments
	Duplicates
	Exportable
	UncompressedXattrs
	NoXattrs
	CompressorOptions
	UncompressedIds
)

func (f Flags) String() string {
	var opt []string
	for _, p := range []struct {
		f Flags
		s string
	}{
		{UncompressedInodes, "UNCOMPRESSED_INODES"},
		{UncompressedData, "UNCOMPRESSED_DATA"},
		{Check, "CHECK"},
		{UncompressedFragments, "UNCOMPRESSED_FRAGMENTS"},
		{NoFragments, "NO_FRAGMENTS"},
		{AlwaysFragments, "ALWAYS_FRAGMENTS"},
		{Duplicates, "DUPLICATES"},
		{Exportable, "EXPORTABLE"},
		{UncompressedXattrs, "UNCOMPRESSED_XATTRS"},
		{NoXattrs, "NO_XATTRS"},
		{CompressorOptions, "COMPRESSOR_OPTIONS"},
		{UncompressedIds, "UNCOMPRESSED_IDS"},
	} {
		if f&p.f != 0 {
			opt = append(opt, p.s)
		}
	}
	return strings.Join(opt, "|")
}

func (f Flags) Has(what Flags) bool {
	return f&what == what
}
