package squashfs

import "io/fs"

// Type identifies the on-disk inode kind. opack only ever emits the
// three basic types below; the extended (X*) and device/fifo/socket
// types exist here so the wire layout matches the SquashFS 4.0 spec,
// but nothing in this package produces them.
type Type uint16

const (
	DirType     Type = iota + 1 // basic directory
	FileType                    // basic regular file
	SymlinkType                 // symbolic link
	BlockDevType
	CharDevType
	FifoType
	SocketType
	XDirType
	XFileType
	XSymlinkType
)

// Mode returns the fs.FileMode bit for this type, with no permission bits set.
func (t Type) Mode() fs.FileMode {
	switch t {
	case DirType, XDirType:
		return fs.ModeDir
	case FileType, XFileType:
		return 0
	case SymlinkType, XSymlinkType:
		return fs.ModeSymlink
	case BlockDevType:
		return fs.ModeDevice
	case CharDevType:
		return fs.ModeDevice | fs.ModeCharDevice
	case FifoType:
		return fs.ModeNamedPipe
	case SocketType:
		return fs.ModeSocket
	default:
		return fs.ModeIrregular
	}
}
