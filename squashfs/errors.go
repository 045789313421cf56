package squashfs

import "errors"

// Package-specific sentinel errors, usable with errors.Is.
var (
	// ErrUsage is returned for a malformed CLI invocation.
	ErrUsage = errors.New("usage: opack <input_directory> <output_file>")

	// ErrInvalidFile is returned when the output (or an image being
	// verified) does not start with the SquashFS magic number.
	ErrInvalidFile = errors.New("invalid file, squashfs signature not found")

	// ErrInvalidSuper is returned when there are fewer than SuperblockSize
	// bytes available to decode a superblock from.
	ErrInvalidSuper = errors.New("invalid squashfs superblock")

	// ErrLeafOpen is wrapped around a failure to open a regular file for
	// reading. It is non-fatal: the leaf is dropped from its parent
	// directory and packing continues.
	ErrLeafOpen = errors.New("could not open leaf for reading")

	// ErrAlreadyFinalized is returned by Pack when the Image has already
	// been packed successfully.
	ErrAlreadyFinalized = errors.New("image already finalized")
)
