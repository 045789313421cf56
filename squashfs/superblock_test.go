package squashfs

import "testing"

func TestSuperblockRoundTrip(t *testing.T) {
	sb := Superblock{
		Magic:           Magic,
		InodeCount:      42,
		ModTime:         1000,
		BlockSize:       131072,
		FragCount:       0xFFFFFFFF,
		Comp:            ZlibComp,
		BlockLog:        17,
		Flags:           Duplicates,
		IdCount:         1,
		VMajor:          4,
		VMinor:          0,
		RootInode:       12345,
		BytesUsed:       999999,
		InodeTableStart: 96,
		DirTableStart:   500,
	}

	data, err := sb.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(data) != SuperblockSize {
		t.Fatalf("marshaled size = %d, want %d", len(data), SuperblockSize)
	}

	var got Superblock
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != sb {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, sb)
	}
}

func TestSuperblockUnmarshalRejectsBadMagic(t *testing.T) {
	data := make([]byte, SuperblockSize)
	var got Superblock
	err := got.UnmarshalBinary(data)
	if err != ErrInvalidFile {
		t.Fatalf("err = %v, want ErrInvalidFile", err)
	}
}

func TestSuperblockUnmarshalRejectsShortInput(t *testing.T) {
	var got Superblock
	err := got.UnmarshalBinary(make([]byte, 10))
	if err != ErrInvalidSuper {
		t.Fatalf("err = %v, want ErrInvalidSuper", err)
	}
}

func TestBlockLogFor(t *testing.T) {
	cases := []struct {
		size uint32
		log  uint16
	}{
		{131072, 17},
		{4096, 12},
		{65536, 16},
	}
	for _, c := range cases {
		if got := BlockLogFor(c.size); got != c.log {
			t.Errorf("BlockLogFor(%d) = %d, want %d", c.size, got, c.log)
		}
	}
}
