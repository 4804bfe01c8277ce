package device

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := Create(path, 8); err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: unexpected err: %v", err)
	}
	if wanted := int64(8 * BlockSize); info.Size() != wanted {
		t.Fatalf("device size: wanted `%d`; found `%d`", wanted, info.Size())
	}

	if err := Create(path, 8); !errors.Is(err, DeviceExistsErr) {
		t.Fatalf("Create(): wanted `%v`; found `%v`", DeviceExistsErr, err)
	}
}

func TestMountMissing(t *testing.T) {
	var d Device
	if err := d.Mount(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Mount(): wanted error; found `nil`")
	}
	if d.Mounted() {
		t.Fatal("Mounted(): wanted `false`; found `true`")
	}
}

func TestReadWriteBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := Create(path, 4); err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}

	var d Device
	if err := d.Mount(path); err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	defer d.Unmount()

	var input, found [BlockSize]byte
	copy(input[:], "hello, block")
	if err := d.WriteBlock(3, &input); err != nil {
		t.Fatalf("WriteBlock(): unexpected err: %v", err)
	}
	if err := d.ReadBlock(3, &found); err != nil {
		t.Fatalf("ReadBlock(): unexpected err: %v", err)
	}
	if !bytes.Equal(input[:], found[:]) {
		t.Fatalf("ReadBlock(): wanted `%q`; found `%q`", input[:12], found[:12])
	}

	// the device only has 4 blocks
	if err := d.ReadBlock(4, &found); !errors.Is(err, IOFailureErr) {
		t.Fatalf("ReadBlock(4): wanted `%v`; found `%v`", IOFailureErr, err)
	}
}

func TestUnmountIdempotent(t *testing.T) {
	var d Device
	if err := d.MountVolume("mem", io.NewBuffer(make([]byte, BlockSize))); err != nil {
		t.Fatalf("MountVolume(): unexpected err: %v", err)
	}
	if err := d.Unmount(); err != nil {
		t.Fatalf("Unmount(): unexpected err: %v", err)
	}
	if err := d.Unmount(); err != nil {
		t.Fatalf("second Unmount(): unexpected err: %v", err)
	}

	var buf [BlockSize]byte
	if err := d.ReadBlock(0, &buf); !errors.Is(err, NotMountedErr) {
		t.Fatalf("ReadBlock(): wanted `%v`; found `%v`", NotMountedErr, err)
	}
}
