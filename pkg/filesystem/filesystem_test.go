package filesystem

import (
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/weberc2/blockfs/pkg/device"
	"github.com/weberc2/blockfs/pkg/object"
	. "github.com/weberc2/blockfs/pkg/types"
)

func mount(t *testing.T) *FileSystem {
	t.Helper()
	config := DefaultConfig("memory")
	fs, err := Mount(device.NewMemory("memory", DeviceBlocks), DeviceBlocks, &config)
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	return fs
}

func mustOpen(t *testing.T, fs *FileSystem, path string) Handle {
	t.Helper()
	h, err := fs.Open(path)
	if err != nil {
		t.Fatalf("Open(%s): unexpected err: %v", path, err)
	}
	return h
}

func TestBootstrap(t *testing.T) {
	fs := mount(t)

	root := mustOpen(t, fs, "/")
	if root != RootHandle {
		t.Fatalf("Open(/): wanted `%d`; found `%d`", RootHandle, root)
	}
	names, err := fs.List(root)
	if err != nil {
		t.Fatalf("List(/): unexpected err: %v", err)
	}
	if wanted := []string{"home"}; !reflect.DeepEqual(names, wanted) {
		t.Fatalf("List(/): wanted `%v`; found `%v`", wanted, names)
	}

	md, err := fs.Stat(root)
	if err != nil {
		t.Fatalf("Stat(/): unexpected err: %v", err)
	}
	if md.Type != ElementTypeDirectory || md.Owner != 0 || md.Permissions != 0x22 {
		t.Fatalf("Stat(/): found `%+v`", md)
	}

	h := mustOpen(t, fs, "/home/default/")
	md, err = fs.Stat(h)
	if err != nil {
		t.Fatalf("Stat(/home/default): unexpected err: %v", err)
	}
	if md.Permissions != 0x66 {
		t.Fatalf("Stat(/home/default): wanted perms `0x66`; found `%#x`", md.Permissions)
	}
	if path, _ := fs.Path(h); path != "/home/default" {
		t.Fatalf("Path(): wanted `/home/default`; found `%s`", path)
	}
}

func TestWriteCloseReopenRead(t *testing.T) {
	fs := mount(t)
	if err := fs.Add("/home/default/file1", ElementTypeFile, 1000, 0x66); err != nil {
		t.Fatalf("Add(): unexpected err: %v", err)
	}

	h := mustOpen(t, fs, "/home/default/file1")
	if n, err := fs.Write(h, 0, []byte("abc")); err != nil || n != 3 {
		t.Fatalf("Write(): wanted `3`; found `%d` (%v)", n, err)
	}
	if err := fs.Close(h); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}
	if found := fs.openCount("/home/default/file1"); found != 0 {
		t.Fatalf("openCount(): wanted `0` after close; found `%d`", found)
	}

	h = mustOpen(t, fs, "/home/default/file1")
	buf := make([]byte, 3)
	n, err := fs.Read(h, 0, buf)
	if err != nil {
		t.Fatalf("Read(): unexpected err: %v", err)
	}
	if found := string(buf[:n]); found != "abc" {
		t.Fatalf("Read(): wanted `abc`; found `%s`", found)
	}
}

func TestOpenFileBacked(t *testing.T) {
	config := DefaultConfig(filepath.Join(t.TempDir(), "disk.img"))
	fs, err := Open(config)
	if err != nil {
		t.Fatalf("Open(): unexpected err: %v", err)
	}
	if err := fs.Add("/home/default/notes", ElementTypeFile, 1, 0x66); err != nil {
		t.Fatalf("Add(): unexpected err: %v", err)
	}
	h := mustOpen(t, fs, "/home/default/notes")
	if _, err := fs.Write(h, 0, []byte("persisted")); err != nil {
		t.Fatalf("Write(): unexpected err: %v", err)
	}
	free := fs.FreeBlockCount()
	if err := fs.Unmount(); err != nil {
		t.Fatalf("Unmount(): unexpected err: %v", err)
	}

	fs, err = Open(config)
	if err != nil {
		t.Fatalf("Open(): reopening: unexpected err: %v", err)
	}
	defer fs.Unmount()

	if found := fs.FreeBlockCount(); found != free {
		t.Fatalf("FreeBlockCount(): wanted `%d`; found `%d`", free, found)
	}
	if found := fs.FreeSpace(); found != Byte(free)*BlockSize {
		t.Fatalf("FreeSpace(): wanted `%d`; found `%d`", Byte(free)*BlockSize, found)
	}
	h = mustOpen(t, fs, "/home/default/notes")
	buf := make([]byte, 64)
	n, err := fs.Read(h, 0, buf)
	if err != nil {
		t.Fatalf("Read(): unexpected err: %v", err)
	}
	if found := string(buf[:n]); found != "persisted" {
		t.Fatalf("Read(): wanted `persisted`; found `%s`", found)
	}
}

func TestRootNeverEvicted(t *testing.T) {
	fs := mount(t)
	for i := 0; i < 3; i++ {
		h := mustOpen(t, fs, "/")
		if err := fs.Close(h); err != nil {
			t.Fatalf("Close(/): unexpected err: %v", err)
		}
	}
	if _, err := fs.List(RootHandle); err != nil {
		t.Fatalf("List(/): unexpected err: %v", err)
	}
}

func TestAddThenOpen(t *testing.T) {
	type testCase struct {
		name string
		path string
		et   ElementType
	}

	for _, tc := range []testCase{
		{name: "file", path: "/home/default/f", et: ElementTypeFile},
		{name: "directory", path: "/home/default/d", et: ElementTypeDirectory},
		{name: "at root", path: "/tmp", et: ElementTypeDirectory},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fs := mount(t)
			if err := fs.Add(tc.path, tc.et, 5, 0x66); err != nil {
				t.Fatalf("Add(): unexpected err: %v", err)
			}
			h := mustOpen(t, fs, tc.path)
			et, err := fs.Type(h)
			if err != nil {
				t.Fatalf("Type(): unexpected err: %v", err)
			}
			if et != tc.et {
				t.Fatalf("Type(): wanted `%s`; found `%s`", tc.et, et)
			}
			md, err := fs.Stat(h)
			if err != nil {
				t.Fatalf("Stat(): unexpected err: %v", err)
			}
			if md.Owner != 5 {
				t.Fatalf("Stat(): wanted owner `5`; found `%d`", md.Owner)
			}

			if et == ElementTypeFile {
				if md.Size != 0 {
					t.Fatalf("Stat(): wanted size `0`; found `%d`", md.Size)
				}
				return
			}
			names, err := fs.List(h)
			if err != nil {
				t.Fatalf("List(): unexpected err: %v", err)
			}
			if len(names) != 0 {
				t.Fatalf("List(): wanted no entries; found `%v`", names)
			}
		})
	}
}

func TestRemoveRecursive(t *testing.T) {
	fs := mount(t)
	free := fs.FreeBlockCount()

	for _, c := range []struct {
		path string
		et   ElementType
	}{
		{"/a", ElementTypeDirectory},
		{"/a/b", ElementTypeDirectory},
		{"/a/b/c", ElementTypeFile},
		{"/a/d", ElementTypeFile},
	} {
		if err := fs.Add(c.path, c.et, 0, 0); err != nil {
			t.Fatalf("Add(%s): unexpected err: %v", c.path, err)
		}
	}
	c := mustOpen(t, fs, "/a/b/c")
	if _, err := fs.Write(c, 0, make([]byte, 2000)); err != nil {
		t.Fatalf("Write(): unexpected err: %v", err)
	}

	if err := fs.Remove("/a"); err != nil {
		t.Fatalf("Remove(/a): unexpected err: %v", err)
	}

	for _, path := range []string{"/a", "/a/b", "/a/b/c", "/a/d"} {
		if _, err := fs.Open(path); !errors.Is(err, NotFoundErr) {
			t.Fatalf("Open(%s): wanted `%v`; found `%v`", path, NotFoundErr, err)
		}
	}
	if _, err := fs.Read(c, 0, make([]byte, 1)); !errors.Is(err, InvalidHandleErr) {
		t.Fatalf("Read(): wanted `%v`; found `%v`", InvalidHandleErr, err)
	}
	if found := fs.FreeBlockCount(); found != free {
		t.Fatalf("FreeBlockCount(): wanted `%d`; found `%d`", free, found)
	}
	if names, _ := fs.List(RootHandle); !reflect.DeepEqual(names, []string{"home"}) {
		t.Fatalf("List(/): wanted `[home]`; found `%v`", names)
	}
}

func TestRemoveReleasesAncestors(t *testing.T) {
	fs := mount(t)
	if err := fs.Add("/home/default/f", ElementTypeFile, 0, 0); err != nil {
		t.Fatalf("Add(): unexpected err: %v", err)
	}
	mustOpen(t, fs, "/home/default/f")
	mustOpen(t, fs, "/home/default/f")
	if found := fs.openCount("/home"); found != 2 {
		t.Fatalf("openCount(/home): wanted `2`; found `%d`", found)
	}

	if err := fs.Remove("/home/default/f"); err != nil {
		t.Fatalf("Remove(): unexpected err: %v", err)
	}
	for _, path := range []string{"/home", "/home/default", "/home/default/f"} {
		if found := fs.openCount(path); found != 0 {
			t.Fatalf("openCount(%s): wanted `0`; found `%d`", path, found)
		}
	}
}

func TestRemoveRoot(t *testing.T) {
	fs := mount(t)
	if err := fs.Remove("/"); !errors.Is(err, RootRemovalErr) {
		t.Fatalf("Remove(/): wanted `%v`; found `%v`", RootRemovalErr, err)
	}
}

func TestErrors(t *testing.T) {
	fs := mount(t)
	if err := fs.Add("/home/default/file1", ElementTypeFile, 0, 0); err != nil {
		t.Fatalf("Add(): unexpected err: %v", err)
	}

	type testCase struct {
		name      string
		call      func() error
		wantErr   error
		lastError string
	}

	file := mustOpen(t, fs, "/home/default/file1")
	home := mustOpen(t, fs, "/home")

	for _, tc := range []testCase{
		{
			name:      "empty path",
			call:      func() error { _, err := fs.Open(""); return err },
			wantErr:   InvalidPathErr,
			lastError: `"" is not a valid path`,
		},
		{
			name:      "relative path",
			call:      func() error { _, err := fs.Open("home"); return err },
			wantErr:   InvalidPathErr,
			lastError: `"home" is not a valid path`,
		},
		{
			name:      "doubled separator",
			call:      func() error { _, err := fs.Open("/home//default"); return err },
			wantErr:   InvalidPathErr,
			lastError: `"/home//default" is not a valid path`,
		},
		{
			name:      "missing",
			call:      func() error { _, err := fs.Open("/home/nope"); return err },
			wantErr:   NotFoundErr,
			lastError: "/home/nope does not exist",
		},
		{
			name: "file as directory",
			call: func() error {
				_, err := fs.Open("/home/default/file1/x")
				return err
			},
			wantErr:   NotADirErr,
			lastError: "/home/default/file1 is not a directory",
		},
		{
			name: "trailing separator on file",
			call: func() error {
				_, err := fs.Open("/home/default/file1/")
				return err
			},
			wantErr:   NotADirErr,
			lastError: "/home/default/file1 is not a directory",
		},
		{
			name:      "list file",
			call:      func() error { _, err := fs.List(file); return err },
			wantErr:   NotADirErr,
			lastError: "/home/default/file1 is not a directory",
		},
		{
			name: "read directory",
			call: func() error {
				_, err := fs.Read(home, 0, make([]byte, 1))
				return err
			},
			wantErr:   NotAFileErr,
			lastError: "/home is not a file",
		},
		{
			name: "duplicate add",
			call: func() error {
				return fs.Add("/home/default/file1", ElementTypeDirectory, 0, 0)
			},
			wantErr:   AlreadyExistsErr,
			lastError: "/home/default/file1 already exists",
		},
		{
			name: "add under missing parent",
			call: func() error {
				return fs.Add("/nope/file", ElementTypeFile, 0, 0)
			},
			wantErr:   NotFoundErr,
			lastError: "/nope does not exist",
		},
		{
			name:      "close unknown handle",
			call:      func() error { return fs.Close(Handle(999)) },
			wantErr:   InvalidHandleErr,
			lastError: "closing handle `999`: invalid handle",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("wanted `%v`; found `%v`", tc.wantErr, err)
			}
			if found := fs.LastError(); found != tc.lastError {
				t.Fatalf(
					"LastError(): wanted `%s`; found `%s`",
					tc.lastError,
					found,
				)
			}
		})
	}
}

func TestCloseRefcounts(t *testing.T) {
	fs := mount(t)
	first := mustOpen(t, fs, "/home/default")
	second := mustOpen(t, fs, "/home/default")
	if first != second {
		t.Fatalf("Open(): wanted same handle; found `%d` and `%d`", first, second)
	}
	if found := fs.openCount("/home"); found != 2 {
		t.Fatalf("openCount(/home): wanted `2`; found `%d`", found)
	}

	if err := fs.Close(first); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}
	if found := fs.openCount("/home/default"); found != 1 {
		t.Fatalf("openCount(/home/default): wanted `1`; found `%d`", found)
	}
	if err := fs.Close(second); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}
	if found := fs.openCount("/home"); found != 0 {
		t.Fatalf("openCount(/home): wanted `0`; found `%d`", found)
	}
	if err := fs.Close(first); !errors.Is(err, InvalidHandleErr) {
		t.Fatalf("Close(): wanted `%v`; found `%v`", InvalidHandleErr, err)
	}
}

func TestOpenUnwinds(t *testing.T) {
	fs := mount(t)
	if _, err := fs.Open("/home/default/missing/deeper"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Open(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	for _, path := range []string{"/home", "/home/default"} {
		if found := fs.openCount(path); found != 0 {
			t.Fatalf("openCount(%s): wanted `0`; found `%d`", path, found)
		}
	}
}

func TestConcurrentOpenClose(t *testing.T) {
	fs := mount(t)
	if err := fs.Add("/home/default/shared", ElementTypeFile, 0, 0); err != nil {
		t.Fatalf("Add(): unexpected err: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				h, err := fs.Open("/home/default/shared")
				if err != nil {
					t.Errorf("Open(): unexpected err: %v", err)
					return
				}
				if _, err := fs.Read(h, 0, make([]byte, 8)); err != nil {
					t.Errorf("Read(): unexpected err: %v", err)
				}
				if err := fs.Close(h); err != nil {
					t.Errorf("Close(): unexpected err: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	for _, path := range []string{"/home", "/home/default", "/home/default/shared"} {
		if found := fs.openCount(path); found != 0 {
			t.Fatalf("openCount(%s): wanted `0`; found `%d`", path, found)
		}
	}
}

// A walk takes the table lock once per component, so a remove landing
// between two steps invalidates the directory the walk is standing on.
func TestRemoveDuringWalk(t *testing.T) {
	fs := mount(t)
	home, err := fs.step(RootHandle, nil, "home")
	if err != nil {
		t.Fatalf("step(home): unexpected err: %v", err)
	}

	if err := fs.Remove("/home"); err != nil {
		t.Fatalf("Remove(/home): unexpected err: %v", err)
	}

	_, err = fs.step(home, []string{"home"}, "default")
	if !errors.Is(err, NotFoundErr) {
		t.Fatalf("step(default): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if found := err.Error(); found != "/home does not exist" {
		t.Fatalf("step(default): wanted `/home does not exist`; found `%s`", found)
	}
}

func TestRemoveDestroysOpenObject(t *testing.T) {
	fs := mount(t)
	if err := fs.Add("/home/default/f", ElementTypeFile, 0, 0); err != nil {
		t.Fatalf("Add(): unexpected err: %v", err)
	}
	h := mustOpen(t, fs, "/home/default/f")
	if _, err := fs.Write(h, 0, []byte("abc")); err != nil {
		t.Fatalf("Write(): unexpected err: %v", err)
	}
	e, err := fs.lookup(h)
	if err != nil {
		t.Fatalf("lookup(): unexpected err: %v", err)
	}
	file := e.object.(*object.File)

	if err := fs.Remove("/home/default"); err != nil {
		t.Fatalf("Remove(/home/default): unexpected err: %v", err)
	}
	free := fs.FreeBlockCount()

	// a writer that still holds the object must not reach the freed blocks
	if _, err := file.Write(0, make([]byte, 1000)); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Write(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if _, err := file.Read(0, make([]byte, 1)); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Read(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if found := fs.FreeBlockCount(); found != free {
		t.Fatalf("FreeBlockCount(): wanted `%d`; found `%d`", free, found)
	}
}

func TestTrailingSeparatorRequiresDirectory(t *testing.T) {
	fs := mount(t)
	if err := fs.Add("/home/default/f", ElementTypeFile, 0, 0); err != nil {
		t.Fatalf("Add(): unexpected err: %v", err)
	}

	for _, testCase := range []struct {
		name      string
		call      func() error
		lastError string
	}{{
		name:      "remove file with trailing separator",
		call:      func() error { return fs.Remove("/home/default/f/") },
		lastError: "/home/default/f is not a directory",
	}, {
		name:      "add file with trailing separator",
		call:      func() error { return fs.Add("/home/default/g/", ElementTypeFile, 0, 0) },
		lastError: "/home/default/g is not a directory",
	}} {
		t.Run(testCase.name, func(t *testing.T) {
			if err := testCase.call(); !errors.Is(err, NotADirErr) {
				t.Fatalf("wanted `%v`; found `%v`", NotADirErr, err)
			}
			if found := fs.LastError(); found != testCase.lastError {
				t.Fatalf(
					"LastError(): wanted `%s`; found `%s`",
					testCase.lastError,
					found,
				)
			}
		})
	}

	names, err := fs.List(mustOpen(t, fs, "/home/default/"))
	if err != nil {
		t.Fatalf("List(): unexpected err: %v", err)
	}
	if wanted := []string{"f"}; !reflect.DeepEqual(names, wanted) {
		t.Fatalf("List(): wanted `%v`; found `%v`", wanted, names)
	}

	if err := fs.Add("/home/default/d/", ElementTypeDirectory, 0, 0); err != nil {
		t.Fatalf("Add(/home/default/d/): unexpected err: %v", err)
	}
	if err := fs.Remove("/home/default/d/"); err != nil {
		t.Fatalf("Remove(/home/default/d/): unexpected err: %v", err)
	}
}
