package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/testutil"
)

func TestList(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testutil.BuildTree(t, fsys, "/ws", map[string]string{
		"a.txt":     "a",
		".hidden":   "h",
		"sub/":      "",
		"sub/b.txt": "b",
	})
	a := New(fsys)
	ctx := context.Background()

	entries, err := a.List(ctx, "/ws")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries (hidden filtering is not the adapter's job), got %d", len(entries))
	}

	kinds := make(map[string]bool)
	for _, e := range entries {
		if e.IsDirectory == e.IsFile {
			t.Errorf("%s: exactly one of IsDirectory/IsFile must be set", e.Name)
		}
		kinds[e.Name] = e.IsDirectory
	}
	if !kinds["sub"] || kinds["a.txt"] {
		t.Errorf("unexpected kinds: %v", kinds)
	}

	if _, err := a.List(ctx, "/missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("List(missing) = %v, want ErrNotFound", err)
	}
	if _, err := a.List(ctx, "/ws/a.txt"); !errors.Is(err, domain.ErrNotDirectory) {
		t.Errorf("List(file) = %v, want ErrNotDirectory", err)
	}
}

func TestList_PermissionDenied(t *testing.T) {
	base := afero.NewMemMapFs()
	testutil.BuildTree(t, base, "/ws", map[string]string{"locked/": ""})
	fsys := testutil.NewFailingFs(base)
	fsys.FailOpen("/ws/locked", os.ErrPermission)

	_, err := New(fsys).List(context.Background(), "/ws/locked")
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("List() = %v, want ErrPermissionDenied", err)
	}
}

func TestCreateFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testutil.BuildTree(t, fsys, "/ws", map[string]string{"a.txt": "a"})
	a := New(fsys)
	ctx := context.Background()

	if err := a.CreateFile(ctx, "/ws/new.typ"); err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	data, err := a.ReadFile(ctx, "/ws/new.typ")
	if err != nil || len(data) != 0 {
		t.Errorf("new file should be empty, got %q (%v)", data, err)
	}

	if err := a.CreateFile(ctx, "/ws/a.txt"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("CreateFile(existing) = %v, want ErrAlreadyExists", err)
	}
	if err := a.CreateFile(ctx, "/ws/nope/x.typ"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("CreateFile(missing parent) = %v, want ErrNotFound", err)
	}
}

func TestWriteAndReadFile(t *testing.T) {
	dir := t.TempDir()
	a := NewOS()
	ctx := context.Background()
	path := filepath.Join(dir, "doc.typ")

	if err := a.WriteFile(ctx, path, []byte("= Title")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := a.WriteFile(ctx, path, []byte("= Other")); err != nil {
		t.Fatalf("WriteFile(overwrite) error = %v", err)
	}

	data, err := a.ReadFile(ctx, path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "= Other" {
		t.Errorf("ReadFile() = %q", data)
	}

	if _, err := os.Stat(path + ".typnote.tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
	if _, err := a.ReadFile(ctx, dir); !errors.Is(err, domain.ErrNotFile) {
		t.Errorf("ReadFile(dir) = %v, want ErrNotFile", err)
	}
	if _, err := a.ReadFile(ctx, filepath.Join(dir, "missing")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ReadFile(missing) = %v, want ErrNotFound", err)
	}
}

func TestMkdir(t *testing.T) {
	dir := t.TempDir()
	a := NewOS()
	ctx := context.Background()

	deep := filepath.Join(dir, "x", "y", "z")
	if err := a.Mkdir(ctx, deep, false); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Mkdir(non-recursive, missing parent) = %v, want ErrNotFound", err)
	}
	if err := a.Mkdir(ctx, deep, true); err != nil {
		t.Fatalf("Mkdir(recursive) error = %v", err)
	}
	if err := a.Mkdir(ctx, deep, true); err != nil {
		t.Errorf("Mkdir(recursive, existing) error = %v", err)
	}
	if err := a.Mkdir(ctx, deep, false); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("Mkdir(existing) = %v, want ErrAlreadyExists", err)
	}
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateTestFile(t, dir, "a.txt", []byte("A"))
	testutil.CreateTestFile(t, dir, "b.txt", []byte("B"))
	a := NewOS()
	ctx := context.Background()

	err := a.Rename(ctx, filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt"))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("Rename(onto existing) = %v, want ErrAlreadyExists", err)
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "b.txt")); string(data) != "B" {
		t.Errorf("destination overwritten: %q", data)
	}

	if err := a.Rename(ctx, filepath.Join(dir, "a.txt"), filepath.Join(dir, "c.txt")); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
		t.Error("source still exists after rename")
	}

	err = a.Rename(ctx, filepath.Join(dir, "missing"), filepath.Join(dir, "d.txt"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Rename(missing) = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateTestFile(t, dir, "sub/deep/x.txt", []byte("x"))
	a := NewOS()
	ctx := context.Background()
	sub := filepath.Join(dir, "sub")

	if err := a.Remove(ctx, sub, false); err == nil {
		t.Error("non-recursive remove of non-empty dir should fail")
	}
	if err := a.Remove(ctx, sub, true); err != nil {
		t.Fatalf("Remove(recursive) error = %v", err)
	}
	if exists, _ := a.Exists(ctx, sub); exists {
		t.Error("directory still exists")
	}
	if err := a.Remove(ctx, sub, true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Remove(missing) = %v, want ErrNotFound", err)
	}
}

func TestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(afero.NewMemMapFs())
	if _, err := a.List(ctx, "/"); !errors.Is(err, context.Canceled) {
		t.Errorf("List() = %v, want context.Canceled", err)
	}
}

func TestLinks(t *testing.T) {
	dir := t.TempDir()
	target := t.TempDir()
	testutil.Symlink(t, target, filepath.Join(dir, "link"))
	testutil.Symlink(t, filepath.Join(dir, "gone"), filepath.Join(dir, "dangling"))
	a := NewOS()
	ctx := context.Background()

	linked, err := a.Lstat(ctx, filepath.Join(dir, "link"))
	if err != nil {
		t.Fatalf("Lstat() error = %v", err)
	}
	if !linked.IsSymlink || linked.IsDirectory || !linked.IsFile {
		t.Errorf("Lstat(link) = %+v, want a link reported as a file", linked)
	}
	followed, err := a.Stat(ctx, filepath.Join(dir, "link"))
	if err != nil || !followed.IsDirectory {
		t.Errorf("Stat(link) = %+v (%v), want the target directory", followed, err)
	}

	entries, err := a.List(ctx, dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, e := range entries {
		if !e.IsSymlink {
			t.Errorf("List(): %s not marked as a link", e.Name)
		}
	}

	if exists, err := a.Exists(ctx, filepath.Join(dir, "dangling")); err != nil || !exists {
		t.Errorf("Exists(dangling) = %v, %v; want true", exists, err)
	}

	got, err := a.ReadLink(ctx, filepath.Join(dir, "link"))
	if err != nil || got != target {
		t.Errorf("ReadLink() = %q, %v; want %q", got, err, target)
	}

	if err := a.Symlink(ctx, target, filepath.Join(dir, "again")); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}
	if err := a.Symlink(ctx, target, filepath.Join(dir, "link")); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("Symlink(existing) = %v, want ErrAlreadyExists", err)
	}

	if err := a.Remove(ctx, filepath.Join(dir, "dangling"), false); err != nil {
		t.Errorf("Remove(dangling) error = %v", err)
	}
}
