package blob

import (
	"context"
	"sort"
	"strings"
	"testing"
)

func TestFSStore_UploadListRemove(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if err := store.Upload(ctx, "report-0.pdf", strings.NewReader("page zero")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := store.Upload(ctx, "report-1.pdf", strings.NewReader("page one")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "report-0.pdf" || names[1] != "report-1.pdf" {
		t.Fatalf("unexpected blobs: %v", names)
	}

	if err := store.Remove(ctx, "report-0.pdf"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	names, _ = store.List(ctx)
	if len(names) != 1 {
		t.Fatalf("expected 1 blob after remove, got %v", names)
	}
}

func TestFSStore_RemoveMissingIsNoError(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Remove(context.Background(), "nope.pdf"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestFSStore_RemoveFileMatchesPageBlobsOnly(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	for _, name := range []string{"report-0.pdf", "report-12.pdf", "report-notes.pdf", "reporting-0.pdf", "notes.txt"} {
		if err := store.Upload(ctx, name, strings.NewReader("x")); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}

	removed, err := store.RemoveFile(ctx, "report.pdf")
	if err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	names, _ := store.List(ctx)
	sort.Strings(names)
	want := []string{"notes.txt", "report-notes.pdf", "reporting-0.pdf"}
	if len(names) != len(want) {
		t.Fatalf("unexpected survivors: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("survivor %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFSStore_RemoveFileNonPDFRemovesBasename(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	if err := store.Upload(ctx, "handbook.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	removed, err := store.RemoveFile(ctx, "/incoming/handbook.txt")
	if err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
