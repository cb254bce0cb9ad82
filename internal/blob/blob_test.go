package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func testStorePutGet(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "products/p1/image", strings.NewReader("payload"), PutOptions{ContentType: "image/png", Metadata: map[string]string{"source": "catalog"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("payload")) {
		t.Fatalf("size = %d", info.Size)
	}

	if _, err := store.Put(ctx, "products/p1/image", strings.NewReader("other"), PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put to fail")
	}

	got, rc, err := store.Get(ctx, "products/p1/image")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil || string(body) != "payload" {
		t.Fatalf("body = %q err = %v", body, err)
	}
	if got.ContentType != "image/png" {
		t.Fatalf("content type = %q", got.ContentType)
	}

	head, err := store.Head(ctx, "products/p1/image")
	if err != nil || head.Key != "products/p1/image" {
		t.Fatalf("head: %+v err=%v", head, err)
	}

	infos, err := store.List(ctx, "products/")
	if err != nil || len(infos) != 1 {
		t.Fatalf("list: %v err=%v", infos, err)
	}

	existed, err := store.Delete(ctx, "products/p1/image")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "products/p1/image")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStorePutGet(t, NewMemory())
}

func TestFilesystemStore(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	testStorePutGet(t, store)
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem: %v", err)
	}
	if _, err := store.Put(context.Background(), "../escape", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if _, err := store.Put(context.Background(), "/abs", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatalf("expected absolute key to be rejected")
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	store, err := Open(context.Background(), Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s", store.Driver())
	}
	if _, err := Open(context.Background(), Config{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestMemoryPresignUnsupported(t *testing.T) {
	if _, err := NewMemory().PresignURL(context.Background(), "k", SignedURLOptions{}); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
