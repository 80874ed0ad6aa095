package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/radome/sequencescape/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	info, err := store.Put(ctx, "manifests/tr-3.json", bytes.NewReader([]byte(`{"transfer":"tr-3"}`)), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "manifests/tr-3.json" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "manifests/tr-3.json", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put to fail")
	}
	got, rc, err := store.Get(ctx, "manifests/tr-3.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"transfer":"tr-3"}` {
		t.Fatalf("get body mismatch: %q", body)
	}
	if got.ContentType != "application/json" {
		t.Fatalf("content type lost: %+v", got)
	}
}

func TestMockStoreHeadListDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	for _, key := range []string{"audit/2026-01.csv", "audit/2026-02.csv", "manifests/x.json"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("data")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	if _, err := store.Head(ctx, "audit/2026-01.csv"); err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, err := store.Head(ctx, "audit/missing.csv"); err == nil {
		t.Fatalf("expected head miss")
	}
	list, err := store.List(ctx, "audit/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "audit/2026-01.csv" {
		t.Fatalf("unexpected list %+v", list)
	}
	if ok, err := store.Delete(ctx, "audit/2026-01.csv"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "audit/2026-01.csv"); err == nil {
		t.Fatalf("expected head miss after delete")
	}
}

func TestMockStorePresign(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	url, err := store.PresignURL(ctx, "manifests/tr-1.json", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "manifests/tr-1.json") || !strings.Contains(url, "X-Amz-Signature") {
		t.Fatalf("unexpected presigned url %q", url)
	}
	if _, err := store.PresignURL(ctx, "manifests/tr-1.json", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatalf("expected unsupported method error")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket requirement error")
	}
}

func TestOpenFromEnvRequiresBucket(t *testing.T) {
	t.Setenv("SEQUENCESCAPE_ARCHIVE_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestDecodeAWSChunked(t *testing.T) {
	body := "5\r\nhello\r\n0\r\n\r\n"
	dec, ok := decodeAWSChunked([]byte(body))
	if !ok || string(dec) != "hello" {
		t.Fatalf("decode: %v %q", ok, dec)
	}
	if _, ok := decodeAWSChunked([]byte("plain payload")); ok {
		t.Fatalf("expected plain payload to pass through undetected")
	}
}
