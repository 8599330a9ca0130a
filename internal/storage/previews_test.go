/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"testing"
	"time"

	"hkannostudio/internal/domain"
)

func TestPreviewsPutGetAndEvict(t *testing.T) {
	root := t.TempDir()
	wh, err := InitWorkspace(root, domain.Workspace{Name: "Prev Test"})
	if err != nil || wh == nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Set a tiny cap to force eviction quickly
	t.Setenv("HKS_PREVIEWS_MAX_BYTES", "64")

	// Insert 3 previews of 40 bytes each (distinct content, distinct hashes)
	mkBlob := func(fill byte) []byte {
		b := make([]byte, 40)
		for i := range b {
			b[i] = fill
		}
		return b
	}
	blobA, blobB, blobC := mkBlob('a'), mkBlob('b'), mkBlob('c')
	hashA, hashB, hashC := ContentHash(blobA), ContentHash(blobB), ContentHash(blobC)
	if err := PutPreview(ctx, wh.Root, "c1", hashA, PreviewKindMarkup, 0, 0, blobA); err != nil {
		t.Fatalf("put A: %v", err)
	}
	time.Sleep(10 * time.Millisecond) // different access times
	if err := PutPreview(ctx, wh.Root, "c1", hashB, PreviewKindMarkup, 0, 0, blobB); err != nil {
		t.Fatalf("put B: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := PutPreview(ctx, wh.Root, "c1", hashC, PreviewKindMarkup, 0, 0, blobC); err != nil {
		t.Fatalf("put C: %v", err)
	}

	// Cap is 64 bytes; after inserts total 120 -> eviction should have occurred, leaving last inserted(s)
	total, err := TotalPreviewBytes(ctx, wh.Root)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total > 64 {
		t.Fatalf("expected eviction to <=64 bytes, got %d", total)
	}

	// Access one survivor (if present)
	_, _ = GetPreview(ctx, wh.Root, "c1", hashB, PreviewKindMarkup, 0, 0)
	// Insert another 40-byte; should evict oldest by last_access
	blobD := mkBlob('d')
	if err := PutPreview(ctx, wh.Root, "c1", ContentHash(blobD), PreviewKindMarkup, 0, 0, blobD); err != nil {
		t.Fatalf("put D: %v", err)
	}
	if total2, err := TotalPreviewBytes(ctx, wh.Root); err != nil || total2 > 64 {
		t.Fatalf("post total: %v / %d", err, total2)
	}
}

func TestGetOrCreatePreview(t *testing.T) {
	root := t.TempDir()
	wh, err := InitWorkspace(root, domain.Workspace{Name: "Prev Create"})
	if err != nil || wh == nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srcHash := ContentHash([]byte("trackName: A\n0.100000 FootLeft\n"))
	calls := 0
	gen := func(context.Context) ([]byte, error) { calls++; return []byte("<hkobject/>"), nil }
	b, err := GetOrCreatePreview(ctx, wh.Root, "c2", srcHash, PreviewKindMarkup, 0, 0, gen)
	if err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	if string(b) != "<hkobject/>" {
		t.Fatalf("unexpected data: %q", string(b))
	}
	// Second call should hit cache and not call generator
	b, err = GetOrCreatePreview(ctx, wh.Root, "c2", srcHash, PreviewKindMarkup, 0, 0, gen)
	if err != nil {
		t.Fatalf("getOrCreate 2: %v", err)
	}
	if calls != 1 {
		t.Fatalf("generator should be called once, got %d", calls)
	}
}

func TestContentHashDistinguishesText(t *testing.T) {
	a := ContentHash([]byte("0.100000 FootLeft\n"))
	b := ContentHash([]byte("0.100000 FootRight\n"))
	if a == b {
		t.Fatalf("expected distinct hashes for distinct text")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a != ContentHash([]byte("0.100000 FootLeft\n")) {
		t.Fatalf("hash must be stable for identical input")
	}
}
