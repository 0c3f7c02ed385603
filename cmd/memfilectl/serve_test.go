package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/joshuapare/memfile/alloc"
)

func serveRequest(t *testing.T, a *alloc.Allocator, method, path string) *fasthttp.RequestCtx {
	t.Helper()

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	serveHandler(&ctx, a)
	return &ctx
}

func TestServeStateEndpoint(t *testing.T) {
	a := alloc.New(alloc.WithPathProvider(
		alloc.NewCounterPaths(filepath.Join(t.TempDir(), "serve"))))

	buf, err := a.Allocate(alloc.LayoutOf(2048))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	defer a.Deallocate(buf, alloc.LayoutOf(2048))

	ctx := serveRequest(t, a, "GET", "/state")
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("status = %d, want %d", got, fasthttp.StatusOK)
	}
	if got := string(ctx.Response.Header.ContentType()); got != "application/json" {
		t.Fatalf("content type = %q", got)
	}

	var entries []stateEntry
	if err := json.Unmarshal(ctx.Response.Body(), &entries); err != nil {
		t.Fatalf("invalid JSON: %v\nBody: %s", err, ctx.Response.Body())
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Size != 2048 {
		t.Errorf("entry size = %d, want 2048", entries[0].Size)
	}
	wantPath, _ := a.PathOf(buf)
	if entries[0].Path != wantPath {
		t.Errorf("entry path = %q, want %q", entries[0].Path, wantPath)
	}
}

func TestServeStatsEndpoint(t *testing.T) {
	a := alloc.New(alloc.WithPathProvider(
		alloc.NewCounterPaths(filepath.Join(t.TempDir(), "serve"))))

	buf, err := a.Allocate(alloc.LayoutOf(512))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	defer a.Deallocate(buf, alloc.LayoutOf(512))

	ctx := serveRequest(t, a, "GET", "/stats")
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusOK {
		t.Fatalf("status = %d, want %d", got, fasthttp.StatusOK)
	}

	var payload statsPayload
	if err := json.Unmarshal(ctx.Response.Body(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\nBody: %s", err, ctx.Response.Body())
	}
	if payload.Live != 1 {
		t.Errorf("payload.Live = %d, want 1", payload.Live)
	}
	if payload.LiveBytes != 512 {
		t.Errorf("payload.LiveBytes = %d, want 512", payload.LiveBytes)
	}
	if payload.Allocs != 1 {
		t.Errorf("payload.Allocs = %d, want 1", payload.Allocs)
	}
}

func TestServeRejectsUnknownRoutes(t *testing.T) {
	a := alloc.New(alloc.WithPathProvider(
		alloc.NewCounterPaths(filepath.Join(t.TempDir(), "serve"))))

	ctx := serveRequest(t, a, "GET", "/nope")
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Errorf("status = %d, want %d", got, fasthttp.StatusNotFound)
	}

	ctx = serveRequest(t, a, "POST", "/state")
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", got, fasthttp.StatusMethodNotAllowed)
	}
}
