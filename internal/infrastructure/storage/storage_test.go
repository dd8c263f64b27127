package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLocalStore(t *testing.T) (*LocalBlobStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalBlobStore(dir, zap.NewNop())
	require.NoError(t, err)
	return store, dir
}

func TestLocalBlobStore_PutGet(t *testing.T) {
	store, dir := newLocalStore(t)
	ctx := context.Background()

	t.Run("stores under nested path", func(t *testing.T) {
		err := store.Put(ctx, "quotes/q-1/f-1-scan.pdf", []byte("PDF content"), "application/pdf")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "quotes", "q-1", "f-1-scan.pdf"))
		assert.NoFileExists(t, filepath.Join(dir, "quotes", "q-1", "f-1-scan.pdf.part"))

		content, err := store.Get(ctx, "quotes/q-1/f-1-scan.pdf")
		require.NoError(t, err)
		assert.Equal(t, []byte("PDF content"), content)
	})

	t.Run("overwrites existing blob", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a.txt", []byte("original"), "text/plain"))
		require.NoError(t, store.Put(ctx, "a.txt", []byte("updated"), "text/plain"))

		content, err := store.Get(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("updated"), content)
	})

	t.Run("missing blob", func(t *testing.T) {
		_, err := store.Get(ctx, "quotes/none.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLocalBlobStore_ExistsDelete(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "quotes/q-1/f.png", []byte{1}, "image/png"))

	ok, err := store.Exists(ctx, "quotes/q-1/f.png")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "quotes/q-1/f.png"))
	ok, err = store.Exists(ctx, "quotes/q-1/f.png")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.Delete(ctx, "quotes/q-1/f.png"), "delete is idempotent")
}

func TestLocalBlobStore_RejectsEscapingPaths(t *testing.T) {
	store, dir := newLocalStore(t)
	ctx := context.Background()

	for _, p := range []string{"", "../outside.txt", "quotes/../../outside.txt"} {
		err := store.Put(ctx, p, []byte("x"), "text/plain")
		assert.ErrorIs(t, err, ErrInvalidPath, "path %q", p)
	}
	_, err := os.Stat(filepath.Join(filepath.Dir(dir), "outside.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix  string
		name    string
		want    string
		wantErr bool
	}{
		{prefix: "", name: "quotes/q-1/a.pdf", want: "quotes/q-1/a.pdf"},
		{prefix: "uploads", name: "quotes/q-1/a.pdf", want: "uploads/quotes/q-1/a.pdf"},
		{prefix: "uploads", name: "/quotes//q-1/a.pdf", want: "uploads/quotes/q-1/a.pdf"},
		{prefix: "uploads", name: "../secrets", wantErr: true},
		{prefix: "uploads", name: " ", wantErr: true},
	}

	for _, tt := range tests {
		got, err := objectKey(tt.prefix, tt.name)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidPath, tt.name)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "s3"}, zap.NewNop())
	assert.Error(t, err)
}
