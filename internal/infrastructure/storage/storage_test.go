package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3DocumentStore_Validation(t *testing.T) {
	_, err := NewS3DocumentStore(context.Background(), nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3DocumentStore(context.Background(), &config.StorageConfig{Region: "eu-west-3"})
	assert.ErrorContains(t, err, "bucket is required")
}

func newTestS3Store(t *testing.T) *S3DocumentStore {
	t.Helper()
	store, err := NewS3DocumentStore(context.Background(), &config.StorageConfig{
		Bucket:          "invoices",
		Region:          "eu-west-3",
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		UsePathStyle:    true,
	}, WithPresignExpiry(10*time.Minute))
	require.NoError(t, err)
	return store
}

func TestS3DocumentStore_PresignGet(t *testing.T) {
	store := newTestS3Store(t)
	assert.Equal(t, "invoices", store.Bucket())

	link, err := store.PresignGet(context.Background(), "invoices/F260000001.pdf")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/invoices/invoices/F260000001.pdf"))
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestS3DocumentStore_EmptyKey(t *testing.T) {
	store := newTestS3Store(t)
	ctx := context.Background()

	_, err := store.PresignGet(ctx, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
	assert.ErrorIs(t, store.Put(ctx, "", nil, "application/pdf"), ErrKeyRequired)
	_, err = store.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrKeyRequired)
}

func TestMemoryDocumentStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDocumentStore("")

	data := []byte("%PDF-1.4")
	require.NoError(t, store.Put(ctx, "invoices/F260000001.pdf", data, "application/pdf"))
	data[0] = 'X'

	got, contentType, ok := store.Get("invoices/F260000001.pdf")
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.4", string(got))
	assert.Equal(t, "application/pdf", contentType)

	exists, err := store.Exists(ctx, "invoices/F260000001.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	link, err := store.PresignGet(ctx, "invoices/F260000001.pdf")
	require.NoError(t, err)
	assert.Equal(t, "memory://documents/invoices%2FF260000001.pdf", link)

	require.NoError(t, store.Delete(ctx, "invoices/F260000001.pdf"))
	exists, err = store.Exists(ctx, "invoices/F260000001.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryDocumentStore_CancelledPut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryDocumentStore("http://docs.local")
	assert.ErrorIs(t, store.Put(ctx, "k", []byte("x"), "text/plain"), context.Canceled)
}
