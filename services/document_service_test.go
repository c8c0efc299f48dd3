package services

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentKeyPattern = regexp.MustCompile(`^verification/provider-1/id_document_[0-9a-f-]{36}\.pdf$`)

func TestS3DocumentService(t *testing.T) {
	store := NewMockS3Service()
	previous := GetDocumentService()
	svc := InitDocumentService(store)
	t.Cleanup(func() { SetDocumentService(previous) })
	ctx := context.Background()

	assert.Same(t, svc, GetDocumentService())

	key, err := svc.UploadDocument(ctx, "provider-1", DocumentIDDocument, fileHeader(t, "Passport.PDF", []byte("%PDF-1.7")))
	require.NoError(t, err)
	assert.Regexp(t, documentKeyPattern, key)
	assert.True(t, store.FileExists(key))
	assert.Equal(t, "application/pdf", store.ContentType(key))

	url, err := svc.GetDocumentURL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, url, key)

	url, err = svc.GetDocumentURL(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, url)

	_, err = svc.GetDocumentURL(ctx, "verification/provider-1/missing.pdf")
	assert.Error(t, err)

	_, err = svc.UploadDocument(ctx, "provider-1", DocumentIDDocument, fileHeader(t, "virus.exe", []byte("MZ")))
	assert.Error(t, err)
	assert.Equal(t, 1, store.Count())

	require.NoError(t, svc.DeleteDocument(ctx, key))
	assert.False(t, store.FileExists(key))
	assert.NoError(t, svc.DeleteDocument(ctx, ""))
}

func TestLocalDocumentService(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "documents")
	previous := GetDocumentService()
	svc := InitLocalDocumentService(dir)
	t.Cleanup(func() { SetDocumentService(previous) })
	ctx := context.Background()

	local, ok := svc.(*LocalDocumentService)
	require.True(t, ok)
	assert.Equal(t, dir, local.Dir())

	key, err := svc.UploadDocument(ctx, "provider-1", DocumentCertification, fileHeader(t, "cert.png", []byte("\x89PNG")))
	require.NoError(t, err)
	assert.Regexp(t, `^certification_[0-9a-f-]{36}\.png$`, key)

	content, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(content))

	url, err := svc.GetDocumentURL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/admin/documents/"+key, url)

	require.NoError(t, svc.DeleteDocument(ctx, key))
	_, err = os.Stat(filepath.Join(dir, key))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, svc.DeleteDocument(ctx, key), "deleting twice is not an error")
	assert.NoError(t, svc.DeleteDocument(ctx, ""))
}

func TestDocumentKind_Valid(t *testing.T) {
	assert.True(t, DocumentIDDocument.Valid())
	assert.True(t, DocumentCertification.Valid())
	assert.False(t, DocumentKind("selfie").Valid())
	assert.False(t, DocumentKind("").Valid())
}
