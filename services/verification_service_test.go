package services

import (
	"context"
	"strings"
	"testing"

	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/tests/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationService_Lifecycle(t *testing.T) {
	m := newMarketplace(t)
	documents := NewMockDocumentService()
	svc := NewVerificationService(m.db, documents, nil)
	ctx := context.Background()
	applicant := ActorFor(testutil.CreateProfile(t, m.db, models.RoleProvider, "Nina Newcomer"))

	pending, err := svc.ListPendingVerifications(ctx, m.admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Nina Newcomer", pending[0].Profile.Name)
	assert.Empty(t, pending[0].Services)

	_, err = svc.ListPendingVerifications(ctx, applicant)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, err = svc.ApproveProvider(ctx, applicant.ID, applicant, nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	rejected, err := svc.RejectProvider(ctx, applicant.ID, m.admin, strPtr("  Blurry ID  "))
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, rejected.VerificationStatus)
	assert.False(t, rejected.IsVerified)
	require.NotNil(t, rejected.VerificationNotes)
	assert.Equal(t, "Blurry ID", *rejected.VerificationNotes)

	_, err = svc.ApproveProvider(ctx, applicant.ID, m.admin, nil)
	assert.True(t, errors.Is(err, ErrInvalidTransition), "rejected providers must resubmit first")

	_, err = svc.ResubmitVerification(ctx, applicant)
	assert.True(t, errors.Is(err, ErrValidation), "an ID document is required")

	_, err = svc.UploadVerificationDocument(ctx, applicant, DocumentIDDocument, fileHeader(t, "passport.pdf", []byte("%PDF-1.7")))
	require.NoError(t, err)

	resubmitted, err := svc.ResubmitVerification(ctx, applicant)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, resubmitted.VerificationStatus)

	_, err = svc.ResubmitVerification(ctx, applicant)
	assert.True(t, errors.Is(err, ErrInvalidTransition), "already pending")

	pending, err = svc.ListPendingVerifications(ctx, m.admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].IDDocumentURL)
	assert.Contains(t, *pending[0].IDDocumentURL, "verification/"+applicant.ID+"/")
	assert.Nil(t, pending[0].CertificationURL)

	approved, err := svc.ApproveProvider(ctx, applicant.ID, m.admin, nil)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, approved.VerificationStatus)
	assert.True(t, approved.IsVerified)

	_, err = svc.RejectProvider(ctx, applicant.ID, m.admin, nil)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = svc.ApproveProvider(ctx, "missing", m.admin, nil)
	assert.True(t, errors.Is(err, &DomainError{Kind: KindNotFound, Code: "PROVIDER_NOT_FOUND"}))
}

func TestVerificationService_UploadDocument(t *testing.T) {
	m := newMarketplace(t)
	documents := NewMockDocumentService()
	svc := NewVerificationService(m.db, documents, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  Actor
		kind   DocumentKind
		file   string
		body   []byte
		target error
	}{
		{name: "client", actor: m.client, kind: DocumentIDDocument, file: "id.pdf", body: []byte("%PDF"), target: ErrUnauthorized},
		{name: "unknown kind", actor: m.provider, kind: "selfie", file: "id.pdf", body: []byte("%PDF"), target: ErrValidation},
		{name: "wrong format", actor: m.provider, kind: DocumentIDDocument, file: "id.gif", body: []byte("GIF89a"), target: ErrValidation},
		{name: "empty", actor: m.provider, kind: DocumentIDDocument, file: "id.pdf", body: []byte{}, target: ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadVerificationDocument(ctx, tt.actor, tt.kind, fileHeader(t, tt.file, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
	assert.Zero(t, documents.Count())

	first, err := svc.UploadVerificationDocument(ctx, m.provider, DocumentIDDocument, fileHeader(t, "licence.jpg", []byte("\xff\xd8\xff")))
	require.NoError(t, err)
	require.NotNil(t, first.IDDocumentKey)
	require.NotNil(t, first.IDDocumentURL)
	firstKey := *first.IDDocumentKey

	cert, err := svc.UploadVerificationDocument(ctx, m.provider, DocumentCertification, fileHeader(t, "cert.png", []byte("\x89PNG")))
	require.NoError(t, err)
	require.NotNil(t, cert.CertificationURL)
	assert.Equal(t, firstKey, *cert.IDDocumentKey, "a certification leaves the ID document alone")

	replaced, err := svc.UploadVerificationDocument(ctx, m.provider, DocumentIDDocument, fileHeader(t, "passport.pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *replaced.IDDocumentKey)
	assert.False(t, documents.DocumentExists(firstKey), "the replaced document is removed")
	assert.True(t, documents.DocumentExists(*replaced.IDDocumentKey))
	assert.Equal(t, 2, documents.Count())

	own, err := svc.GetVerification(ctx, m.provider)
	require.NoError(t, err)
	require.NotNil(t, own.IDDocumentURL)
	assert.True(t, strings.HasSuffix(*own.IDDocumentURL, "?mock=true"))

	_, err = svc.GetVerification(ctx, m.admin)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestVerificationService_WithoutDocumentStorage(t *testing.T) {
	m := newMarketplace(t)
	svc := NewVerificationService(m.db, nil, nil)

	_, err := svc.UploadVerificationDocument(context.Background(), m.provider, DocumentIDDocument, fileHeader(t, "id.pdf", []byte("%PDF")))
	require.Error(t, err)
	_, isDomain := AsDomainError(err)
	assert.False(t, isDomain, "missing storage is an internal failure")

	provider, err := svc.GetVerification(context.Background(), m.provider)
	require.NoError(t, err)
	assert.Nil(t, provider.IDDocumentURL)
}
