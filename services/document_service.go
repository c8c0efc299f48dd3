package services

import (
	"context"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"

	"github.com/kendall-kelly/fixnow-api/utils"
	"github.com/pkg/errors"
)

// DocumentKind is the type of verification document a provider uploads
type DocumentKind string

const (
	DocumentIDDocument    DocumentKind = "id_document"
	DocumentCertification DocumentKind = "certification"
)

// Valid reports whether k is a known document kind
func (k DocumentKind) Valid() bool {
	return k == DocumentIDDocument || k == DocumentCertification
}

// DocumentService stores provider verification documents
type DocumentService interface {
	// UploadDocument validates and stores a document, returning its storage key
	UploadDocument(ctx context.Context, providerID string, kind DocumentKind, fileHeader *multipart.FileHeader) (string, error)

	// GetDocumentURL returns a URL an admin can open to review the document
	GetDocumentURL(ctx context.Context, key string) (string, error)

	// DeleteDocument removes a stored document
	DeleteDocument(ctx context.Context, key string) error
}

var documentServiceInstance DocumentService

// GetDocumentService returns the initialized document service instance
func GetDocumentService() DocumentService {
	return documentServiceInstance
}

// SetDocumentService sets the document service instance (primarily for testing)
func SetDocumentService(service DocumentService) {
	documentServiceInstance = service
}

// S3DocumentService keeps documents in a private S3 bucket
type S3DocumentService struct {
	s3Service S3Interface
}

// InitDocumentService initializes the document service with an S3 backend
func InitDocumentService(s3Service S3Interface) DocumentService {
	documentServiceInstance = &S3DocumentService{s3Service: s3Service}
	return documentServiceInstance
}

// UploadDocument stores the file under verification/{providerID}/
func (s *S3DocumentService) UploadDocument(ctx context.Context, providerID string, kind DocumentKind, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateDocumentFile(fileHeader); err != nil {
		return "", err
	}

	key := path.Join("verification", providerID, utils.DocumentFilename(string(kind), fileHeader.Filename))
	if err := s.s3Service.UploadFile(ctx, key, utils.ContentTypeFor(fileHeader.Filename), fileHeader); err != nil {
		return "", errors.Wrap(err, "failed to upload document")
	}
	return key, nil
}

// GetDocumentURL returns a presigned URL for the document
func (s *S3DocumentService) GetDocumentURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.s3Service.GetPresignedURL(ctx, key)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate document URL")
	}
	return url, nil
}

// DeleteDocument deletes the document from S3
func (s *S3DocumentService) DeleteDocument(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.s3Service.DeleteFile(ctx, key); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}

// LocalDocumentService keeps documents on local disk. Used in development when no bucket is configured.
type LocalDocumentService struct {
	dir string
}

// InitLocalDocumentService initializes the document service with a local directory backend
func InitLocalDocumentService(dir string) DocumentService {
	documentServiceInstance = &LocalDocumentService{dir: dir}
	return documentServiceInstance
}

// Dir is the directory documents are written to
func (s *LocalDocumentService) Dir() string {
	return s.dir
}

func (s *LocalDocumentService) UploadDocument(ctx context.Context, providerID string, kind DocumentKind, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateDocumentFile(fileHeader); err != nil {
		return "", err
	}

	filename := utils.DocumentFilename(string(kind), fileHeader.Filename)
	if err := utils.SaveUploadedFile(fileHeader, s.dir, filename); err != nil {
		return "", errors.Wrap(err, "failed to upload document")
	}
	slog.DebugContext(ctx, "stored document locally", "provider_id", providerID, "file", filename)
	return filename, nil
}

func (s *LocalDocumentService) GetDocumentURL(_ context.Context, key string) (string, error) {
	return utils.GetDocumentURL(key), nil
}

func (s *LocalDocumentService) DeleteDocument(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}
