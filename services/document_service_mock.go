package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/kendall-kelly/fixnow-api/utils"
	"github.com/pkg/errors"
)

// MockDocumentService is an in-memory DocumentService for tests
type MockDocumentService struct {
	documents map[string][]byte
	mu        sync.RWMutex
}

// NewMockDocumentService creates a new mock document service
func NewMockDocumentService() *MockDocumentService {
	return &MockDocumentService{documents: make(map[string][]byte)}
}

// SetAsMockForTesting sets this mock as the global document service instance for testing
func (m *MockDocumentService) SetAsMockForTesting() {
	SetDocumentService(m)
}

// UploadDocument validates the file and keeps its content in memory
func (m *MockDocumentService) UploadDocument(_ context.Context, providerID string, kind DocumentKind, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateDocumentFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", errors.Wrap(err, "failed to read file")
	}

	key := fmt.Sprintf("verification/%s/mock_%s_%s", providerID, kind, fileHeader.Filename)
	m.mu.Lock()
	m.documents[key] = content
	m.mu.Unlock()
	return key, nil
}

// GetDocumentURL returns a fake URL for a stored document
func (m *MockDocumentService) GetDocumentURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.documents[key]
	m.mu.RUnlock()
	if !exists {
		return "", errors.Errorf("document not found in mock storage: %s", key)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// DeleteDocument removes a stored document
func (m *MockDocumentService) DeleteDocument(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.documents, key)
	m.mu.Unlock()
	return nil
}

// DocumentExists checks if a document exists in mock storage
func (m *MockDocumentService) DocumentExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.documents[key]
	return exists
}

// Count returns the number of stored documents
func (m *MockDocumentService) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}
