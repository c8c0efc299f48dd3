package utils

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

// allowedDocumentTypes maps accepted verification document extensions to their content type
var allowedDocumentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateDocumentFile checks that a verification document is a PDF, PNG or JPEG of at most 10MB
func ValidateDocumentFile(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return &FileUploadError{Code: "NO_FILE", Message: "No file was uploaded"}
	}

	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	if fileHeader.Size == 0 {
		return &FileUploadError{Code: "EMPTY_FILE", Message: "Uploaded file is empty"}
	}

	if _, ok := allowedDocumentTypes[strings.ToLower(filepath.Ext(fileHeader.Filename))]; !ok {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only PDF, PNG and JPEG files are allowed",
		}
	}

	return nil
}

// ContentTypeFor returns the content type for a validated document filename
func ContentTypeFor(filename string) string {
	if ct, ok := allowedDocumentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// DocumentFilename builds a collision-free storage name that keeps the original extension
func DocumentFilename(prefix, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)
}

// SaveUploadedFile saves the uploaded file under uploadDir with the given name
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir, filename string) (err error) {
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return fmt.Errorf("invalid file name %q", filename)
	}

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			slog.Warn("failed to close source file", "error", closeErr)
		}
	}()

	dst, err := os.Create(filepath.Join(uploadDir, filename))
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// GetDocumentURL returns the URL path an admin uses to fetch a locally stored document
func GetDocumentURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/admin/documents/%s", filename)
}
