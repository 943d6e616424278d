package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxReceiptSize caps receipt uploads.
const MaxReceiptSize int64 = 5 << 20

var ErrUnsupportedContentType = errors.New("unsupported content type")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

var receiptExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ReceiptExtension maps an accepted receipt content type to a file extension.
func ReceiptExtension(contentType string) (string, error) {
	ext, ok := receiptExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return ext, nil
}

// DetectContentType определяет тип по содержимому файла, а не по заголовку
// клиента. Reader возвращается в начало.
func DetectContentType(r io.ReadSeeker) (string, error) {
	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}
	mediaType, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return detected.String(), nil
	}
	return mediaType, nil
}

// ReceiptKey builds a unique object key under the team's prefix.
func ReceiptKey(teamID int, ext string) string {
	return fmt.Sprintf("receipts/%d/%s%s", teamID, uuid.NewString(), ext)
}
