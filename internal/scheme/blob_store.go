package scheme

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// multipartThreshold is the document size above which Save switches to a
// multipart upload.
const multipartThreshold = 8 << 20

// BlobStore keeps schemes as a single object in blob storage.
type BlobStore struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	key    string
}

// NewBlobStore returns a BlobStore for the object at key.
func NewBlobStore(w domain.BlobWriter, r domain.BlobReader, key string) *BlobStore {
	return &BlobStore{writer: w, reader: r, key: key}
}

// Save uploads the encoded schemes. Large documents go through a multipart
// upload.
func (s *BlobStore) Save(ctx context.Context, schemes []domain.Scheme) error {
	data, err := Encode(schemes)
	if err != nil {
		return err
	}
	if len(data) > multipartThreshold {
		if err := s.writer.PutMultipart(ctx, s.key, bytes.NewReader(data), 0); err != nil {
			return fmt.Errorf("scheme: multipart upload %s: %w", s.key, err)
		}
		return nil
	}
	if err := s.writer.Put(ctx, s.key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("scheme: upload %s: %w", s.key, err)
	}
	return nil
}

// Load downloads and decodes the object. A missing object yields an error
// wrapping domain.ErrNotFound.
func (s *BlobStore) Load(ctx context.Context) ([]domain.Scheme, error) {
	body, err := s.reader.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("scheme: download %s: %w", s.key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("scheme: read %s: %w", s.key, err)
	}
	return Decode(data)
}

var _ domain.SchemeStore = (*BlobStore)(nil)
