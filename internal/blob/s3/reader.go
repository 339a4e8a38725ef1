package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// Reader implements domain.BlobReader. The scheme store reads through Get;
// the report archiver uses Exists and List.
type Reader struct {
	client *s3.Client
	bucket string
}

func NewReader(c *Client) *Reader {
	return &Reader{client: c.S3(), bucket: c.Bucket()}
}

// Get returns the object body, which the caller must close. A missing
// object wraps domain.ErrNotFound.
func (r *Reader) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3blob: get %s: %w", key, notFoundOr(err))
	}
	return out.Body, nil
}

// List returns every object under prefix across all result pages.
func (r *Reader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	pages := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})

	var infos []domain.BlobInfo
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, blobInfo(obj))
		}
	}
	return infos, nil
}

func blobInfo(obj types.Object) domain.BlobInfo {
	return domain.BlobInfo{
		Path:         aws.ToString(obj.Key),
		Size:         aws.ToInt64(obj.Size),
		LastModified: aws.ToTime(obj.LastModified),
	}
}

// Exists reports whether key is stored. Errors other than not-found are
// returned.
func (r *Reader) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("s3blob: head %s: %w", key, err)
	}
}

// notFoundOr maps not-found responses to domain.ErrNotFound and returns any
// other error unchanged.
func notFoundOr(err error) error {
	if isNotFound(err) {
		return domain.ErrNotFound
	}
	return err
}

// statusCoder is satisfied by smithy's HTTP response errors.
type statusCoder interface {
	HTTPStatusCode() int
}

// isNotFound recognises NoSuchKey from GetObject, NotFound from HeadObject
// and a bare 404 from S3-compatible stores.
func isNotFound(err error) bool {
	var (
		noKey  *types.NoSuchKey
		noObj  *types.NotFound
		status statusCoder
	)
	switch {
	case errors.As(err, &noKey), errors.As(err, &noObj):
		return true
	case errors.As(err, &status):
		return status.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}

var _ domain.BlobReader = (*Reader)(nil)
