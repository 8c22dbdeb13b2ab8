package aws

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vietdv277/logmux/pkg/types"
)

// S3API is the subset of the S3 client used by BlobStore
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// BlobStore lists and downloads objects in a single bucket
type BlobStore struct {
	client S3API
	bucket string
}

// NewBlobStore creates a BlobStore over bucket
func NewBlobStore(client S3API, bucket string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket}
}

// List returns every object under prefix, following continuation tokens
func (b *BlobStore) List(ctx context.Context, prefix string) ([]types.FileInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var files []types.FileInfo
	paginator := s3.NewListObjectsV2Paginator(b.client, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in %s: %w", b.bucket, err)
		}
		for _, obj := range output.Contents {
			key := deref(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			file := types.FileInfo{Name: path.Base(key), Path: key}
			if obj.Size != nil {
				file.Size = *obj.Size
			}
			if obj.LastModified != nil {
				file.LastModified = *obj.LastModified
			}
			files = append(files, file)
		}
	}
	return files, nil
}

// Probe lists at most one object under prefix
func (b *BlobStore) Probe(ctx context.Context, prefix string) error {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket), MaxKeys: aws.Int32(1)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if _, err := b.client.ListObjectsV2(ctx, input); err != nil {
		return fmt.Errorf("failed to list objects in %s: %w", b.bucket, err)
	}
	return nil
}

// Download reads the whole object stored under key
func (b *BlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
