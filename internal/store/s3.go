package store

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the zip method ID for Zstandard (per the zip spec
// APPNOTE, method 93).
const zipMethodZstd = 93

// presignTTL bounds how long generated asset links stay valid.
const presignTTL = 15 * time.Minute

// S3API is the subset of the S3 client the asset store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// AssetStore writes generated media and research archives to S3.
type AssetStore struct {
	client  S3API
	presign *s3.PresignClient
	bucket  string
}

// NewAssetStore creates an asset store for the given bucket. The presign
// client may be nil when only uploads are needed (Lambda workers).
func NewAssetStore(client S3API, presign *s3.PresignClient, bucket string) *AssetStore {
	return &AssetStore{client: client, presign: presign, bucket: bucket}
}

// AssetKey builds the canonical S3 key for a generated asset.
func AssetKey(projectID, kind string, segment int, ext string) string {
	return fmt.Sprintf("projects/%s/%s/segment-%03d%s", projectID, kind, segment, ext)
}

// ResearchArchiveKey builds the S3 key for a project's research archive.
func ResearchArchiveKey(projectID string) string {
	return fmt.Sprintf("projects/%s/research/archive.zip", projectID)
}

// Upload stores a media payload and returns its key.
func (s *AssetStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}
	log.Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("asset uploaded")
	return key, nil
}

// Download fetches an asset payload by key.
func (s *AssetStore) Download(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download s3://%s/%s: %w", s.bucket, key, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// PresignGet returns a time-limited download URL for an asset.
func (s *AssetStore) PresignGet(ctx context.Context, key string) (string, error) {
	if s.presign == nil {
		return "", fmt.Errorf("presign s3://%s/%s: presign client not configured", s.bucket, key)
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = presignTTL
	})
	if err != nil {
		return "", fmt.Errorf("presign s3://%s/%s: %w", s.bucket, key, err)
	}
	return req.URL, nil
}

// ArchiveResearch compresses the named research documents into a
// zstd-compressed zip and uploads it. Raw search transcripts can run to
// hundreds of kilobytes per step, so they are archived rather than stored
// in DynamoDB.
func (s *AssetStore) ArchiveResearch(ctx context.Context, projectID string, rec *ResearchRecord, rawDocs map[string]string) (string, error) {
	data, err := buildResearchArchive(rec, rawDocs)
	if err != nil {
		return "", err
	}
	key := ResearchArchiveKey(projectID)
	return s.Upload(ctx, key, "application/zip", data)
}

func buildResearchArchive(rec *ResearchRecord, rawDocs map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})

	addFile := func(name string, content []byte) error {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   name,
			Method: zipMethodZstd,
		})
		if err != nil {
			return fmt.Errorf("archive entry %s: %w", name, err)
		}
		if _, err := fw.Write(content); err != nil {
			return fmt.Errorf("archive write %s: %w", name, err)
		}
		return nil
	}

	if rec != nil {
		briefJSON, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal research record: %w", err)
		}
		if err := addFile("brief.json", briefJSON); err != nil {
			return nil, err
		}
	}
	for name, content := range rawDocs {
		if err := addFile("raw/"+name+".md", []byte(content)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize research archive: %w", err)
	}
	return buf.Bytes(), nil
}
