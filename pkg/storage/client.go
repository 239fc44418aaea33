// Package storage fetches installation images from S3-compatible buckets.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/oneclickfedora/installer/pkg/errors"
)

// URIScheme prefixes remote image locations.
const URIScheme = "s3://"

// Location is a parsed s3://bucket/key URI.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return URIScheme + l.Bucket + "/" + l.Key
}

// IsURI reports whether s names a remote image.
func IsURI(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), URIScheme)
}

// ParseURI parses s3://bucket/key.
func ParseURI(s string) (Location, error) {
	if !IsURI(s) {
		return Location{}, fmt.Errorf("not an s3 uri: %s", s)
	}
	rest := s[len(URIScheme):]
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return Location{}, fmt.Errorf("s3 uri must have the form s3://bucket/key: %s", s)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Client provides S3 storage operations
type Client struct {
	s3Client *s3.Client
}

// NewClient creates a new S3 client. With anonymous set, requests are unsigned,
// which is what public mirrors expect.
func NewClient(ctx context.Context, region string, anonymous bool) (*Client, error) {
	slog.Info("s3_client_init", "region", region, "anonymous", anonymous)

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if anonymous {
		opts = append(opts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{s3Client: s3.NewFromConfig(cfg)}, nil
}

// DownloadResult contains download metadata
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Exists checks if the object named by uri exists.
func (c *Client) Exists(ctx context.Context, uri string) (bool, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return false, err
	}

	_, err = c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isNotFound(err) {
			slog.Info("s3_object_not_found", "uri", loc)
			return false, nil
		}
		slog.Error("s3_head_object_failed", "uri", loc, "error", err)
		return false, errors.Wrap(err, "failed to check object existence")
	}

	slog.Info("s3_object_exists", "uri", loc)
	return true, nil
}

// Download streams the object named by uri into destDir and computes its SHA-256.
func (c *Client) Download(ctx context.Context, uri, destDir string) (*DownloadResult, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	slog.Info("s3_download_start", "bucket", loc.Bucket, "key", loc.Key)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create download dir")
	}

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "uri", loc, "error", err)
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	localPath := filepath.Join(destDir, filepath.Base(loc.Key))
	partial := localPath + ".part"

	f, err := os.Create(partial)
	if err != nil {
		slog.Error("local_file_creation_failed", "path", partial, "error", err)
		return nil, errors.Wrap(err, "failed to create local file")
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), result.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partial)
		slog.Error("s3_download_failed", "uri", loc, "error", err)
		return nil, errors.Wrap(err, "failed to download file")
	}

	if err := os.Rename(partial, localPath); err != nil {
		os.Remove(partial)
		return nil, errors.Wrap(err, "failed to finalize download")
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	slog.Info("s3_download_complete",
		"uri", loc,
		"size_mb", size/1024/1024,
		"local_path", localPath,
		"sha256", checksum[:16]+"...",
	)

	return &DownloadResult{
		LocalPath: localPath,
		SHA256:    checksum,
		Size:      size,
	}, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}
