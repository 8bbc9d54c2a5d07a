package credentials

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Retriever fetches a stored secret by its logical name
type Retriever interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// S3DownloadAPI is the subset of the s3 download manager used to fetch
// credentials, so tests can substitute it
type S3DownloadAPI interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// NewRetriever returns a Retriever for a location URL. Supported schemes
// are s3://bucket/prefix/ and file:///directory/. An empty location
// returns a nil Retriever.
func NewRetriever(ctx context.Context, location string) (Retriever, error) {
	if location == "" {
		return nil, nil
	}
	parsedURL, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("credentials: failed to parse location %q: %w", location, err)
	}
	switch parsedURL.Scheme {
	case "s3":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("credentials: failed to load aws config: %w", err)
		}
		return &S3Retriever{
			Bucket: parsedURL.Host,
			Prefix: strings.TrimPrefix(parsedURL.Path, "/"),
			Client: manager.NewDownloader(s3.NewFromConfig(cfg)),
		}, nil
	case "file":
		return &FileRetriever{Dir: parsedURL.Path}, nil
	default:
		return nil, fmt.Errorf("credentials: unsupported location scheme %q", parsedURL.Scheme)
	}
}

// checkName rejects names that would escape the configured prefix
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("credentials: invalid credential name %q", name)
	}
	return nil
}

// FileRetriever reads credentials from files in a local directory
type FileRetriever struct {
	Dir string
}

// Get reads the file called name in the retriever directory
func (f *FileRetriever) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("credentials: failed to read %q: %w", name, err)
	}
	return data, nil
}

// S3Retriever downloads credentials stored as objects under a bucket prefix
type S3Retriever struct {
	Bucket string
	Prefix string
	Client S3DownloadAPI
}

// Get downloads the object prefix/name
func (r *S3Retriever) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := r.Client.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(path.Join(r.Prefix, name)),
	})
	if err != nil {
		return nil, fmt.Errorf("credentials: failed to download s3://%s/%s: %w", r.Bucket, path.Join(r.Prefix, name), err)
	}
	return buf.Bytes(), nil
}
