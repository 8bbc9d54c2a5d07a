package pkpass

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3UploadAPI is the part of the s3 upload manager used to publish passes
type S3UploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type skipPublishKey struct{}

// WithoutPublishing returns a context whose signed passes are not sent
// to the upload location of the signer
func WithoutPublishing(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipPublishKey{}, true)
}

func publishingSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(skipPublishKey{}).(bool)
	return skip
}

// Publisher stores signed archives at an upload location
type Publisher struct {
	target *url.URL
	client S3UploadAPI
}

// NewPublisher returns a publisher for an s3:// or file:// location
func NewPublisher(ctx context.Context, location string) (*Publisher, error) {
	target, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to parse upload location: %w", err)
	}
	p := &Publisher{target: target}
	switch target.Scheme {
	case "s3":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("pkpass: failed to load aws config: %w", err)
		}
		p.client = manager.NewUploader(s3.NewFromConfig(cfg))
	case "file":
	default:
		return nil, fmt.Errorf("pkpass: unsupported upload scheme %q", target.Scheme)
	}
	return p, nil
}

// Publish stores the archive as <serial>.pkpass
func (p *Publisher) Publish(ctx context.Context, serial string, archive []byte) error {
	if err := checkMemberName(serial); err != nil {
		return err
	}
	name := serial + ".pkpass"
	if p.target.Scheme == "s3" {
		return uploadToS3(ctx, p.client, archive, name, p.target)
	}
	return writeLocalFile(archive, name, p.target)
}

func uploadToS3(ctx context.Context, client S3UploadAPI, data []byte, name string, target *url.URL) error {
	_, err := client.Upload(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(target.Host),
		Key:                aws.String(target.Path + name),
		Body:               bytes.NewReader(data),
		ContentType:        aws.String(ContentType),
		ContentDisposition: aws.String("attachment"),
	})
	if err != nil {
		return fmt.Errorf("pkpass: failed to upload %s: %w", name, err)
	}
	return nil
}

func writeLocalFile(data []byte, name string, target *url.URL) error {
	// upload dir may not exist yet
	if err := os.MkdirAll(target.Path, 0755); err != nil {
		return fmt.Errorf("pkpass: failed to make directory: %w", err)
	}
	return os.WriteFile(filepath.Join(target.Path, name), data, 0644)
}
