package credentials

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Mocks adapted from https://aws.github.io/aws-sdk-go-v2/docs/unit-testing/
type mockDownloadAPI func(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)

func (m mockDownloadAPI) Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error) {
	return m(ctx, w, input, options...)
}

func TestCheckName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"pass.p12", "wwdr.pem", "..p12"} {
		if err := checkName(name); err != nil {
			t.Fatalf("expected %q to be valid: %v", name, err)
		}
	}
	for _, name := range []string{"", ".", "..", "../pass.p12", "certs/pass.p12", `certs\pass.p12`} {
		if err := checkName(name); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestNewRetriever(t *testing.T) {
	t.Parallel()

	r, err := NewRetriever(context.Background(), "")
	if err != nil || r != nil {
		t.Fatalf("expected no retriever for an empty location, got %v %v", r, err)
	}
	r, err = NewRetriever(context.Background(), "file:///etc/walletpass/")
	if err != nil {
		t.Fatal(err)
	}
	if fr, ok := r.(*FileRetriever); !ok || fr.Dir != "/etc/walletpass/" {
		t.Fatalf("expected a file retriever, got %#v", r)
	}
	for _, location := range []string{"ftp://example.net/", "://bad"} {
		if _, err := NewRetriever(context.Background(), location); err == nil {
			t.Fatalf("expected %q to be rejected", location)
		}
	}
}

func TestFileRetriever(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pass.p12"), []byte("container"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := &FileRetriever{Dir: dir}
	data, err := r.Get(context.Background(), "pass.p12")
	if err != nil || string(data) != "container" {
		t.Fatalf("unexpected result %q %v", data, err)
	}
	if _, err := r.Get(context.Background(), "missing.p12"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if _, err := r.Get(context.Background(), "../pass.p12"); err == nil {
		t.Fatal("expected an error for a path traversal")
	}
}

func TestS3Retriever(t *testing.T) {
	cases := []struct {
		name      string
		client    func(t *testing.T) S3DownloadAPI
		expectErr bool
	}{
		{
			name: "pass.p12",
			client: func(t *testing.T) S3DownloadAPI {
				return mockDownloadAPI(func(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error) {
					t.Helper()
					if *input.Bucket != "secrets" || *input.Key != "walletpass/pass.p12" {
						t.Errorf("unexpected object s3://%s/%s", *input.Bucket, *input.Key)
					}
					n, err := w.WriteAt([]byte("container"), 0)
					return int64(n), err
				})
			},
			expectErr: false,
		},
		{
			name: "missing.p12",
			client: func(t *testing.T) S3DownloadAPI {
				return mockDownloadAPI(func(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error) {
					return 0, errors.New("NoSuchKey")
				})
			},
			expectErr: true,
		},
		{
			name: "../escape.p12",
			client: func(t *testing.T) S3DownloadAPI {
				return mockDownloadAPI(func(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error) {
					t.Helper()
					t.Error("download called for an invalid name")
					return 0, nil
				})
			},
			expectErr: true,
		},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &S3Retriever{Bucket: "secrets", Prefix: "walletpass", Client: tt.client(t)}
			data, err := r.Get(context.Background(), tt.name)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error from Get but did not get one")
				}
				return
			}
			if err != nil {
				t.Fatalf("got unexpected error: %v", err)
			}
			if string(data) != "container" {
				t.Fatalf("unexpected object content %q", data)
			}
		})
	}
}
