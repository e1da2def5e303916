package s3

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/cbc.png", want: "owner/cbc.png"},
		{name: "simple prefix", prefix: "scans", key: "owner/cbc.png", want: "scans/owner/cbc.png"},
		{name: "both slashed", prefix: "/scans/", key: "/owner/cbc.png", want: "scans/owner/cbc.png"},
		{name: "empty key", prefix: "scans", key: "", want: "scans"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestPutInputEncryption(t *testing.T) {
	plain := &Store{bucket: "reports"}
	in := plain.putInput("k", "image/png")
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256, got %s", in.ServerSideEncryption)
	}
	if in.ContentType == nil || *in.ContentType != "image/png" {
		t.Fatal("expected content type to be set")
	}

	kms := &Store{bucket: "reports", kmsKeyID: "key-1"}
	in = kms.putInput("k", "")
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || *in.SSEKMSKeyId != "key-1" {
		t.Fatal("expected kms encryption")
	}
	if in.ContentType != nil {
		t.Fatal("expected no content type")
	}
}

func TestPresignPut(t *testing.T) {
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
	}
	store, err := NewWithConfig(cfg, "reports", "uploads", "")
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}

	raw, err := store.PresignPut(context.Background(), "scans/owner/id/cbc.png", "image/png", 15*time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if !strings.HasSuffix(parsed.Path, "/uploads/scans/owner/id/cbc.png") {
		t.Fatalf("expected prefixed key in path, got %q", parsed.Path)
	}
	query := parsed.Query()
	if got := query.Get("X-Amz-Expires"); got != "900" {
		t.Fatalf("expected 900s expiry, got %q", got)
	}
	signed := query.Get("X-Amz-SignedHeaders")
	if strings.Contains(signed, "content-length") {
		t.Fatalf("content-length must not be signed: %q", signed)
	}
	if !strings.Contains(signed, "x-amz-server-side-encryption") {
		t.Fatalf("expected encryption header to be signed: %q", signed)
	}
}

func TestNewWithConfigRequiresBucket(t *testing.T) {
	if _, err := NewWithConfig(aws.Config{Region: "us-east-1"}, "", "", ""); err == nil {
		t.Fatal("expected error without bucket")
	}
}
