package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubClient(t *testing.T) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
}

func TestS3Store(t *testing.T) {
	stubClient(t)

	var got *s3.PutObjectInput
	orig := putObject
	t.Cleanup(func() { putObject = orig })
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		got = in
		return &s3.PutObjectOutput{}, nil
	}

	store := NewS3(S3Config{
		Region: "us-east-1",
		Bucket: "avatars-bucket",
	})

	url, err := store.Store(context.Background(), "avatars/u1.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "avatars-bucket", *got.Bucket)
	assert.Equal(t, "avatars/u1.png", *got.Key)
	assert.Equal(t, "image/png", *got.ContentType)
	assert.Equal(t, "https://avatars-bucket.s3.us-east-1.amazonaws.com/avatars/u1.png", url)
}

func TestS3StoreCustomPublicBaseURL(t *testing.T) {
	stubClient(t)

	orig := putObject
	t.Cleanup(func() { putObject = orig })
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return &s3.PutObjectOutput{}, nil
	}

	store := NewS3(S3Config{
		Bucket:        "avatars-bucket",
		BaseEndpoint:  "http://localhost:9000",
		PublicBaseURL: "https://cdn.example.com/",
	})

	url, err := store.Store(context.Background(), "avatars/u1.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/u1.png", url)
}

func TestS3Delete(t *testing.T) {
	stubClient(t)

	var got *s3.DeleteObjectInput
	orig := deleteObject
	t.Cleanup(func() { deleteObject = orig })
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		got = in
		return &s3.DeleteObjectOutput{}, nil
	}

	store := NewS3(S3Config{PublicBaseURL: "https://cdn.example.com", Bucket: "avatars-bucket"})

	err := store.Delete(context.Background(), "https://cdn.example.com/avatars/u1.png")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "avatars/u1.png", *got.Key)
}

func TestS3DeleteIgnoresForeignURL(t *testing.T) {
	stubClient(t)

	called := false
	orig := deleteObject
	t.Cleanup(func() { deleteObject = orig })
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		called = true
		return &s3.DeleteObjectOutput{}, nil
	}

	store := NewS3(S3Config{PublicBaseURL: "https://cdn.example.com", Bucket: "avatars-bucket"})

	err := store.Delete(context.Background(), "https://elsewhere.example.com/avatars/u1.png")
	require.NoError(t, err)
	assert.False(t, called, "foreign URLs must not trigger deletes")
}
