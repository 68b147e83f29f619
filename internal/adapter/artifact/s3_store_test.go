package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

func TestNewS3StoreValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
	}{
		{"missing endpoint", S3Config{AccessKey: "a", SecretKey: "s", Bucket: "b"}},
		{"missing keys", S3Config{Endpoint: "localhost:9000", Bucket: "b"}},
		{"missing bucket", S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Store(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestS3StoreLocation(t *testing.T) {
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "prds"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)

	loc := s.Location("run_1", domain.ArtifactConversation)
	assert.Equal(t, "s3://prds/runs/run_1/conversation.json", loc)
	assert.Empty(t, s.Location("run_1", "slides"))

	key, err := s.objectKey(loc)
	require.NoError(t, err)
	assert.Equal(t, "runs/run_1/conversation.json", key)
}

func TestS3StoreRejectsForeignLocation(t *testing.T) {
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "prds"})
	require.NoError(t, err)

	err = s.Write(context.Background(), "s3://other/runs/run_1/PRD.md", []byte("x"))
	assert.ErrorIs(t, err, ErrForeignLocation)

	_, err = s.Read(context.Background(), "s3://prds/runs/../secrets")
	assert.ErrorIs(t, err, ErrForeignLocation)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", contentType("runs/r/PRD.pdf"))
	assert.Equal(t, "application/zip", contentType("runs/r/bundle.zip"))
	assert.Equal(t, "application/octet-stream", contentType("runs/r/blob"))
}
