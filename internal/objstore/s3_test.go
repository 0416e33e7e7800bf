package objstore

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeS3Client(t *testing.T) (*s3.S3, string) {
	t.Helper()

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	ts := httptest.NewServer(faker.Server())
	t.Cleanup(ts.Close)

	s3Config := &aws.Config{
		Credentials: credentials.NewStaticCredentials(
			"TEST-ACCESSKEYID",
			"TEST-SECRETACCESSKEY",
			"",
		),
		Endpoint:         aws.String(ts.URL),
		Region:           aws.String("us-east-1"),
		DisableSSL:       aws.Bool(true),
		S3ForcePathStyle: aws.Bool(true),
	}
	sess, err := session.NewSession(s3Config)
	require.NoError(t, err)
	client := s3.New(sess)

	bucket := "docvault-test"
	_, err = client.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)
	return client, bucket
}

func TestS3_PutGetDelete(t *testing.T) {
	client, bucket := fakeS3Client(t)
	store := NewS3(client, bucket, "documents/")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "doc-1", []byte("payload")))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, store.Delete(ctx, "doc-1"))

	_, err = store.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3_GetMissingKey(t *testing.T) {
	client, bucket := fakeS3Client(t)
	store := NewS3(client, bucket, "")

	_, err := store.Get(context.Background(), "never-stored")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3_Copy(t *testing.T) {
	client, bucket := fakeS3Client(t)
	store := NewS3(client, bucket, "documents/")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "doc-1", []byte("v1 content")))
	require.NoError(t, store.Copy(ctx, "doc-1", "doc-1.v1"))

	got, err := store.Get(ctx, "doc-1.v1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1 content"), got)
}

func TestS3_CopyMissingSource(t *testing.T) {
	client, bucket := fakeS3Client(t)
	store := NewS3(client, bucket, "")

	err := store.Copy(context.Background(), "nope", "dest")
	assert.Error(t, err)
}
