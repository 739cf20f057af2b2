package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"starry night.jpg", "starry_night.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\mona lisa.png`, "mona_lisa.png"},
		{"", "upload.jpg"},
		{"...", "upload.jpg"},
		{"café.webp", "caf_.webp"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, SanitizeFilename(tc.in))
		})
	}
}

func TestObjectKey_UniquePrefix(t *testing.T) {
	t.Parallel()

	a := ObjectKey("painting.jpg")
	b := ObjectKey("painting.jpg")
	assert.NotEqual(t, a, b)

	prefix, name, ok := strings.Cut(a, "_")
	require.True(t, ok)
	_, err := uuid.Parse(prefix)
	assert.NoError(t, err)
	assert.Equal(t, "painting.jpg", name)
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	body    []byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_UploadAndDelete(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{}
	st := &S3{client: fake, bucket: "paintings", publicBase: "http://127.0.0.1:9000"}

	url, err := st.Upload(context.Background(), "k_painting.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/paintings/k_painting.jpg", url)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "image/jpeg", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, []byte("jpeg"), fake.body)

	require.NoError(t, st.Delete(context.Background(), "k_painting.jpg"))
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, "k_painting.jpg", aws.ToString(fake.deletes[0].Key))
}

func TestS3_ErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	st := &S3{client: &fakeS3{err: boom}, bucket: "paintings", publicBase: "http://minio"}

	_, err := st.Upload(context.Background(), "k", "image/jpeg", nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, st.Delete(context.Background(), "k"), boom)
}
