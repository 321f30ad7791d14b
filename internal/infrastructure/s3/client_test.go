package s3infra

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-push-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	body []byte
	meta map[string]string
}

type fakeS3 struct {
	objects map[string]object
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string]object{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	o, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(o.body)), Metadata: o.meta}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = object{body: b, meta: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestStore_PutGetDelete(t *testing.T) {
	f := newFakeS3()
	s := NewStore(f, "bucket", "push/")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "index:recipients", []byte(`["u1"]`), 0))
	_, stored := f.objects["push/index:recipients"]
	assert.True(t, stored)

	got, err := s.Get(ctx, "index:recipients")
	require.NoError(t, err)
	assert.Equal(t, `["u1"]`, string(got))

	require.NoError(t, s.Delete(ctx, "index:recipients"))
	_, err = s.Get(ctx, "index:recipients")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_ExpiryEnforcedOnRead(t *testing.T) {
	f := newFakeS3()
	s := NewStore(f, "bucket", "")
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, "1700000060", f.objects["k"].meta[metaExpiresAt])

	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "k")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_Ping(t *testing.T) {
	assert.NoError(t, NewStore(newFakeS3(), "bucket", "").Ping(context.Background()))
}
