package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hyperdim/hdql/blobstore"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	objects map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (f *fakeClient) PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.objects[*params.Key] = data

	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	return &awss3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (f *fakeClient) HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	if _, ok := f.objects[*params.Key]; !ok {
		return nil, &types.NotFound{}
	}

	return &awss3.HeadObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	delete(f.objects, *params.Key)

	return &awss3.DeleteObjectOutput{}, nil
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		s := NewStore(newFakeClient(), "bucket", "snapshots")

		require.NoError(t, s.Put(ctx, "main.snap", strings.NewReader("payload")))

		rc, err := s.Get(ctx, "main.snap")
		require.NoError(t, err)

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.Equal(t, "payload", string(data))
	})

	t.Run("PrefixApplied", func(t *testing.T) {
		fake := newFakeClient()
		s := NewStore(fake, "bucket", "snapshots")

		require.NoError(t, s.Put(ctx, "main.snap", strings.NewReader("x")))
		require.Contains(t, fake.objects, "snapshots/main.snap")
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := NewStore(newFakeClient(), "bucket", "")

		_, err := s.Get(ctx, "missing")
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewStore(newFakeClient(), "bucket", "")

		require.NoError(t, s.Put(ctx, "blob", strings.NewReader("x")))
		require.NoError(t, s.Delete(ctx, "blob"))
		require.ErrorIs(t, s.Delete(ctx, "blob"), blobstore.ErrNotFound)
	})
}
