package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
)

type fakeAPI struct {
	put     *s3.PutObjectInput
	body    []byte
	putErr  error
	headErr error
	headFor string
}

func (f *fakeAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.headFor = aws.ToString(params.Bucket)
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestPutStoresObject(t *testing.T) {
	api := &fakeAPI{}
	client := newClient(api, config.StorageConfig{Bucket: "pickups", Region: "ap-south-1"})

	obj, err := client.Put(context.Background(), "/vatavaran/pickups/a.png", "image/png", bytes.NewReader([]byte("png")), 3)
	require.NoError(t, err)

	assert.Equal(t, "vatavaran/pickups/a.png", obj.Key)
	assert.Equal(t, "https://pickups.s3.ap-south-1.amazonaws.com/vatavaran/pickups/a.png", obj.URL)
	require.NotNil(t, api.put)
	assert.Equal(t, "pickups", aws.ToString(api.put.Bucket))
	assert.Equal(t, "image/png", aws.ToString(api.put.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(api.put.ContentLength))
	assert.Equal(t, []byte("png"), api.body)
}

func TestPutWrapsFailure(t *testing.T) {
	api := &fakeAPI{putErr: errors.New("access denied")}
	client := newClient(api, config.StorageConfig{Bucket: "pickups"})

	_, err := client.Put(context.Background(), "k.png", "image/png", bytes.NewReader(nil), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, err = client.Put(context.Background(), "  ", "image/png", bytes.NewReader(nil), 0)
	require.Error(t, err)
}

func TestObjectURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "public base",
			cfg:  config.StorageConfig{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com/p/my%20file.png",
		},
		{
			name: "path style endpoint",
			cfg:  config.StorageConfig{Bucket: "b", Endpoint: "http://localhost:9000", UsePathStyle: true},
			want: "http://localhost:9000/b/p/my%20file.png",
		},
		{
			name: "virtual host endpoint",
			cfg:  config.StorageConfig{Bucket: "b", Endpoint: "https://r2.example.com"},
			want: "https://b.r2.example.com/p/my%20file.png",
		},
		{
			name: "aws default",
			cfg:  config.StorageConfig{Bucket: "b", Region: "eu-central-1"},
			want: "https://b.s3.eu-central-1.amazonaws.com/p/my%20file.png",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newClient(&fakeAPI{}, tc.cfg)
			assert.Equal(t, tc.want, client.ObjectURL("p/my file.png"))
		})
	}
}

func TestPing(t *testing.T) {
	api := &fakeAPI{}
	client := newClient(api, config.StorageConfig{Bucket: "pickups"})
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "pickups", api.headFor)

	api.headErr = errors.New("not found")
	require.Error(t, client.Ping(context.Background()))

	var nilClient *Client
	require.Error(t, nilClient.Ping(context.Background()))
}
