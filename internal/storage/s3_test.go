package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/OFFIS-RIT/sciradar/pkg/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects  map[string][]byte
	getCalls int
	failPuts int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.getCalls++
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPuts > 0 {
		f.failPuts--
		return nil, errors.New("connection reset")
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	client := newFakeS3()
	s := NewS3Store(client, "bucket", "snapshots")
	ctx := context.Background()
	key := "zika_2010-1 to 2010-3_co_citation"

	if _, err := s.Get(ctx, key); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before put, got %v", err)
	}

	client.failPuts = 2
	if err := s.Put(ctx, key, []byte("{}")); err != nil {
		t.Fatalf("expected put to succeed after retries, got %v", err)
	}
	if _, ok := client.objects["snapshots/"+key+".json"]; !ok {
		t.Fatalf("expected prefixed object key, got %v", client.objects)
	}

	data, err := s.Get(ctx, key)
	if err != nil || string(data) != "{}" {
		t.Fatalf("unexpected data %q, err %v", data, err)
	}
}

func TestS3StoreMissingKeyNotRetried(t *testing.T) {
	client := newFakeS3()
	s := NewS3Store(client, "bucket", "")

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if client.getCalls != 1 {
		t.Fatalf("expected a single GetObject call, got %d", client.getCalls)
	}
}

func TestS3StoreRejectsPathKeys(t *testing.T) {
	s := NewS3Store(newFakeS3(), "bucket", "")
	if err := s.Put(context.Background(), "a/b", nil); err == nil {
		t.Fatal("expected error for key containing a slash")
	}
}
