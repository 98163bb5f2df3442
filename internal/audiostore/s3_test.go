package audiostore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[*in.Key] = data
	if in.ContentType != nil {
		f.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreUploadsAndDeletes(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	store := newS3(fake, S3Config{Bucket: "kiosk", Prefix: "narration/", URLTTL: time.Minute}, zerolog.Nop())
	store.presign = func(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
		return "https://" + bucket + ".s3.local/" + key + "?ttl=" + ttl.String(), nil
	}

	url, err := store.Put(context.Background(), []byte("mp3"), "audio/mpeg")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(url, "https://kiosk.s3.local/narration/") {
		t.Fatalf("unexpected url %q", url)
	}
	if len(fake.objects) != 1 {
		t.Fatalf("expected one object, got %d", len(fake.objects))
	}
	for key, ct := range fake.types {
		if !strings.HasSuffix(key, ".mp3") || ct != "audio/mpeg" {
			t.Fatalf("unexpected object %q %q", key, ct)
		}
	}

	if err := store.Revoke(context.Background(), url); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if len(fake.objects) != 0 {
		t.Fatal("expected object deleted")
	}
	if err := store.Revoke(context.Background(), "https://elsewhere/x.mp3"); err != nil {
		t.Fatalf("unknown url revoke: %v", err)
	}
}

func TestS3StoreUploadFailure(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}, putErr: errors.New("access denied")}
	store := newS3(fake, S3Config{Bucket: "kiosk"}, zerolog.Nop())
	store.presign = func(context.Context, string, string, time.Duration) (string, error) {
		t.Fatal("presign called after failed upload")
		return "", nil
	}

	if _, err := store.Put(context.Background(), []byte("mp3"), "audio/mpeg"); err == nil {
		t.Fatal("expected upload failure")
	}
}
