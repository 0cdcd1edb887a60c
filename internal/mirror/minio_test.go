package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	"notebrief/internal/config"
	"notebrief/internal/services"
)

type fakeStore struct {
	exists     bool
	existsErr  error
	made       []string
	putErr     error
	puts       []string
	putOptions []minio.PutObjectOptions
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.exists = true
	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, bucket, object, _ string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	f.puts = append(f.puts, bucket+"/"+object)
	f.putOptions = append(f.putOptions, opts)
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: 10}, nil
}

func TestUploadCreatesBucketOnceAndAppliesPrefix(t *testing.T) {
	fake := &fakeStore{}
	store := newStore(fake, config.Mirror{Bucket: "reports", Prefix: "/notebrief/"}, nil)

	for _, key := range []string{"a_analysis.md", "b_analysis.md"} {
		if err := store.Upload(context.Background(), key, "/tmp/"+key); err != nil {
			t.Fatalf("Upload: %v", err)
		}
	}
	if len(fake.made) != 1 {
		t.Fatalf("expected bucket created once, got %v", fake.made)
	}
	if fake.puts[0] != "reports/notebrief/a_analysis.md" {
		t.Fatalf("unexpected object %q", fake.puts[0])
	}
	if fake.putOptions[0].ContentType != "text/markdown" {
		t.Fatalf("unexpected content type %q", fake.putOptions[0].ContentType)
	}
}

func TestUploadFailureIsExternalTool(t *testing.T) {
	fake := &fakeStore{exists: true, putErr: errors.New("access denied")}
	store := newStore(fake, config.Mirror{Bucket: "reports"}, nil)
	err := store.Upload(context.Background(), "x.md", "/tmp/x.md")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	fake = &fakeStore{existsErr: errors.New("dial tcp: refused")}
	store = newStore(fake, config.Mirror{Bucket: "reports"}, nil)
	if err := store.Upload(context.Background(), "x.md", "/tmp/x.md"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestObjectKeyWithoutPrefix(t *testing.T) {
	store := newStore(&fakeStore{}, config.Mirror{Bucket: "reports"}, nil)
	if got := store.ObjectKey("a.md"); got != "a.md" {
		t.Fatalf("ObjectKey = %q", got)
	}
}
