package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"alfredoptarigan/resumatch/internal/config"
)

func TestLocalArchive_StoreAndRemove(t *testing.T) {
	root := t.TempDir()
	archive, err := NewLocalArchive(root)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}

	key, err := archive.Store(context.Background(), "user_abc", "CV Final.DOCX", []byte("docx bytes"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !strings.HasPrefix(key, "user_abc/") || !strings.HasSuffix(key, ".docx") {
		t.Fatalf("unexpected key %q", key)
	}

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(stored) != "docx bytes" {
		t.Fatalf("unexpected content %q", stored)
	}

	if err := archive.Remove(context.Background(), key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := archive.Remove(context.Background(), key); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(key))); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file should be gone, stat err = %v", err)
	}
}

func TestNewResumeArchive_Drivers(t *testing.T) {
	archive, err := NewResumeArchive(context.Background(), config.StorageConfig{Driver: ""})
	if err != nil {
		t.Fatalf("none driver: %v", err)
	}
	key, err := archive.Store(context.Background(), "u", "a.pdf", []byte("x"))
	if err != nil || key != "" {
		t.Fatalf("none driver should store nothing, got %q %v", key, err)
	}

	if _, err := NewResumeArchive(context.Background(), config.StorageConfig{Driver: "ftp"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := NewResumeArchive(context.Background(), config.StorageConfig{Driver: "s3"}); err == nil {
		t.Fatal("expected error for s3 driver without bucket")
	}
}

type fakeObjectStore struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
}

func (f *fakeObjectStore) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectStore) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Archive_StoreAndRemove(t *testing.T) {
	store := &fakeObjectStore{}
	archive := &s3Archive{client: store, bucket: "resumes"}

	key, err := archive.Store(context.Background(), "user_1", "cv.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	put := store.puts[0]
	if aws.ToString(put.Bucket) != "resumes" || aws.ToString(put.Key) != key {
		t.Fatalf("unexpected put %+v", put)
	}
	if aws.ToString(put.ContentType) != "application/pdf" {
		t.Fatalf("unexpected content type %q", aws.ToString(put.ContentType))
	}

	if err := archive.Remove(context.Background(), key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if aws.ToString(store.deletes[0].Key) != key {
		t.Fatalf("unexpected delete %+v", store.deletes[0])
	}
}
