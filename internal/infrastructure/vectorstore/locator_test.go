package vectorstore

import (
	"context"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func TestDiscoverListsSubdirectoriesSorted(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, dir := range []string{"vector_store/italy", "vector_store/estonia", "vector_store/slovenia"} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := afero.WriteFile(fs, "vector_store/README.txt", []byte("not a store"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	dirs, err := NewLocator(fs).Discover(context.Background(), "vector_store")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{"vector_store/estonia", "vector_store/italy", "vector_store/slovenia"}
	if !reflect.DeepEqual(dirs, want) {
		t.Fatalf("expected %v, got %v", want, dirs)
	}
}

func TestDiscoverTreatsMissingBaseAsEmpty(t *testing.T) {
	dirs, err := NewLocator(afero.NewMemMapFs()).Discover(context.Background(), "vector_store")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(dirs) != 0 {
		t.Fatalf("expected no dirs, got %v", dirs)
	}
}

func TestDiscoverEmptyBase(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("vector_store", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	dirs, err := NewLocator(fs).Discover(context.Background(), "vector_store")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(dirs) != 0 {
		t.Fatalf("expected no dirs, got %v", dirs)
	}
}

func TestDiscoverRespectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLocator(afero.NewMemMapFs()).Discover(ctx, "vector_store"); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestCollectionName(t *testing.T) {
	if got := CollectionName("vector_store/italy/"); got != "italy" {
		t.Fatalf("expected italy, got %q", got)
	}
}
