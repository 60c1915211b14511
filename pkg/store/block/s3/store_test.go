package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sujala/deuce/pkg/store/block"
)

const testBucket = "deuce-test"

var sharedStore *Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "localstack/localstack:3",
		ExposedPorts: []string{"4566/tcp"},
		Env: map[string]string{
			"SERVICES": "s3",
		},
		WaitingFor: wait.ForListeningPort("4566/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start localstack container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to load aws config: %v\n", err)
		os.Exit(1)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(testBucket)}); err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to create bucket: %v\n", err)
		os.Exit(1)
	}

	sharedStore, err = New(ctx, Config{Client: client, Bucket: testBucket})
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to construct store: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestStore_PutOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	data := []byte("hello block")

	storageID, err := sharedStore.Put(ctx, "proj1", "vault1", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if storageID == "" {
		t.Fatal("expected non-empty storage id")
	}

	rc, err := sharedStore.Open(ctx, "proj1", "vault1", storageID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestStore_OpenMissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	_, err := sharedStore.Open(ctx, "proj1", "vault1", "does-not-exist")
	if !errors.Is(err, block.ErrNotFound) {
		t.Fatalf("got %v, want block.ErrNotFound", err)
	}
}

func TestStore_ExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	storageID, err := sharedStore.Put(ctx, "proj2", "vault1", []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := sharedStore.Exists(ctx, "proj2", "vault1", storageID)
	if err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}

	if err := sharedStore.Delete(ctx, "proj2", "vault1", storageID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	ok, err = sharedStore.Exists(ctx, "proj2", "vault1", storageID)
	if err != nil || ok {
		t.Fatalf("Exists after delete: ok=%v err=%v", ok, err)
	}

	// Deleting an already-deleted object is not an error.
	if err := sharedStore.Delete(ctx, "proj2", "vault1", storageID); err != nil {
		t.Fatalf("Delete (repeat): %v", err)
	}
}

func TestStore_ScopedByProjectAndVault(t *testing.T) {
	ctx := context.Background()
	storageID, err := sharedStore.Put(ctx, "proj3", "vaultA", []byte("a"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := sharedStore.Exists(ctx, "proj3", "vaultB", storageID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("expected object not to be visible under a different vault")
	}
}
