package services

import (
  "bytes"
  "context"
  "encoding/base64"
  "errors"
  "fmt"
  "io"
  "net/url"
  "strings"

  "cloud.google.com/go/storage"
  "google.golang.org/api/option"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

type BucketService interface {
  UploadFile(ctx context.Context, key, contentType string, r io.Reader) error
  DeleteFile(ctx context.Context, key string) error
  GetPublicURL(key string) string
  Close() error
}

type bucketService struct {
  log        *logger.Logger
  client     *storage.Client
  bucketName string
  publicBase string
}

// NewBucketService opens a GCS client for bucketName. credentialsFile may be empty to use the
// ambient application default credentials.
func NewBucketService(ctx context.Context, log *logger.Logger, bucketName, credentialsFile, publicBase string) (BucketService, error) {
  serviceLog := log.With("service", "BucketService", "bucket", bucketName)
  if bucketName == "" {
    return nil, fmt.Errorf("bucket name is empty")
  }
  var opts []option.ClientOption
  if credentialsFile != "" {
    opts = append(opts, option.WithCredentialsFile(credentialsFile))
  }
  client, err := storage.NewClient(ctx, opts...)
  if err != nil {
    return nil, fmt.Errorf("failed to create storage client: %w", err)
  }
  if publicBase == "" {
    publicBase = "https://storage.googleapis.com/" + bucketName
  }
  serviceLog.Info("Bucket service ready :)")
  return &bucketService{
    log:        serviceLog,
    client:     client,
    bucketName: bucketName,
    publicBase: strings.TrimRight(publicBase, "/"),
  }, nil
}

func (bs *bucketService) UploadFile(ctx context.Context, key, contentType string, r io.Reader) error {
  bs.log.Info("Uploading object now...", "key", key)
  w := bs.client.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
  if contentType != "" {
    w.ContentType = contentType
  }
  if _, err := io.Copy(w, r); err != nil {
    _ = w.Close()
    bs.log.Warn("Failed to write object", "key", key, "error", err)
    return fmt.Errorf("failed to write object %s: %w", key, err)
  }
  if err := w.Close(); err != nil {
    bs.log.Warn("Failed to finalize object", "key", key, "error", err)
    return fmt.Errorf("failed to finalize object %s: %w", key, err)
  }
  bs.log.Info("Object uploaded :)", "key", key)
  return nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, key string) error {
  if key == "" {
    return nil
  }
  err := bs.client.Bucket(bs.bucketName).Object(key).Delete(ctx)
  if errors.Is(err, storage.ErrObjectNotExist) {
    return nil
  }
  if err != nil {
    bs.log.Warn("Failed to delete object", "key", key, "error", err)
    return fmt.Errorf("failed to delete object %s: %w", key, err)
  }
  return nil
}

func (bs *bucketService) GetPublicURL(key string) string {
  segments := strings.Split(key, "/")
  for i, s := range segments {
    segments[i] = url.PathEscape(s)
  }
  return bs.publicBase + "/" + strings.Join(segments, "/")
}

func (bs *bucketService) Close() error {
  return bs.client.Close()
}

// DataURL inlines content as a base64 data URL. Used when no bucket is configured.
func DataURL(contentType string, content []byte) string {
  if contentType == "" {
    contentType = "application/octet-stream"
  }
  return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// storeObject uploads content under key when a bucket is available and returns the URL and
// key to persist. Without a bucket it falls back to a data URL and an empty key.
func storeObject(ctx context.Context, bucket BucketService, key, contentType string, content []byte) (string, string, error) {
  if bucket == nil {
    return DataURL(contentType, content), "", nil
  }
  if err := bucket.UploadFile(ctx, key, contentType, bytes.NewReader(content)); err != nil {
    return "", "", err
  }
  return bucket.GetPublicURL(key), key, nil
}
