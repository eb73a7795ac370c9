package services

import (
  "context"
  "net"
  "net/http"
  "net/http/httptest"
  "strings"
  "sync/atomic"
  "testing"

  "github.com/google/uuid"
  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/types"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Physics Weekly</title>
    <link>https://physics.example.com</link>
    <item><title>Wave optics</title><link>https://physics.example.com/optics</link></item>
    <item><title>No link here</title></item>
    <item><title></title><link>https://physics.example.com/untitled</link></item>
    <item><title>Thermodynamics</title><link>https://physics.example.com/thermo</link></item>
  </channel>
</rss>`

func newContentServer(t *testing.T) *httptest.Server {
  mux := http.NewServeMux()
  mux.HandleFunc("/og", func(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "text/html")
    w.Write([]byte(`<html><head><title>Plain</title><meta property="og:title" content="Calculus Notes"></head></html>`))
  })
  mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "text/html")
    w.Write([]byte(`<html><head><title>  Organic Chemistry </title></head><body></body></html>`))
  })
  mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
    http.NotFound(w, r)
  })
  mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "application/rss+xml")
    w.Write([]byte(testFeed))
  })
  srv := httptest.NewServer(mux)
  t.Cleanup(srv.Close)
  return srv
}

func TestFromUploadWithoutBucket(t *testing.T) {
  rs := NewResourceService(logger.NewNop(), nil, nil)
  content := []byte("%PDF-1.4 test")
  res, err := rs.FromUpload(context.Background(), uuid.New(), "lecture.pdf", "application/pdf", content)
  require.NoError(t, err)
  assert.Equal(t, types.ResourceTypePDF, res.Type)
  assert.Equal(t, "lecture.pdf", res.Name)
  assert.True(t, strings.HasPrefix(res.URL, "data:application/pdf;base64,"))
  assert.Empty(t, res.BucketKey)
  assert.Equal(t, "0.0 MB", res.Size)
  assert.NotEmpty(t, res.ID)
}

func TestFromUploadWithBucket(t *testing.T) {
  bucket := newFakeBucket()
  rs := NewResourceService(logger.NewNop(), bucket, nil)
  userID := uuid.New()
  res, err := rs.FromUpload(context.Background(), userID, "../clip.mp4", "video/mp4", []byte("video-bytes"))
  require.NoError(t, err)
  assert.Equal(t, types.ResourceTypeVideo, res.Type)
  assert.Equal(t, "clip.mp4", res.Name)
  assert.Contains(t, res.BucketKey, userID.String())
  assert.Equal(t, "https://bucket.test/"+res.BucketKey, res.URL)
  assert.Equal(t, []byte("video-bytes"), bucket.uploaded[res.BucketKey])
}

func TestFromUploadRejectsEmpty(t *testing.T) {
  rs := NewResourceService(logger.NewNop(), nil, nil)
  _, err := rs.FromUpload(context.Background(), uuid.New(), "a.pdf", "application/pdf", nil)
  assert.Error(t, err)
}

func TestFromLinkResolvesTitle(t *testing.T) {
  srv := newContentServer(t)
  rs := NewResourceService(logger.NewNop(), nil, srv.Client())

  res, err := rs.FromLink(context.Background(), srv.URL+"/og", "")
  require.NoError(t, err)
  assert.Equal(t, "Calculus Notes", res.Name)
  assert.Equal(t, types.ResourceTypeLink, res.Type)

  res, err = rs.FromLink(context.Background(), srv.URL+"/plain", "")
  require.NoError(t, err)
  assert.Equal(t, "Organic Chemistry", res.Name)

  res, err = rs.FromLink(context.Background(), srv.URL+"/missing", "")
  require.NoError(t, err)
  assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), res.Name)

  res, err = rs.FromLink(context.Background(), srv.URL+"/og", "My name")
  require.NoError(t, err)
  assert.Equal(t, "My name", res.Name)
}

func TestFromLinkRejectsNonHTTP(t *testing.T) {
  rs := NewResourceService(logger.NewNop(), nil, nil)
  _, err := rs.FromLink(context.Background(), "ftp://files.example.com/a", "x")
  assert.Error(t, err)
  _, err = rs.FromLink(context.Background(), "not a url", "x")
  assert.Error(t, err)
}

func TestFromFeed(t *testing.T) {
  srv := newContentServer(t)
  rs := NewResourceService(logger.NewNop(), nil, srv.Client())

  items, err := rs.FromFeed(context.Background(), srv.URL+"/feed.xml", 0)
  require.NoError(t, err)
  require.Len(t, items, 3)
  assert.Equal(t, "Wave optics", items[0].Name)
  assert.Equal(t, "https://physics.example.com/untitled", items[1].Name)
  assert.Equal(t, "Thermodynamics", items[2].Name)
  for i, it := range items {
    assert.Equal(t, types.ResourceTypeLink, it.Type)
    if i > 0 {
      assert.Greater(t, it.UploadedAt, items[i-1].UploadedAt)
    }
  }

  limited, err := rs.FromFeed(context.Background(), srv.URL+"/feed.xml", 1)
  require.NoError(t, err)
  assert.Len(t, limited, 1)
}

func TestFromFeedBadStatus(t *testing.T) {
  srv := newContentServer(t)
  rs := NewResourceService(logger.NewNop(), nil, srv.Client())
  _, err := rs.FromFeed(context.Background(), srv.URL+"/missing", 5)
  assert.Error(t, err)
}

func TestDefaultClientRefusesInternalAddresses(t *testing.T) {
  var hits atomic.Int32
  srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    hits.Add(1)
    w.Write([]byte(testFeed))
  }))
  t.Cleanup(srv.Close)
  rs := NewResourceService(logger.NewNop(), nil, nil)

  _, err := rs.FromFeed(context.Background(), srv.URL+"/feed.xml", 5)
  require.Error(t, err)
  assert.ErrorIs(t, err, ErrNonPublicAddress)

  // the link is still saved, but its title is never fetched
  res, err := rs.FromLink(context.Background(), srv.URL+"/og", "")
  require.NoError(t, err)
  assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), res.Name)

  _, err = rs.FromFeed(context.Background(), "http://169.254.169.254/computeMetadata/v1/", 5)
  assert.ErrorIs(t, err, ErrNonPublicAddress)
  assert.Zero(t, hits.Load())
}

func TestIsPublicIP(t *testing.T) {
  blocked := []string{"127.0.0.1", "10.1.2.3", "172.16.0.9", "192.168.1.1", "169.254.169.254", "100.64.0.1", "0.0.0.0", "::1", "fe80::1", "fd00::1"}
  for _, addr := range blocked {
    assert.False(t, isPublicIP(net.ParseIP(addr)), addr)
  }
  for _, addr := range []string{"8.8.8.8", "142.250.72.14", "2606:4700:4700::1111"} {
    assert.True(t, isPublicIP(net.ParseIP(addr)), addr)
  }
}
