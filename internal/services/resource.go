package services

import (
  "bytes"
  "context"
  "errors"
  "fmt"
  "io"
  "net"
  "net/http"
  "net/url"
  "path"
  "strings"
  "syscall"
  "time"

  "github.com/PuerkitoBio/goquery"
  "github.com/google/uuid"
  "github.com/mmcdole/gofeed"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/types"
)

const (
  MaxUploadBytes   = 50 << 20
  maxPageBytes     = 2 << 20
  maxFeedBytes     = 5 << 20
  DefaultFeedLimit = 20
  maxRedirects     = 5
)

var ErrNonPublicAddress = errors.New("address is not publicly routable")

// carrier-grade NAT, not covered by net.IP.IsPrivate
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// ResourceService turns uploads, links and feeds into library entries. It does not persist them.
type ResourceService interface {
  FromUpload(ctx context.Context, userID uuid.UUID, filename, contentType string, content []byte) (types.Resource, error)
  FromLink(ctx context.Context, rawURL, name string) (types.Resource, error)
  FromFeed(ctx context.Context, feedURL string, limit int) ([]types.Resource, error)
}

type resourceService struct {
  log        *logger.Logger
  bucket     BucketService
  httpClient *http.Client
  parser     *gofeed.Parser
  now        func() time.Time
}

// NewResourceService builds the resource factory. bucket may be nil, uploads then become data URLs.
// A nil httpClient gets one that only dials public addresses.
func NewResourceService(log *logger.Logger, bucket BucketService, httpClient *http.Client) ResourceService {
  if httpClient == nil {
    httpClient = newPublicHTTPClient(15 * time.Second)
  }
  return &resourceService{
    log:        log.With("service", "ResourceService"),
    bucket:     bucket,
    httpClient: httpClient,
    parser:     gofeed.NewParser(),
    now:        time.Now,
  }
}

func (rs *resourceService) FromUpload(ctx context.Context, userID uuid.UUID, filename, contentType string, content []byte) (types.Resource, error) {
  if len(content) == 0 {
    return types.Resource{}, fmt.Errorf("uploaded file is empty")
  }
  if len(content) > MaxUploadBytes {
    return types.Resource{}, fmt.Errorf("uploaded file is larger than %d MB", MaxUploadBytes>>20)
  }
  if contentType == "" {
    contentType = http.DetectContentType(content)
  }
  name := strings.TrimSpace(path.Base(filename))
  if name == "" || name == "." || name == "/" {
    name = "untitled"
  }

  id := uuid.NewString()
  key := fmt.Sprintf("resources/%s/%s/%s", userID.String(), id, name)
  finalURL, storedKey, err := storeObject(ctx, rs.bucket, key, contentType, content)
  if err != nil {
    return types.Resource{}, fmt.Errorf("failed to store upload: %w", err)
  }
  rs.log.Info("Upload stored", "userID", userID, "name", name, "bytes", len(content), "bucket", storedKey != "")

  return types.Resource{
    ID:         id,
    Name:       name,
    Type:       types.ResourceTypeForMIME(contentType),
    URL:        finalURL,
    Size:       types.FormatSizeMB(int64(len(content))),
    UploadedAt: rs.now().UnixMilli(),
    BucketKey:  storedKey,
  }, nil
}

// FromLink builds a link resource. Without a name the page title is looked up, falling
// back to the host.
func (rs *resourceService) FromLink(ctx context.Context, rawURL, name string) (types.Resource, error) {
  u, err := parseHTTPURL(rawURL)
  if err != nil {
    return types.Resource{}, err
  }
  name = strings.TrimSpace(name)
  if name == "" {
    title, tErr := rs.pageTitle(ctx, u.String())
    if tErr != nil {
      rs.log.Debug("Could not resolve page title", "url", u.String(), "error", tErr)
    }
    name = title
  }
  if name == "" {
    name = u.Host
  }
  return types.Resource{
    ID:         uuid.NewString(),
    Name:       name,
    Type:       types.ResourceTypeLink,
    URL:        u.String(),
    UploadedAt: rs.now().UnixMilli(),
  }, nil
}

// FromFeed reads an RSS, Atom or JSON feed and returns up to limit items as link resources.
func (rs *resourceService) FromFeed(ctx context.Context, feedURL string, limit int) ([]types.Resource, error) {
  u, err := parseHTTPURL(feedURL)
  if err != nil {
    return nil, err
  }
  if limit <= 0 {
    limit = DefaultFeedLimit
  }
  body, err := rs.fetch(ctx, u.String(), maxFeedBytes)
  if err != nil {
    return nil, err
  }
  feed, err := rs.parser.Parse(bytes.NewReader(body))
  if err != nil {
    return nil, fmt.Errorf("failed to parse feed: %w", err)
  }

  // Items keep feed order; uploadedAt increases so the library lists them the same way.
  base := rs.now().UnixMilli()
  out := make([]types.Resource, 0, limit)
  for _, item := range feed.Items {
    if len(out) == limit {
      break
    }
    if item == nil || strings.TrimSpace(item.Link) == "" {
      continue
    }
    name := strings.TrimSpace(item.Title)
    if name == "" {
      name = item.Link
    }
    out = append(out, types.Resource{
      ID:         uuid.NewString(),
      Name:       name,
      Type:       types.ResourceTypeLink,
      URL:        strings.TrimSpace(item.Link),
      UploadedAt: base + int64(len(out)),
    })
  }
  rs.log.Info("Feed imported", "url", u.String(), "feedTitle", feed.Title, "items", len(out))
  return out, nil
}

func (rs *resourceService) pageTitle(ctx context.Context, pageURL string) (string, error) {
  body, err := rs.fetch(ctx, pageURL, maxPageBytes)
  if err != nil {
    return "", err
  }
  doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
  if err != nil {
    return "", err
  }
  if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
    return strings.TrimSpace(og), nil
  }
  return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (rs *resourceService) fetch(ctx context.Context, target string, limit int64) ([]byte, error) {
  req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
  if err != nil {
    return nil, err
  }
  req.Header.Set("User-Agent", "AristoBot/1.0")
  resp, err := rs.httpClient.Do(req)
  if err != nil {
    return nil, err
  }
  defer resp.Body.Close()
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return nil, fmt.Errorf("status=%d fetching %s", resp.StatusCode, target)
  }
  return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func parseHTTPURL(raw string) (*url.URL, error) {
  u, err := url.Parse(strings.TrimSpace(raw))
  if err != nil {
    return nil, fmt.Errorf("invalid url: %w", err)
  }
  if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
    return nil, fmt.Errorf("url must be an absolute http(s) address")
  }
  return u, nil
}

// newPublicHTTPClient refuses loopback, private, link-local and other internal targets. The
// check runs on the resolved address at dial time, so redirects and DNS tricks hit it too.
func newPublicHTTPClient(timeout time.Duration) *http.Client {
  dialer := &net.Dialer{
    Timeout: 10 * time.Second,
    Control: func(network, address string, _ syscall.RawConn) error {
      host, _, err := net.SplitHostPort(address)
      if err != nil {
        return err
      }
      ip := net.ParseIP(host)
      if ip == nil || !isPublicIP(ip) {
        return fmt.Errorf("%w: %s", ErrNonPublicAddress, host)
      }
      return nil
    },
  }
  return &http.Client{
    Timeout: timeout,
    Transport: &http.Transport{
      DialContext:         dialer.DialContext,
      TLSHandshakeTimeout: 10 * time.Second,
      MaxIdleConns:        10,
      IdleConnTimeout:     90 * time.Second,
    },
    CheckRedirect: func(req *http.Request, via []*http.Request) error {
      if len(via) >= maxRedirects {
        return fmt.Errorf("stopped after %d redirects", maxRedirects)
      }
      if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
        return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
      }
      return nil
    },
  }
}

func isPublicIP(ip net.IP) bool {
  if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
    ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
    ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
    return false
  }
  if ip4 := ip.To4(); ip4 != nil && sharedAddressSpace.Contains(ip4) {
    return false
  }
  return true
}
