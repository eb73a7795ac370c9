package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "image/color"
  "math/rand"
  "os"
  "strings"
  "unicode"

  "github.com/disintegration/imaging"
  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "github.com/google/uuid"
  "golang.org/x/image/font"
  "golang.org/x/image/font/gofont/goregular"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/types"
)

const (
  avatarSize        = 512
  avatarFontSize    = 206
  uploadedAvatarDim = 256
  maxAvatarBytes    = 5 << 20
)

var defaultAvatarColors = []color.NRGBA{
  {R: 0x4f, G: 0x46, B: 0xe5, A: 0xff},
  {R: 0x7c, G: 0x3a, B: 0xed, A: 0xff},
  {R: 0x0e, G: 0xa5, B: 0xe9, A: 0xff},
  {R: 0x05, G: 0x96, B: 0x69, A: 0xff},
  {R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
  {R: 0xdb, G: 0x27, B: 0x77, A: 0xff},
}

type AvatarService interface {
  CreateAndUploadUserAvatar(ctx context.Context, user *types.User) error
  GenerateInitialsAvatar(name string) (bytes.Buffer, error)
  // ProcessUpload squares and shrinks an uploaded image, then stores it as the user's avatar.
  ProcessUpload(ctx context.Context, userID uuid.UUID, content []byte) (string, string, error)
}

type avatarService struct {
  log      *logger.Logger
  bucket   BucketService
  bgColors []color.NRGBA
  fontFace font.Face
}

// NewAvatarService loads the font at fontPath and colors from colorsPath. Either may be empty:
// the Go regular font and a built-in palette are used instead. bucket may be nil.
func NewAvatarService(log *logger.Logger, bucket BucketService, fontPath, colorsPath string) (AvatarService, error) {
  serviceLog := log.With("service", "AvatarService")

  //1) Colors
  bgColors := defaultAvatarColors
  if colorsPath != "" {
    serviceLog.Info("Loading avatar colors from JSON file", "path", colorsPath)
    loaded, err := loadColorsFromFile(colorsPath)
    if err != nil {
      return nil, fmt.Errorf("could not load avatar colors: %w", err)
    }
    if len(loaded) > 0 {
      bgColors = loaded
    }
  }

  //2) Font
  fontBytes := goregular.TTF
  if fontPath != "" {
    serviceLog.Info("Loading avatar font from TTF file", "font", fontPath)
    b, err := os.ReadFile(fontPath)
    if err != nil {
      return nil, fmt.Errorf("failed to read font file: %w", err)
    }
    fontBytes = b
  }
  face, err := loadFontFace(fontBytes, avatarFontSize)
  if err != nil {
    return nil, fmt.Errorf("could not load avatar font: %w", err)
  }

  return &avatarService{
    log:      serviceLog,
    bucket:   bucket,
    bgColors: bgColors,
    fontFace: face,
  }, nil
}

func (as *avatarService) CreateAndUploadUserAvatar(ctx context.Context, user *types.User) error {
  buf, err := as.GenerateInitialsAvatar(user.Name)
  if err != nil {
    return err
  }
  bucketKey := fmt.Sprintf("user_avatars/%s.png", user.ID.String())
  finalURL, storedKey, err := storeObject(ctx, as.bucket, bucketKey, "image/png", buf.Bytes())
  if err != nil {
    return fmt.Errorf("failed to upload user avatar: %w", err)
  }
  user.AvatarBucketKey = storedKey
  user.AvatarURL = finalURL
  return nil
}

func (as *avatarService) GenerateInitialsAvatar(name string) (bytes.Buffer, error) {
  // 1) Drawing context with a circular mask
  dc := gg.NewContext(avatarSize, avatarSize)
  dc.DrawCircle(float64(avatarSize)/2, float64(avatarSize)/2, float64(avatarSize)/2)
  dc.Clip()

  // 2) Solid background
  dc.SetColor(as.bgColors[rand.Intn(len(as.bgColors))])
  dc.DrawRectangle(0, 0, float64(avatarSize), float64(avatarSize))
  dc.Fill()

  // 3) Centered initials
  dc.SetFontFace(as.fontFace)
  dc.SetColor(color.White)
  dc.DrawStringAnchored(computeInitials(name), float64(avatarSize)/2, float64(avatarSize)/2, 0.5, 0.35)

  // 4) PNG
  var buf bytes.Buffer
  if err := dc.EncodePNG(&buf); err != nil {
    return buf, fmt.Errorf("failed to encode PNG: %w", err)
  }
  return buf, nil
}

func (as *avatarService) ProcessUpload(ctx context.Context, userID uuid.UUID, content []byte) (string, string, error) {
  if len(content) == 0 {
    return "", "", fmt.Errorf("avatar file is empty")
  }
  if len(content) > maxAvatarBytes {
    return "", "", fmt.Errorf("avatar file is larger than %d MB", maxAvatarBytes>>20)
  }
  img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
  if err != nil {
    return "", "", fmt.Errorf("unsupported image: %w", err)
  }
  img = imaging.Fill(img, uploadedAvatarDim, uploadedAvatarDim, imaging.Center, imaging.Lanczos)

  var buf bytes.Buffer
  if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
    return "", "", fmt.Errorf("failed to encode avatar PNG: %w", err)
  }
  key := fmt.Sprintf("user_avatars/%s-%s.png", userID.String(), uuid.NewString()[:8])
  return storeObject(ctx, as.bucket, key, "image/png", buf.Bytes())
}

//----------------------------------------------------------------------------------------
// Helpers
//----------------------------------------------------------------------------------------

// computeInitials takes the first letter of up to two words, "?" for a blank name.
func computeInitials(name string) string {
  var out []rune
  for _, word := range strings.Fields(name) {
    for _, r := range word {
      if unicode.IsLetter(r) || unicode.IsDigit(r) {
        out = append(out, unicode.ToUpper(r))
        break
      }
    }
    if len(out) == 2 {
      break
    }
  }
  if len(out) == 0 {
    return "?"
  }
  return string(out)
}

func loadColorsFromFile(jsonPath string) ([]color.NRGBA, error) {
  data, err := os.ReadFile(jsonPath)
  if err != nil {
    return nil, fmt.Errorf("read file error: %w", err)
  }
  var colors []color.NRGBA
  if err := json.Unmarshal(data, &colors); err != nil {
    return nil, fmt.Errorf("json unmarshal error: %w", err)
  }
  return colors, nil
}

func loadFontFace(fontBytes []byte, size float64) (font.Face, error) {
  parsedFont, err := truetype.Parse(fontBytes)
  if err != nil {
    return nil, fmt.Errorf("failed to parse TTF: %w", err)
  }
  return truetype.NewFace(parsedFont, &truetype.Options{
    Size:    size,
    DPI:     72,
    Hinting: font.HintingNone,
  }), nil
}
