package services

import (
  "context"
  "crypto/rand"
  "encoding/hex"
  "errors"
  "fmt"
  "net/http"
  "strings"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/slotter-org/aristo-backend/internal/errordata"
  "github.com/slotter-org/aristo-backend/internal/eventdata"
  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/repos"
  "github.com/slotter-org/aristo-backend/internal/requestdata"
  "github.com/slotter-org/aristo-backend/internal/socket"
  "github.com/slotter-org/aristo-backend/internal/templates"
  "github.com/slotter-org/aristo-backend/internal/types"
  "github.com/slotter-org/aristo-backend/internal/utils"
)

const (
  DefaultUserName = "Scholar"
  DefaultUserBio  = "Aristo Academic Scholar."

  InvalidCredentialsMessage = "Invalid login credentials"
  passwordResetTTL          = time.Hour
)

var (
  ErrInvalidCredentials = errors.New("invalid login credentials")
  ErrSessionExpired     = errors.New("session expired, please sign in again")
  ErrResetUnavailable   = errors.New("password reset is not available right now")
  ErrResetCodeInvalid   = errors.New("reset link is invalid or has expired")
)

type JWTClaims struct {
  jwt.RegisteredClaims
  Email   string `json:"email,omitempty"`
  IsAdmin bool   `json:"is_admin,omitempty"`
}

type RegisterInput struct {
  Email       string                 `json:"email"`
  Password    string                 `json:"password"`
  Name        string                 `json:"name"`
  Gender      string                 `json:"gender"`
  Whatsapp    string                 `json:"whatsapp"`
  Dob         string                 `json:"dob"`
  Institution string                 `json:"institution"`
  Department  string                 `json:"department"`
  Metadata    map[string]interface{} `json:"metadata"`
}

type TokenPair struct {
  AccessToken  string `json:"accessToken"`
  RefreshToken string `json:"refreshToken"`
  ExpiresIn    int64  `json:"expiresIn"`
}

type AuthOptions struct {
  JWTSecretKey string
  AccessTTL    time.Duration
  RefreshTTL   time.Duration
  AdminEmails  []string
  AppBaseURL   string
  Now          func() time.Time
}

type AuthService interface {
  Register(ctx context.Context, in RegisterInput) (*types.User, error)
  Login(ctx context.Context, email, password string) (*types.User, TokenPair, error)
  Refresh(ctx context.Context, refreshToken string) (*types.User, TokenPair, error)
  Logout(ctx context.Context) error
  RequestPasswordReset(ctx context.Context, email string) error
  ResetPassword(ctx context.Context, code, newPassword string) error

  SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
  UserFromToken(ctx context.Context, tokenString string) (*types.User, error)
  GetAccessTTL() time.Duration
}

type authService struct {
  db              *gorm.DB
  log             *logger.Logger
  userRepo        repos.UserRepo
  userTokenRepo   repos.UserTokenRepo
  oneTimeCodeRepo repos.OneTimeCodeRepo
  avatarService   AvatarService
  emailService    EmailService
  textService     TextService
  jwtSecretKey    string
  accessTTL       time.Duration
  refreshTTL      time.Duration
  adminEmails     map[string]bool
  appBaseURL      string
  now             func() time.Time
}

// NewAuthService wires authentication. emailService and textService may be nil.
func NewAuthService(
  db              *gorm.DB,
  log             *logger.Logger,
  userRepo        repos.UserRepo,
  userTokenRepo   repos.UserTokenRepo,
  oneTimeCodeRepo repos.OneTimeCodeRepo,
  avatarService   AvatarService,
  emailService    EmailService,
  textService     TextService,
  opts            AuthOptions,
) AuthService {
  serviceLog := log.With("service", "AuthService")
  if opts.AccessTTL <= 0 {
    opts.AccessTTL = 15 * time.Minute
  }
  if opts.RefreshTTL <= 0 {
    opts.RefreshTTL = 7 * 24 * time.Hour
  }
  if opts.Now == nil {
    opts.Now = time.Now
  }
  admins := make(map[string]bool, len(opts.AdminEmails))
  for _, e := range opts.AdminEmails {
    admins[strings.ToLower(strings.TrimSpace(e))] = true
  }
  return &authService{
    db:              db,
    log:             serviceLog,
    userRepo:        userRepo,
    userTokenRepo:   userTokenRepo,
    oneTimeCodeRepo: oneTimeCodeRepo,
    avatarService:   avatarService,
    emailService:    emailService,
    textService:     textService,
    jwtSecretKey:    opts.JWTSecretKey,
    accessTTL:       opts.AccessTTL,
    refreshTTL:      opts.RefreshTTL,
    adminEmails:     admins,
    appBaseURL:      strings.TrimRight(opts.AppBaseURL, "/"),
    now:             opts.Now,
  }
}

//----------------------------------------------------------------------------------------------------------------------
// Register
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
  as.log.Info("Starting Register User now...")

  //1) Build and normalize
  user := &types.User{
    ID:          uuid.New(),
    Email:       in.Email,
    Password:    in.Password,
    Name:        in.Name,
    Gender:      types.ParseGender(in.Gender),
    Whatsapp:    in.Whatsapp,
    Dob:         in.Dob,
    Institution: in.Institution,
    Department:  in.Department,
    Bio:         DefaultUserBio,
  }
  utils.NormalizeUserFields(user)
  if user.Name == "" {
    user.Name = DefaultUserName
  }
  user.IsAdmin = as.isAdminEmail(user.Email)
  user.Metadata = registrationMetadata(in, user)

  //2) Validate
  if vErr := utils.InputValidation(ctx, utils.PurposeRegistration, as.userRepo, as.log, user); vErr != nil {
    errordata.Set(ctx, http.StatusBadRequest, vErr.Error())
    return nil, vErr
  }

  //3) Hash password
  if hErr := utils.HashPassword(ctx, as.log, user); hErr != nil {
    return nil, hErr
  }

  //4) Avatar, best effort
  if as.avatarService != nil {
    if aErr := as.avatarService.CreateAndUploadUserAvatar(ctx, user); aErr != nil {
      as.log.Warn("Failed to create initials avatar, continuing without one", "error", aErr)
    }
  }

  //5) Persist
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    created, cErr := as.userRepo.Create(ctx, tx, []*types.User{user})
    if cErr != nil {
      return fmt.Errorf("failed to create user: %w", cErr)
    }
    if len(created) == 0 {
      return fmt.Errorf("failed to create user in DB")
    }
    return nil
  }); err != nil {
    as.log.Warn("Register transaction failed", "error", err)
    return nil, err
  }
  as.log.Info("Successfully registered user :)", "userID", user.ID)

  //6) Notify
  eventdata.Append(ctx, socket.Message{
    Channel: socket.AdminChannel,
    Event:   socket.EventUserRegistered,
    Data:    map[string]interface{}{"id": user.ID, "email": user.Email, "name": user.Name},
  })
  as.sendWelcome(ctx, user)
  return user, nil
}

func registrationMetadata(in RegisterInput, user *types.User) datatypes.JSONMap {
  meta := datatypes.JSONMap{}
  for k, v := range in.Metadata {
    meta[k] = v
  }
  meta["name"] = user.Name
  meta["gender"] = string(user.Gender)
  meta["whatsapp"] = user.Whatsapp
  meta["dob"] = user.Dob
  meta["institution"] = user.Institution
  meta["department"] = user.Department
  meta["bio"] = user.Bio
  return meta
}

func (as *authService) sendWelcome(ctx context.Context, user *types.User) {
  if as.textService == nil || user.Whatsapp == "" {
    return
  }
  go func(number, name string) {
    sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
    defer cancel()
    body := fmt.Sprintf("Welcome to Aristo, %s! Your academic companion is ready.", name)
    if err := as.textService.SendWhatsApp(sendCtx, number, body); err != nil {
      as.log.Warn("Welcome WhatsApp message failed", "error", err)
    }
  }(user.Whatsapp, user.Name)
}

func (as *authService) isAdminEmail(email string) bool {
  email = strings.ToLower(strings.TrimSpace(email))
  return strings.Contains(email, "admin") || as.adminEmails[email]
}

//----------------------------------------------------------------------------------------------------------------------
// Login, Refresh, Logout
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) Login(ctx context.Context, userEmail, userPassword string) (*types.User, TokenPair, error) {
  as.log.Info("Starting Login now...")

  //1) Normalize and validate
  email := strings.ToLower(strings.TrimSpace(userEmail))
  if vErr := utils.InputValidation(ctx, utils.PurposeLogin, as.userRepo, as.log, &types.User{Email: email, Password: userPassword}); vErr != nil {
    errordata.Set(ctx, http.StatusBadRequest, vErr.Error())
    return nil, TokenPair{}, vErr
  }

  //2) Find user and check password
  users, uErr := as.userRepo.GetByEmails(ctx, nil, []string{email})
  if uErr != nil {
    as.log.Warn("Failure to retrieve user by email, Cannot proceed. Returning error.", "error", uErr)
    return nil, TokenPair{}, fmt.Errorf("error retrieving user by email: %w", uErr)
  }
  if len(users) == 0 || !utils.CheckPassword(users[0].Password, userPassword) {
    as.log.Warn("Invalid login attempt")
    errordata.Set(ctx, http.StatusUnauthorized, InvalidCredentialsMessage)
    return nil, TokenPair{}, ErrInvalidCredentials
  }
  user := users[0]
  user.IsAdmin = user.IsAdmin || as.isAdminEmail(user.Email)

  //3) Issue tokens
  var pair TokenPair
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    var iErr error
    pair, iErr = as.issueTokens(ctx, tx, user)
    return iErr
  }); err != nil {
    return nil, TokenPair{}, err
  }

  eventdata.Append(ctx, socket.Message{Channel: socket.UserChannel(user.ID), Event: socket.EventSignedIn})
  as.log.Info("Successfully logged in :)", "userID", user.ID)
  return user, pair, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*types.User, TokenPair, error) {
  as.log.Info("Starting Refresh now...")
  if strings.TrimSpace(refreshToken) == "" {
    errordata.Set(ctx, http.StatusBadRequest, "refresh token is required")
    return nil, TokenPair{}, fmt.Errorf("refresh token is required")
  }

  var (
    user *types.User
    pair TokenPair
  )
  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    //1) Find the token
    found, fErr := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{refreshToken})
    if fErr != nil {
      return fmt.Errorf("error fetching refresh token: %w", fErr)
    }
    if len(found) == 0 {
      return ErrSessionExpired
    }
    existing := found[0]

    //2) Expired tokens are removed
    if existing.ExpiresAt.Before(as.now()) {
      if dErr := as.userTokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existing.ID}); dErr != nil {
        return fmt.Errorf("refresh token expired, error deleting: %w", dErr)
      }
      return ErrSessionExpired
    }

    //3) Load user
    users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existing.UserID})
    if uErr != nil {
      return fmt.Errorf("failed to load user for refresh: %w", uErr)
    }
    if len(users) == 0 {
      return ErrSessionExpired
    }
    user = users[0]

    //4) Rotate
    var iErr error
    if pair, iErr = as.issueTokens(ctx, tx, user); iErr != nil {
      return iErr
    }
    return as.userTokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existing.ID})
  })
  if err != nil {
    if errors.Is(err, ErrSessionExpired) {
      errordata.Set(ctx, http.StatusUnauthorized, ErrSessionExpired.Error())
    }
    as.log.Warn("Refresh failed", "error", err)
    return nil, TokenPair{}, err
  }
  return user, pair, nil
}

func (as *authService) Logout(ctx context.Context) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.TokenString == "" {
    as.log.Warn("No token in request data, nothing to log out")
    return fmt.Errorf("not signed in")
  }
  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, fErr := as.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
    if fErr != nil {
      return fmt.Errorf("error finding user token: %w", fErr)
    }
    ids := make([]uuid.UUID, 0, len(found))
    for _, t := range found {
      ids = append(ids, t.ID)
    }
    return as.userTokenRepo.FullDeleteByIDs(ctx, tx, ids)
  })
  if err != nil {
    return err
  }
  eventdata.Append(ctx, socket.Message{Channel: socket.UserChannel(rd.UserID), Event: socket.EventSignedOut})
  return nil
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (TokenPair, error) {
  accessToken, err := as.generateAccessToken(user)
  if err != nil {
    return TokenPair{}, fmt.Errorf("generate access token error: %w", err)
  }
  refreshToken := uuid.New().String()
  userToken := &types.UserToken{
    ID:           uuid.New(),
    UserID:       user.ID,
    AccessToken:  accessToken,
    RefreshToken: refreshToken,
    ExpiresAt:    as.now().Add(as.refreshTTL),
  }
  if _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{userToken}); cErr != nil {
    return TokenPair{}, fmt.Errorf("create user token error: %w", cErr)
  }
  return TokenPair{
    AccessToken:  accessToken,
    RefreshToken: refreshToken,
    ExpiresIn:    int64(as.accessTTL.Seconds()),
  }, nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
  now := as.now()
  claims := JWTClaims{
    RegisteredClaims: jwt.RegisteredClaims{
      Subject:   user.ID.String(),
      ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
      IssuedAt:  jwt.NewNumericDate(now),
      ID:        uuid.NewString(),
    },
    Email:   user.Email,
    IsAdmin: user.IsAdmin,
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString([]byte(as.jwtSecretKey))
}

//----------------------------------------------------------------------------------------------------------------------
// Password reset
//----------------------------------------------------------------------------------------------------------------------

// RequestPasswordReset emails a one-time reset link. Unknown emails succeed without sending.
func (as *authService) RequestPasswordReset(ctx context.Context, email string) error {
  as.log.Info("Starting RequestPasswordReset now...")
  email = strings.ToLower(strings.TrimSpace(email))
  if email == "" {
    errordata.Set(ctx, http.StatusBadRequest, "Reset Protocol requires your email address.")
    return fmt.Errorf("email is required")
  }
  if as.emailService == nil {
    errordata.Set(ctx, http.StatusServiceUnavailable, ErrResetUnavailable.Error())
    return ErrResetUnavailable
  }

  users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
  if err != nil {
    return fmt.Errorf("error retrieving user by email: %w", err)
  }
  if len(users) == 0 {
    as.log.Debug("Password reset requested for unknown email")
    return nil
  }
  user := users[0]

  code, err := randomCode()
  if err != nil {
    return err
  }
  otc := &types.OneTimeCode{
    ID:        uuid.New(),
    UserID:    user.ID,
    Code:      code,
    Purpose:   types.OneTimeCodePasswordReset,
    ExpiresAt: as.now().Add(passwordResetTTL),
  }
  if _, err := as.oneTimeCodeRepo.Create(ctx, nil, []*types.OneTimeCode{otc}); err != nil {
    return fmt.Errorf("failed to store reset code: %w", err)
  }

  data := templates.PasswordResetEmailData{
    Name:      user.Name,
    ResetLink: as.appBaseURL + "/reset-password?code=" + code,
    ExpiresIn: passwordResetTTL,
  }
  html, err := templates.RenderPasswordResetHTML(data)
  if err != nil {
    return fmt.Errorf("failed to render reset email: %w", err)
  }
  if err := as.emailService.SendEmail(ctx, user.Email, "Reset your Aristo password", templates.PasswordResetText(data), html, EmailTypeAuthorization); err != nil {
    errordata.Set(ctx, http.StatusBadGateway, ErrResetUnavailable.Error())
    return err
  }
  return nil
}

// ResetPassword redeems code, sets the new password and signs the user out everywhere.
func (as *authService) ResetPassword(ctx context.Context, code, newPassword string) error {
  as.log.Info("Starting ResetPassword now...")
  if err := utils.ValidatePassword(newPassword); err != nil {
    errordata.Set(ctx, http.StatusBadRequest, err.Error())
    return err
  }
  hash, err := utils.HashPlain(newPassword)
  if err != nil {
    return err
  }
  err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    otc, lErr := as.oneTimeCodeRepo.GetByCodeForUpdate(ctx, tx, strings.TrimSpace(code))
    if lErr != nil {
      if errors.Is(lErr, gorm.ErrRecordNotFound) {
        return ErrResetCodeInvalid
      }
      return lErr
    }
    if otc.Purpose != types.OneTimeCodePasswordReset || !otc.Usable(as.now()) {
      return ErrResetCodeInvalid
    }
    if uErr := as.userRepo.UpdatePassword(ctx, tx, otc.UserID, hash); uErr != nil {
      return uErr
    }
    if mErr := as.oneTimeCodeRepo.MarkUsed(ctx, tx, otc.ID); mErr != nil {
      return mErr
    }
    return as.userTokenRepo.FullDeleteByUserIDs(ctx, tx, []uuid.UUID{otc.UserID})
  })
  if errors.Is(err, ErrResetCodeInvalid) {
    errordata.Set(ctx, http.StatusBadRequest, ErrResetCodeInvalid.Error())
  }
  return err
}

func randomCode() (string, error) {
  b := make([]byte, 24)
  if _, err := rand.Read(b); err != nil {
    return "", fmt.Errorf("failed to generate code: %w", err)
  }
  return hex.EncodeToString(b), nil
}

//----------------------------------------------------------------------------------------------------------------------
// Tokens → context
//----------------------------------------------------------------------------------------------------------------------

func (as *authService) parseToken(tokenString string) (*JWTClaims, uuid.UUID, error) {
  parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
    if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
    }
    return []byte(as.jwtSecretKey), nil
  }, jwt.WithTimeFunc(as.now))
  if err != nil {
    return nil, uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
  }
  claims, ok := parsedToken.Claims.(*JWTClaims)
  if !ok || !parsedToken.Valid {
    return nil, uuid.Nil, fmt.Errorf("invalid or expired JWT token")
  }
  userID, err := uuid.Parse(claims.Subject)
  if err != nil {
    return nil, uuid.Nil, fmt.Errorf("invalid user ID in token: %w", err)
  }
  return claims, userID, nil
}

// SetContextFromToken validates tokenString and fills the request data on ctx. A token whose
// session row was revoked is rejected.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
  if tokenString == "" {
    return ctx, nil
  }
  claims, userID, err := as.parseToken(tokenString)
  if err != nil {
    return ctx, err
  }
  found, fErr := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
  if fErr != nil {
    as.log.Warn("Error fetching user token by access token", "error", fErr)
    return ctx, fmt.Errorf("failed to fetch user token by access token: %w", fErr)
  }
  if len(found) == 0 {
    return ctx, ErrSessionExpired
  }

  ctx, rd := requestdata.Ensure(ctx)
  rd.TokenString = tokenString
  rd.RefreshToken = found[0].RefreshToken
  rd.UserID = userID
  rd.Email = claims.Email
  rd.IsAdmin = claims.IsAdmin
  return ctx, nil
}

func (as *authService) UserFromToken(ctx context.Context, tokenString string) (*types.User, error) {
  _, userID, err := as.parseToken(tokenString)
  if err != nil {
    return nil, err
  }
  users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return nil, err
  }
  if len(users) == 0 {
    return nil, ErrSessionExpired
  }
  return users[0], nil
}

func (as *authService) GetAccessTTL() time.Duration {
  return as.accessTTL
}
