package utils

import (
  "context"
  "fmt"
  "net/mail"
  "strings"

  "golang.org/x/crypto/bcrypt"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/repos"
  "github.com/slotter-org/aristo-backend/internal/types"
)

const MinPasswordLength = 6

type InputPurpose string

const (
  PurposeRegistration InputPurpose = "registration"
  PurposeLogin        InputPurpose = "login"
)

// InputValidation checks the credentials on user for the given purpose. Registration also
// rejects an email that is already taken.
func InputValidation(ctx context.Context, purpose InputPurpose, userRepo repos.UserRepo, log *logger.Logger, user *types.User) error {
  switch purpose {
  case PurposeRegistration:
    return handleRegisterInputValidation(ctx, userRepo, log, user)
  case PurposeLogin:
    if user == nil {
      return fmt.Errorf("email and password are required")
    }
    return handleLoginInputValidation(log, user.Email, user.Password)
  default:
    log.Warn("Unknown input validation purpose. Returning error", "purpose", purpose)
    return fmt.Errorf("unknown validation purpose '%s'", purpose)
  }
}

func handleRegisterInputValidation(ctx context.Context, userRepo repos.UserRepo, log *logger.Logger, user *types.User) error {
  //1) Check if user is empty
  if user == nil {
    log.Warn("User is nil, cannot proceed further. Returning error")
    return fmt.Errorf("no user given")
  }

  //2) Check Email
  if err := ValidateEmail(user.Email); err != nil {
    log.Warn("Invalid email for registration", "email", user.Email)
    return err
  }
  emailExists, err := userRepo.EmailExists(ctx, nil, user.Email)
  if err != nil {
    log.Warn("Failed to check if user email exists, error from UserRepo. Returning an error.", "error", err)
    return fmt.Errorf("failed checking email '%s': %w", user.Email, err)
  }
  if emailExists {
    log.Warn("Email is already in use, cannot continue. Returning an error.")
    return fmt.Errorf("email is already in use")
  }

  //3) Check Password
  if err := ValidatePassword(user.Password); err != nil {
    log.Warn("Password rejected for registration")
    return err
  }
  return nil
}

func handleLoginInputValidation(log *logger.Logger, email, password string) error {
  //1) Check Email
  if strings.TrimSpace(email) == "" {
    log.Warn("Email is an empty string, cannot proceed.")
    return fmt.Errorf("email is required")
  }

  //2) Check Password
  if password == "" {
    log.Warn("Password is an empty string, cannot proceed.")
    return fmt.Errorf("password is required")
  }
  return nil
}

func ValidateEmail(email string) error {
  email = strings.TrimSpace(email)
  if email == "" {
    return fmt.Errorf("an email is required to register")
  }
  addr, err := mail.ParseAddress(email)
  if err != nil || addr.Address != email {
    return fmt.Errorf("'%s' is not a valid email address", email)
  }
  return nil
}

func ValidatePassword(password string) error {
  if len(password) < MinPasswordLength {
    return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
  }
  return nil
}

func HashPassword(ctx context.Context, log *logger.Logger, user *types.User) error {
  hashed, err := HashPlain(user.Password)
  if err != nil {
    log.Warn("Failure to hash password for user. Returning error")
    return err
  }
  user.Password = hashed
  return nil
}

func HashPlain(password string) (string, error) {
  hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
  if err != nil {
    return "", fmt.Errorf("failed to hash password: %w", err)
  }
  return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
  return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeUserFields trims input and lowercases the email. The password is left as typed.
func NormalizeUserFields(user *types.User) {
  user.Email = strings.ToLower(strings.TrimSpace(user.Email))
  user.Name = strings.TrimSpace(user.Name)
  user.Whatsapp = strings.TrimSpace(user.Whatsapp)
  user.Institution = strings.TrimSpace(user.Institution)
  user.Department = strings.TrimSpace(user.Department)
}
