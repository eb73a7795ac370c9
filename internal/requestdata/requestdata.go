package requestdata

import (
  "context"

  "github.com/google/uuid"
)

type key struct{}

var requestDataKey key

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
  return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
  val := ctx.Value(requestDataKey)
  if rd, ok := val.(*RequestData); ok {
    return rd
  }
  return nil
}

// Ensure returns the request data already on ctx, attaching a fresh one when there is none.
func Ensure(ctx context.Context) (context.Context, *RequestData) {
  if rd := GetRequestData(ctx); rd != nil {
    return ctx, rd
  }
  rd := &RequestData{}
  return WithRequestData(ctx, rd), rd
}

type RequestData struct {
  TokenString  string
  RefreshToken string
  UserID       uuid.UUID
  Email        string
  IsAdmin      bool
  ClientID     string
}

func (rd *RequestData) Authenticated() bool {
  return rd != nil && rd.UserID != uuid.Nil
}
