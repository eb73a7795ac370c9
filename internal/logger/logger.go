package logger

import (
  "fmt"

  "go.uber.org/zap"
  "go.uber.org/zap/zapcore"
)

type Logger struct {
  sugar *zap.SugaredLogger
}

// New builds a zap backed logger. mode "production" gives JSON output at info level,
// anything else gives the colored development console at debug level.
func New(mode string) (*Logger, error) {
  var cfg zap.Config
  switch mode {
  case "production", "prod":
    cfg = zap.NewProductionConfig()
  case "development", "dev", "":
    cfg = zap.NewDevelopmentConfig()
    cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
  default:
    return nil, fmt.Errorf("unknown log mode %q", mode)
  }
  cfg.EncoderConfig.TimeKey = "ts"
  cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
  base, err := cfg.Build(zap.AddCallerSkip(1))
  if err != nil {
    return nil, fmt.Errorf("failed to build zap logger: %w", err)
  }
  return &Logger{sugar: base.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() *Logger {
  return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) With(keysAndValues ...interface{}) *Logger {
  return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
  l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
  l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
  l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
  l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Sync() {
  _ = l.sugar.Sync()
}
