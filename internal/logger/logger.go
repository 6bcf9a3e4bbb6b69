package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel string `env:"LOGGER_LEVEL" envDefault:"info"`
	DevMode  bool   `env:"LOGGER_DEV_MODE" envDefault:"false"`
	Encoding string `env:"LOGGER_ENCODING" envDefault:"console"`
}

// Logger is the logging facade used across the service layer. Every message
// is passed through the PII sanitizer before it reaches the sink.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
}

type AppLogger struct {
	cfg   *Config
	sugar *zap.SugaredLogger
}

func NewAppLogger(cfg *Config) *AppLogger {
	return &AppLogger{cfg: cfg}
}

func (l *AppLogger) InitLogger() {
	var zapCfg zap.Config
	if l.cfg.DevMode {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		if l.cfg.Encoding != "" {
			zapCfg.Encoding = l.cfg.Encoding
		}
	}

	level := zapcore.InfoLevel
	if l.cfg.LogLevel != "" {
		if parsed, err := zapcore.ParseLevel(l.cfg.LogLevel); err == nil {
			level = parsed
		}
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		zapLogger = zap.NewNop()
	}
	l.sugar = zapLogger.Sugar()
}

func (l *AppLogger) Sync() error {
	if l.sugar == nil {
		return nil
	}
	return l.sugar.Sync()
}

func (l *AppLogger) Debug(args ...interface{}) {
	l.sugar.Debug(sanitizeArgs(args)...)
}

func (l *AppLogger) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf("%s", sprintfSanitized(template, args...))
}

func (l *AppLogger) Info(args ...interface{}) {
	l.sugar.Info(sanitizeArgs(args)...)
}

func (l *AppLogger) Infof(template string, args ...interface{}) {
	l.sugar.Infof("%s", sprintfSanitized(template, args...))
}

func (l *AppLogger) Warn(args ...interface{}) {
	l.sugar.Warn(sanitizeArgs(args)...)
}

func (l *AppLogger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf("%s", sprintfSanitized(template, args...))
}

func (l *AppLogger) Error(args ...interface{}) {
	l.sugar.Error(sanitizeArgs(args)...)
}

func (l *AppLogger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf("%s", sprintfSanitized(template, args...))
}

func (l *AppLogger) Fatal(args ...interface{}) {
	l.sugar.Fatal(sanitizeArgs(args)...)
}

func (l *AppLogger) Fatalf(template string, args ...interface{}) {
	l.sugar.Fatalf("%s", sprintfSanitized(template, args...))
}
