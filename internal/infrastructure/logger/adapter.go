// Package logger adapts zap to the runtime's logging port. Logs go to a
// per-run file as structured JSON so a run can be replayed from its log
// alone.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
)

var _ output.LoggerPort = (*ZapAdapter)(nil)

type ZapAdapter struct {
	sugar *zap.SugaredLogger
	root  *zap.Logger
}

type Config struct {
	// Dir is where log files are created. One file per process start.
	Dir   string
	Debug bool
	// Console mirrors warnings and errors to stderr.
	Console bool
}

func DefaultConfig() Config {
	return Config{Dir: "log", Debug: false, Console: true}
}

func NewZapAdapter(cfg Config) (*ZapAdapter, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	filename := filepath.Join(cfg.Dir, time.Now().Format("2006-01-02_15-04-05")+".log")
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level),
	}
	if cfg.Console {
		consoleEnc := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEnc),
			zapcore.AddSync(os.Stderr),
			zapcore.WarnLevel,
		))
	}

	root := zap.New(zapcore.NewTee(cores...))
	return &ZapAdapter{sugar: root.Sugar(), root: root}, nil
}

func (l *ZapAdapter) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapAdapter) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *ZapAdapter) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *ZapAdapter) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

func (l *ZapAdapter) WithField(key string, value any) output.LoggerPort {
	return &ZapAdapter{sugar: l.sugar.With(key, value), root: l.root}
}

func (l *ZapAdapter) Close() error {
	return l.root.Sync()
}
