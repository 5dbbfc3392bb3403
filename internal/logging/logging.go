// Package logging builds the zap.Logger used across wasmexecd, trimmed down
// from the teacher pack's colored component logger
// (DeBrosOfficial/network/pkg/logging) to a single process-wide logger keyed
// off a level name instead of per-component color coding, since wasmexecd
// has no multi-node component taxonomy to color.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// envLevelVar names the environment variable used to pick the minimum
// logged level, e.g. WASMEXEC_LOG=debug.
const envLevelVar = "WASMEXEC_LOG"

// New builds a console-encoded logger at levelName (falling back to the
// WASMEXEC_LOG environment variable, then info). json switches to a
// structured JSON encoder for production deployments behind log shippers.
func New(levelName string, json bool) (*zap.Logger, error) {
	if levelName == "" {
		levelName = os.Getenv(envLevelVar)
	}
	level, err := parseLevel(levelName)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if json {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	return zap.New(core, zap.AddCaller()), nil
}

func parseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// dhtLogger adapts a *zap.SugaredLogger to the dhtstore.Logger interface
// (Warnw/Debugw), so the DHT actor loop logs through the same core as
// everything else without the store package importing zap directly.
type dhtLogger struct{ s *zap.SugaredLogger }

// ForDHT returns a logger satisfying dhtstore.Logger.
func ForDHT(l *zap.Logger) dhtLogger {
	return dhtLogger{s: l.Sugar().Named("dht")}
}

func (d dhtLogger) Warnw(msg string, kv ...interface{})  { d.s.Warnw(msg, kv...) }
func (d dhtLogger) Debugw(msg string, kv ...interface{}) { d.s.Debugw(msg, kv...) }
