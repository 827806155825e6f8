package cli

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newDebugLogger builds the JSON debug logger used with --verbose. It
// writes to the command's stderr so it never mixes with ndjson on stdout.
func newDebugLogger(globals *Globals) *zap.Logger {
	if globals == nil || !globals.Verbose {
		return zap.NewNop()
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(globals.Stderr),
		zap.NewAtomicLevelAt(zap.DebugLevel),
	)
	return zap.New(core).With(zap.String("component", "rcw"))
}
