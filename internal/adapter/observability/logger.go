package observability

import (
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rl1809/dc-replenish/internal/config"
)

// NewLogger builds the JSON stdout logger every component receives.
func NewLogger(nodeName string) *zap.Logger {
	return newLogger(nodeName, consoleCore())
}

// NewBridgedLogger tees the stdout logger into the global OTel logger
// provider. Call it after SetupLoggingSDK.
func NewBridgedLogger(nodeName string) *zap.Logger {
	otelCore := otelzap.NewCore(config.ServiceName,
		otelzap.WithLoggerProvider(global.GetLoggerProvider()),
	)
	return newLogger(nodeName, zapcore.NewTee(otelCore, consoleCore()))
}

func consoleCore() zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)
}

func newLogger(nodeName string, core zapcore.Core) *zap.Logger {
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("service.name", config.ServiceName),
			zap.String("node.name", nodeName),
		),
	)
}
