package logflags

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(component string, enabled bool) Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:      "timestamp",
		LevelKey:     "level",
		NameKey:      "component",
		MessageKey:   "message",
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
		EncodeName:   zapcore.FullNameEncoder,
	}
	if colored {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Warnings are always emitted so failed attach attempts stay visible.
	level := zapcore.WarnLevel
	if enabled {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(output())),
		level,
	)

	return zap.New(core, zap.AddCaller()).Named(component).Sugar()
}

func MemoryLogger() Logger {
	return newLogger("memory", memory)
}

func ProwlerLogger() Logger {
	return newLogger("prowler", prowler)
}

func HTTPLogger() Logger {
	return newLogger("http", http)
}

func GRPCLogger() Logger {
	return newLogger("grpc", grpc)
}
