package logging

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var passthroughPool = buffer.NewPool()

// passthroughEncoder wraps the JSON encoder and writes messages that are
// already valid JSON verbatim.
type passthroughEncoder struct {
	zapcore.Encoder
}

// NewEncoder returns the encoder used by every Logger.
func NewEncoder() zapcore.Encoder {
	return passthroughEncoder{Encoder: zapcore.NewJSONEncoder(EncoderConfig())}
}

// EncoderConfig returns the key layout shared by all entries.
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     encodeTimeUTC,
		EncodeLevel:    encodeLevel,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

func (e passthroughEncoder) Clone() zapcore.Encoder {
	return passthroughEncoder{Encoder: e.Encoder.Clone()}
}

func (e passthroughEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if json.Valid([]byte(ent.Message)) {
		buf := passthroughPool.Get()
		buf.AppendString(ent.Message)
		// a message re-logged from another JSON logger may already end its line
		if !strings.HasSuffix(ent.Message, zapcore.DefaultLineEnding) {
			buf.AppendString(zapcore.DefaultLineEnding)
		}
		return buf, nil
	}
	return e.Encoder.EncodeEntry(ent, fields)
}

func encodeTimeUTC(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339Nano))
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.FatalLevel:
		enc.AppendString("CRITICAL")
	default:
		enc.AppendString(l.CapitalString())
	}
}
