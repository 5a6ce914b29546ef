package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos HTTP.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }

func DurationMs(v time.Duration) zap.Field {
	return zap.Int64("duration_ms", v.Milliseconds())
}

// Campos de negocio.

func UserID(v string) zap.Field         { return zap.String("user_id", v) }
func InstallationID(v string) zap.Field { return zap.String("installation_id", v) }
func ExcursionID(v string) zap.Field    { return zap.String("excursion_id", v) }
func AuthType(v string) zap.Field       { return zap.String("auth_type", v) }
func ErrorCount(v int) zap.Field        { return zap.Int("error_count", v) }

// Campos de sistema.

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
