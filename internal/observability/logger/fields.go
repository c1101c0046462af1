package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
)

// ─── Negocio ───

func TenantID(v pairing.TenantID) zap.Field { return zap.String("tenant_id", string(v)) }

func ParticipantID(v pairing.ParticipantID) zap.Field {
	return zap.String("participant_id", string(v))
}

// Participants loguea un conjunto de participantes (grouping, residuo, elegibles).
func Participants(v []pairing.ParticipantID) zap.Field {
	out := make([]string, len(v))
	for i, p := range v {
		out[i] = string(p)
	}
	return zap.Strings("participants", out)
}

func SweepID(v string) zap.Field { return zap.String("sweep_id", v) }

func Outcome(v string) zap.Field { return zap.String("outcome", v) }

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

func Driver(v string) zap.Field { return zap.String("driver", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func Count(v int) zap.Field { return zap.Int("count", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
