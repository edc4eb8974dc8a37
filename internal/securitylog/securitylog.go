package securitylog

import (
	"time"

	"go.uber.org/zap"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
)

// Emitter writes security events as structured log records. The contract is
// one event per terminal state transition; format and transport beyond the
// log stream belong to the observability pipeline.
type Emitter struct {
	logger *zap.Logger
}

// NewEmitter constructs an Emitter. A nil logger falls back to the global.
func NewEmitter(logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.L()
	}
	return &Emitter{logger: logger}
}

// Emit appends one security event record.
func (e *Emitter) Emit(event domain.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.Time("timestamp", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.AccountID != 0 {
		fields = append(fields, zap.Int64("account_id", event.AccountID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.SourceIP != "" {
		fields = append(fields, zap.String("source_ip", event.SourceIP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.Details != "" {
		fields = append(fields, zap.String("details", event.Details))
	}

	if event.Success {
		e.logger.Info("security_event", fields...)
	} else {
		e.logger.Warn("security_alert", fields...)
	}
}
