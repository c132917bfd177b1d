package moderation

import (
	"time"

	"discord-modbot/metrics"
	"discord-modbot/model"
	"discord-modbot/utils"
	"discord-modbot/utils/database"

	"go.uber.org/zap"
)

// Action describes an entry to append to the action log. Empty optional fields are
// stored as null.
type Action struct {
	Kind      model.ActionKind
	Moderator string
	Target    string
	Reason    string
	Duration  string
	Details   string
}

// Recorder appends actions to the log. A failed append is logged and never fails the
// operation that produced it.
type Recorder struct {
	log    database.ActionLog
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(log database.ActionLog, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{log: log, logger: logger, now: time.Now}
}

func (r *Recorder) Record(a Action) {
	entry := model.ActionLogEntry{
		Action:    a.Kind,
		Moderator: a.Moderator,
		Target:    utils.StringPtr(a.Target),
		Reason:    utils.StringPtr(a.Reason),
		Duration:  utils.StringPtr(a.Duration),
		Details:   utils.StringPtr(a.Details),
		Timestamp: r.now().UTC(),
	}
	if err := r.log.Append(entry); err != nil {
		metrics.ActionLogFailures.Inc()
		r.logger.Error("Failed to append action",
			zap.String("action", string(a.Kind)),
			zap.Error(err))
		return
	}
	metrics.ActionsRecorded.WithLabelValues(string(a.Kind)).Inc()
}
