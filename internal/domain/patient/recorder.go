package patient

import (
	"context"

	"github.com/rs/zerolog"
)

type logRecorder struct {
	logger zerolog.Logger
	next   []Recorder
}

// NewLogRecorder logs each registration and forwards it to next.
func NewLogRecorder(logger zerolog.Logger, next ...Recorder) Recorder {
	return &logRecorder{logger: logger, next: next}
}

func (r *logRecorder) PatientRegistered(ctx context.Context, p *Patient) {
	r.logger.Info().
		Str("patient_id", p.PatientID).
		Str("id", p.ID.String()).
		Msg("patient registered")
	for _, n := range r.next {
		if n != nil {
			n.PatientRegistered(ctx, p)
		}
	}
}
