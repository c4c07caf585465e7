package patient

import (
	"context"
	"fmt"
)

// Recorder observes successful registrations.
type Recorder interface {
	PatientRegistered(ctx context.Context, p *Patient)
}

type Service struct {
	repo PatientRepository
	rec  Recorder
}

func NewService(repo PatientRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) SetRecorder(rec Recorder) { s.rec = rec }

// RegisterPatient assigns the next display identifier to p and persists it.
//
// The sequence number is the current record count plus one. Count and insert
// are separate calls, so concurrent registrations can be issued the same
// identifier.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("register patient: %w", err)
	}
	p.PatientID = FormatPatientID(count + 1)
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("register patient: %w", err)
	}
	if s.rec != nil {
		s.rec.PatientRegistered(ctx, p)
	}
	return nil
}

func (s *Service) FindAllPatients(ctx context.Context) ([]*Patient, error) {
	return s.repo.List(ctx)
}
