package patient

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type patientRepoMemory struct {
	mu       sync.RWMutex
	patients []*Patient
}

// NewPatientRepoMemory returns a process-local repository. Records are lost
// on restart.
func NewPatientRepoMemory() PatientRepository {
	return &patientRepoMemory{}
}

func (r *patientRepoMemory) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = uuid.New()
	stored := *p
	r.patients = append(r.patients, &stored)
	return nil
}

func (r *patientRepoMemory) List(_ context.Context) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Patient, 0, len(r.patients))
	for _, p := range r.patients {
		cp := *p
		items = append(items, &cp)
	}
	return items, nil
}

func (r *patientRepoMemory) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.patients)), nil
}
