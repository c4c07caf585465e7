package patient

import "context"

// PatientRepository is the storage capability the registrar needs: append,
// full retrieval and a record count.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	List(ctx context.Context) ([]*Patient, error)
	Count(ctx context.Context) (int64, error)
}
