package clinic

import (
	"context"
	"fmt"
	"io"
	"time"

	"sistemamedico.org/internal/obs"
)

// Lifecycle owns study creation, listing with derived delete permissions and
// time-boxed deletion. It coordinates one blob write and one database write
// per mutation; it holds no state across calls.
type Lifecycle struct {
	store Store
	blobs BlobStore
	now   func() time.Time
}

// Option configures Lifecycle behavior.
type Option func(*Lifecycle)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(l *Lifecycle) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewLifecycle constructs a Lifecycle over the given stores.
func NewLifecycle(store Store, blobs BlobStore, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		store: store,
		blobs: blobs,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ListPatients passes through to the registry.
func (l *Lifecycle) ListPatients(ctx context.Context) ([]Patient, error) {
	return l.store.ListPatients(ctx)
}

// CreateStudy stores the uploaded file and then inserts the study row, in
// that order: a crash in between leaves an orphan file nothing points at,
// never a row pointing at a missing file. When the insert fails the written
// file is cleaned up best-effort; a cleanup failure is logged and the insert
// error is returned untouched.
func (l *Lifecycle) CreateStudy(ctx context.Context, patientID int64, originalName string, content io.Reader) (StudyView, error) {
	now := l.now().UTC()

	nombre, ruta, err := l.blobs.Save(patientID, originalName, content, now)
	if err != nil {
		return StudyView{}, fmt.Errorf("store study file: %w", err)
	}

	study := &Study{
		PatientID: patientID,
		Nombre:    nombre,
		Ruta:      ruta,
		CreatedAt: now,
	}
	if err := l.store.InsertStudy(ctx, study); err != nil {
		if rmErr := l.blobs.Remove(ruta); rmErr != nil {
			obs.LogError("orphan study file cleanup failed", rmErr, map[string]any{
				"patient_id": patientID,
				"ruta":       ruta,
			})
		}
		return StudyView{}, err
	}

	return study.View(now), nil
}

// ListStudies returns the patient's studies newest first, with CanDelete
// computed fresh at call time. The flag of the same study can flip from true
// to false between two calls without any write having happened.
func (l *Lifecycle) ListStudies(ctx context.Context, patientID int64) ([]StudyView, error) {
	studies, err := l.store.ListStudies(ctx, patientID)
	if err != nil {
		return nil, err
	}
	now := l.now()
	views := make([]StudyView, 0, len(studies))
	for _, s := range studies {
		views = append(views, s.View(now))
	}
	return views, nil
}

// DeleteStudy removes a study if it is still inside the delete window.
// Returns ErrStudyNotFound for an unknown id and ErrWindowClosed once the
// window has expired; the two must stay distinguishable at the API boundary.
func (l *Lifecycle) DeleteStudy(ctx context.Context, id int64) error {
	study, err := l.store.GetStudy(ctx, id)
	if err != nil {
		return err
	}
	if !CanDelete(study.CreatedAt, l.now()) {
		return ErrWindowClosed
	}

	// File before row: once the row is gone there is no handle on the path.
	// A failed unlink must not leave the record stuck forever, so it only
	// logs and the row delete proceeds.
	if err := l.blobs.Remove(study.Ruta); err != nil {
		obs.LogError("study file removal failed", err, map[string]any{
			"study_id": id,
			"ruta":     study.Ruta,
		})
	}

	deleted, err := l.store.DeleteStudy(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		// Lost a race with a concurrent delete. The study is gone either
		// way; treat as a no-op success.
		return nil
	}
	return nil
}
