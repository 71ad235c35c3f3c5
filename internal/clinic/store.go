package clinic

import (
	"context"
	"io"
	"time"
)

// Store describes the persistence operations the lifecycle needs. Implemented
// by store/pg for PostgreSQL and by InMemory for tests and DSN-less runs.
type Store interface {
	// ListPatients returns the full registry ordered by name.
	ListPatients(ctx context.Context) ([]Patient, error)
	// InsertStudy persists a new study and fills in its ID.
	// Returns ErrPatientNotFound when the owning patient does not exist.
	InsertStudy(ctx context.Context, s *Study) error
	// ListStudies returns a patient's studies, most recent first. An unknown
	// patient id yields an empty list, not an error.
	ListStudies(ctx context.Context, patientID int64) ([]Study, error)
	// GetStudy returns ErrStudyNotFound when the id is unknown.
	GetStudy(ctx context.Context, id int64) (Study, error)
	// DeleteStudy removes the row and reports whether one was actually
	// deleted. (false, nil) means another caller got there first.
	DeleteStudy(ctx context.Context, id int64) (bool, error)
}

// BlobStore is the patient-scoped file storage the lifecycle writes to and
// deletes from. Reads are served directly by the HTTP layer.
type BlobStore interface {
	// Save stores the content under <patientID>/<epochMillis>_<sanitizedName>
	// and returns the stored file name and the '/'-separated relative path.
	Save(patientID int64, originalName string, content io.Reader, now time.Time) (nombre, ruta string, err error)
	// Remove deletes a previously stored file. Removing a missing file is
	// not an error.
	Remove(ruta string) error
}
