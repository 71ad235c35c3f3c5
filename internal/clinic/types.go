package clinic

import (
	"errors"
	"time"
)

// Patient is a row from the patient registry. The registry is owned by the
// admissions system; this service only reads it.
type Patient struct {
	ID           int64     `json:"id"`
	Nombre       string    `json:"nombre"`
	Sexo         int16     `json:"sexo"` // binary-coded, semantics owned by the registry
	RutaImagen   string    `json:"rutaImagen"`
	NombreImagen string    `json:"nombreImagen"`
	FechaIngreso time.Time `json:"fechaIngreso"`
}

// Study is one uploaded imaging file bound to a patient. CreatedAt is assigned
// by the server when the file finishes being stored and never changes.
type Study struct {
	ID        int64
	PatientID int64
	Nombre    string // stored file name, <epochMillis>_<sanitizedOriginalName>
	Ruta      string // path relative to the upload root, always '/'-separated
	CreatedAt time.Time
}

// View derives the wire representation of the study at the given instant.
// CanDelete is recomputed on every read and never persisted.
func (s Study) View(now time.Time) StudyView {
	return StudyView{
		ID:           s.ID,
		Nombre:       s.Nombre,
		Ruta:         s.Ruta,
		FechaEstudio: s.CreatedAt,
		CanDelete:    CanDelete(s.CreatedAt, now),
	}
}

// StudyView is the study shape returned to API clients.
type StudyView struct {
	ID           int64     `json:"id"`
	Nombre       string    `json:"nombre"`
	Ruta         string    `json:"ruta"`
	FechaEstudio time.Time `json:"fechaEstudio"`
	CanDelete    bool      `json:"canDelete"`
}

var (
	// ErrPatientNotFound: the referenced patient does not exist in the registry.
	ErrPatientNotFound = errors.New("patient not found")
	// ErrStudyNotFound: no study with the given id.
	ErrStudyNotFound = errors.New("study not found")
	// ErrWindowClosed: the delete window has expired. A policy refusal, not a fault.
	ErrWindowClosed = errors.New("study delete window closed")
)
