package clinic

import (
	"context"
	"sort"
	"sync"
)

// InMemory implements Store with in-process concurrency safety. Used by the
// test suite and by DSN-less development runs.
type InMemory struct {
	mu       sync.RWMutex
	patients []Patient
	studies  map[int64]Study
	nextID   int64
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		studies: make(map[int64]Study),
	}
}

// AddPatient registers a patient. The registry is externally owned, so this
// exists only for seeding tests and demo runs.
func (s *InMemory) AddPatient(p Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = append(s.patients, p)
}

func (s *InMemory) ListPatients(ctx context.Context) ([]Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Patient, len(s.patients))
	copy(out, s.patients)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (s *InMemory) InsertStudy(ctx context.Context, st *Study) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.patientExists(st.PatientID) {
		return ErrPatientNotFound
	}
	s.nextID++
	st.ID = s.nextID
	s.studies[st.ID] = *st
	return nil
}

func (s *InMemory) ListStudies(ctx context.Context, patientID int64) ([]Study, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Study
	for _, st := range s.studies {
		if st.PatientID == patientID {
			res = append(res, st)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (s *InMemory) GetStudy(ctx context.Context, id int64) (Study, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.studies[id]
	if !ok {
		return Study{}, ErrStudyNotFound
	}
	return st, nil
}

func (s *InMemory) DeleteStudy(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.studies[id]; !ok {
		return false, nil
	}
	delete(s.studies, id)
	return true, nil
}

func (s *InMemory) patientExists(id int64) bool {
	for _, p := range s.patients {
		if p.ID == id {
			return true
		}
	}
	return false
}

var _ Store = (*InMemory)(nil)
