package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"sistemamedico.org/internal/audit"
	"sistemamedico.org/internal/clinic"
	"sistemamedico.org/internal/obs"
)

// multipart form field carrying the uploaded study.
const uploadField = "file"

func (a *API) handlePatients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	patients, err := a.clinic.ListPatients(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if patients == nil {
		patients = []clinic.Patient{}
	}
	writeJSON(w, http.StatusOK, patients)
}

// handlePatientResource routes /api/patients/{id}/studies.
func (a *API) handlePatientResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/patients/")
	idPart, ok := strings.CutSuffix(path, "/studies")
	if !ok || idPart == "" || strings.Contains(idPart, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	patientID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.listStudies(w, r, patientID)
	case http.MethodPost:
		a.uploadStudy(w, r, patientID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listStudies(w http.ResponseWriter, r *http.Request, patientID int64) {
	studies, err := a.clinic.ListStudies(r.Context(), patientID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if studies == nil {
		studies = []clinic.StudyView{}
	}
	writeJSON(w, http.StatusOK, studies)
}

func (a *API) uploadStudy(w http.ResponseWriter, r *http.Request, patientID int64) {
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		obs.CountStudyUpload("rejected")
		writeError(w, r, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	view, err := a.clinic.CreateStudy(r.Context(), patientID, header.Filename, file)
	if err != nil {
		if errors.Is(err, clinic.ErrPatientNotFound) {
			obs.CountStudyUpload("rejected")
			writeError(w, r, http.StatusNotFound, "patient not found")
			return
		}
		// Storage and persistence faults are logged with context but reach
		// the client as a generic failure without internal paths.
		obs.CountStudyUpload("error")
		obs.LogError("study upload failed", err, map[string]any{
			"patient_id": patientID,
			"filename":   header.Filename,
		})
		writeError(w, r, http.StatusInternalServerError, "upload failed")
		return
	}

	obs.CountStudyUpload("ok")
	_ = audit.LogEvent(r.Context(), "study.upload", map[string]any{
		"patient_id": patientID,
		"study_id":   view.ID,
		"nombre":     view.Nombre,
	})
	writeJSON(w, http.StatusOK, view)
}

// handleStudyResource routes /api/studies/{id}.
func (a *API) handleStudyResource(w http.ResponseWriter, r *http.Request) {
	idPart := strings.TrimPrefix(r.URL.Path, "/api/studies/")
	if idPart == "" || strings.Contains(idPart, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	studyID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	if err := a.clinic.DeleteStudy(r.Context(), studyID); err != nil {
		switch {
		case errors.Is(err, clinic.ErrStudyNotFound):
			obs.CountStudyDelete("not_found")
			writeError(w, r, http.StatusNotFound, "study not found")
		case errors.Is(err, clinic.ErrWindowClosed):
			// Expected user-facing refusal, logged as audit, not as error.
			obs.CountStudyDelete("refused")
			_ = audit.LogEvent(r.Context(), "study.delete.refused", map[string]any{
				"study_id": studyID,
			})
			writeError(w, r, http.StatusForbidden, "delete window expired")
		default:
			obs.CountStudyDelete("error")
			obs.LogError("study delete failed", err, map[string]any{
				"study_id": studyID,
			})
			writeError(w, r, http.StatusInternalServerError, "delete failed")
		}
		return
	}

	obs.CountStudyDelete("ok")
	_ = audit.LogEvent(r.Context(), "study.delete", map[string]any{
		"study_id": studyID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
