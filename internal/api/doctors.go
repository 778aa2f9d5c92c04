package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/conversational-appointment-booking/internal/doctor"
)

type DoctorListResponse struct {
	Doctors []doctor.Doctor `json:"doctors"`
	Count   int             `json:"count"`
}

func listDoctorsHandler(repo doctor.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			docs []doctor.Doctor
			err  error
		)
		if v := q.Get("specialization"); v != "" {
			spec, perr := doctor.ParseSpecialization(v)
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_specialization", perr.Error())
				return
			}
			docs, err = repo.ListBySpecialization(r.Context(), spec)
		} else {
			docs, err = repo.List(r.Context(), q.Get("all") != "true")
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeDoctors(w, docs)
	}
}

func searchDoctorsHandler(repo doctor.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "missing_query", "q is required")
			return
		}

		docs, err := repo.Search(r.Context(), query)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeDoctors(w, docs)
	}
}

func getDoctorHandler(repo doctor.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doc, err := repo.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, doctor.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, doc)
	}
}

func writeDoctors(w http.ResponseWriter, docs []doctor.Doctor) {
	if docs == nil {
		docs = []doctor.Doctor{}
	}
	writeJSON(w, http.StatusOK, DoctorListResponse{Doctors: docs, Count: len(docs)})
}
