package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/futside/middleware"
	"github.com/Dosada05/futside/services"
)

const maxPhotoUploadBytes = 10 << 20 // 10MB

type FieldHandler struct {
	fieldService services.FieldService
}

func NewFieldHandler(fieldService services.FieldService) *FieldHandler {
	return &FieldHandler{fieldService: fieldService}
}

func (h *FieldHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreateFieldInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	field, err := h.fieldService.CreateField(r.Context(), ownerID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"field": field}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *FieldHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDParam(r, "fieldID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	field, err := h.fieldService.GetFieldByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"field": field}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *FieldHandler) List(w http.ResponseWriter, r *http.Request) {
	var city *string
	if raw := r.URL.Query().Get("city"); raw != "" {
		city = &raw
	}

	fields, err := h.fieldService.ListFields(r.Context(), city)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"fields": fields}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadPhoto принимает multipart/form-data с полем "photo".
func (h *FieldHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	fieldID, err := getIDParam(r, "fieldID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadBytes)
	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form, check upload size"))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		badRequestResponse(w, r, errors.New("photo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	field, err := h.fieldService.UploadPhoto(r.Context(), fieldID, actorID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"field": field}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
