package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/vision"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// studentIDPattern keeps IDs safe to use as photo file names.
var studentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var allowedPhotoExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// CacheReloader refreshes the in-memory embedding cache after an
// enrollment change.
type CacheReloader interface {
	ReloadCache(ctx context.Context) error
}

// StudentsHandler handles student enrollment endpoints
type StudentsHandler struct {
	config   *config.Config
	store    storage.Store
	detector vision.Detector
	reloader CacheReloader
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(cfg *config.Config, store storage.Store, detector vision.Detector, reloader CacheReloader) *StudentsHandler {
	return &StudentsHandler{
		config:   cfg,
		store:    store,
		detector: detector,
		reloader: reloader,
	}
}

// studentResponse is the JSON shape for one student
type studentResponse struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Course    string `json:"course,omitempty"`
	Enrolled  bool   `json:"enrolled"`
	CreatedAt string `json:"created_at"`
}

func toStudentResponse(s *storage.Student) studentResponse {
	return studentResponse{
		StudentID: s.StudentID,
		Name:      s.Name,
		Email:     s.Email,
		Course:    s.Course,
		Enrolled:  s.Enrolled,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// List returns all students. An optional q parameter filters by name,
// ignoring case and diacritics.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	query := storage.NormalizeName(r.URL.Query().Get("q"))
	out := make([]studentResponse, 0, len(students))
	for i := range students {
		if query != "" && !strings.Contains(storage.NormalizeName(students[i].Name), query) {
			continue
		}
		out = append(out, toStudentResponse(&students[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"students": out,
		"count":    len(out),
	})
}

// Get returns a single student by ID.
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	student, err := h.store.GetStudent(r.Context(), studentID)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	respondJSON(w, http.StatusOK, toStudentResponse(student))
}

func validateRegistration(studentID, name, email string) string {
	if len(studentID) < 1 || len(studentID) > 50 {
		return "student_id must be 1-50 characters"
	}
	if !studentIDPattern.MatchString(studentID) {
		return "student_id may only contain letters, digits, hyphens and underscores"
	}
	if len(name) < 2 || len(name) > 100 {
		return "name must be 2-100 characters"
	}
	if !emailPattern.MatchString(email) {
		return "invalid email address"
	}
	return ""
}

// Register enrolls a new student from a multipart form with a profile
// photo. The photo must contain exactly one face.
func (h *StudentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.Faces.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	studentID := strings.TrimSpace(r.FormValue("student_id"))
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	course := strings.TrimSpace(r.FormValue("course"))

	if msg := validateRegistration(studentID, name, email); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowedPhotoExts[ext]; !ok {
		respondError(w, http.StatusBadRequest, "photo must be png, jpg, jpeg or gif")
		return
	}

	photo, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read photo")
		return
	}

	embedding, err := h.extractEmbedding(photo)
	if err != nil {
		respondFaceError(w, err)
		return
	}

	student := &storage.Student{
		StudentID: studentID,
		Name:      name,
		Email:     email,
		Course:    course,
	}
	if _, err := h.store.AddStudent(r.Context(), student); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			respondError(w, http.StatusConflict, "student ID or email already registered")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to register student")
		return
	}

	if err := h.store.UpdateEmbedding(r.Context(), studentID, embedding); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store face embedding")
		return
	}

	if err := h.savePhoto(studentID, ext, photo); err != nil {
		// The enrollment is already durable; the photo file is only
		// kept for the admin UI.
		log.Printf("saving photo for %s: %v", sanitizeForLog(studentID), err)
	}

	h.reloadCache(r.Context())
	log.Printf("registered student %s (%s)", sanitizeForLog(studentID), sanitizeForLog(name))

	respondJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"student_id": studentID,
	})
}

// updateStudentRequest represents a profile update
type updateStudentRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Course string `json:"course"`
}

// Update changes a student's profile fields.
func (h *StudentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	var req updateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if msg := validateRegistration(studentID, req.Name, req.Email); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	err := h.store.UpdateStudent(r.Context(), studentID, strings.TrimSpace(req.Name), req.Email, req.Course)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if errors.Is(err, storage.ErrDuplicate) {
		respondError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update student")
		return
	}

	h.reloadCache(r.Context())
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdatePhoto replaces a student's profile photo and embedding.
func (h *StudentsHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	if _, err := h.store.GetStudent(r.Context(), studentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}

	if err := r.ParseMultipartForm(h.config.Faces.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowedPhotoExts[ext]; !ok {
		respondError(w, http.StatusBadRequest, "photo must be png, jpg, jpeg or gif")
		return
	}

	photo, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read photo")
		return
	}

	embedding, err := h.extractEmbedding(photo)
	if err != nil {
		respondFaceError(w, err)
		return
	}

	if err := h.store.UpdateEmbedding(r.Context(), studentID, embedding); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store face embedding")
		return
	}
	if err := h.savePhoto(studentID, ext, photo); err != nil {
		log.Printf("saving photo for %s: %v", sanitizeForLog(studentID), err)
	}

	h.reloadCache(r.Context())
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Delete removes a student, their attendance, and their photo.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	err := h.store.DeleteStudent(r.Context(), studentID)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete student")
		return
	}

	h.removePhotos(studentID)
	h.reloadCache(r.Context())
	log.Printf("deleted student %s", sanitizeForLog(studentID))
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *StudentsHandler) extractEmbedding(photo []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}
	return vision.ExtractSingle(h.detector, img)
}

// respondFaceError maps face extraction failures to user-facing errors.
func respondFaceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vision.ErrNoFace):
		respondError(w, http.StatusUnprocessableEntity, "no face detected in photo")
	case errors.Is(err, vision.ErrMultipleFaces):
		respondError(w, http.StatusUnprocessableEntity, "photo must contain exactly one face")
	default:
		respondError(w, http.StatusBadRequest, "could not process photo")
	}
}

func (h *StudentsHandler) savePhoto(studentID, ext string, photo []byte) error {
	if err := os.MkdirAll(h.config.Faces.Dir, 0o755); err != nil {
		return fmt.Errorf("creating faces directory: %w", err)
	}
	// Drop any stale photo with a different extension first.
	h.removePhotos(studentID)
	path := filepath.Join(h.config.Faces.Dir, studentID+ext)
	if err := os.WriteFile(path, photo, 0o644); err != nil {
		return fmt.Errorf("writing photo: %w", err)
	}
	return nil
}

func (h *StudentsHandler) removePhotos(studentID string) {
	for ext := range allowedPhotoExts {
		path := filepath.Join(h.config.Faces.Dir, studentID+ext)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("removing photo %s: %v", path, err)
		}
	}
}

func (h *StudentsHandler) reloadCache(ctx context.Context) {
	if h.reloader == nil {
		return
	}
	if err := h.reloader.ReloadCache(ctx); err != nil {
		log.Printf("reloading embedding cache: %v", err)
	}
}
