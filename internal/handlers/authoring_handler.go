package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/japanesestudent/course-authoring/internal/authoring"
	"github.com/japanesestudent/course-authoring/internal/middleware"
	"github.com/japanesestudent/course-authoring/internal/models"
	"github.com/japanesestudent/course-authoring/internal/storage"
	"go.uber.org/zap"
)

// SessionRegistry defines the interface for authoring session bookkeeping
type SessionRegistry interface {
	// Open starts an authoring session for an existing course.
	//
	// "ctx" is the context for the request.
	// "courseID" is the identifier of the course to edit.
	//
	// Returns the session identifier and the session, or an error.
	Open(ctx context.Context, courseID int) (string, *authoring.Session, error)
	// Get returns a registered session.
	//
	// If the session is unknown or was evicted, services.ErrSessionNotFound is returned.
	Get(id string) (*authoring.Session, error)
	// Close discards a session and releases its local files.
	Close(id string) error
}

// FileStager defines the interface for staging uploaded files on local disk
type FileStager interface {
	// Stage copies "r" into a new staged file named after "name"
	Stage(name string, r io.Reader) (*storage.StagedFile, error)
}

// AuthoringHandler handles HTTP requests for course authoring sessions
type AuthoringHandler struct {
	BaseHandler
	registry SessionRegistry
	stager   FileStager
}

// NewAuthoringHandler creates a new authoring handler
func NewAuthoringHandler(registry SessionRegistry, stager FileStager, logger *zap.Logger) *AuthoringHandler {
	return &AuthoringHandler{
		BaseHandler: BaseHandler{Logger: logger},
		registry:    registry,
		stager:      stager,
	}
}

// RegisterRoutes registers all authoring handler routes
func (h *AuthoringHandler) RegisterRoutes(r chi.Router) {
	r.Route("/authoring/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Get("/dirty", h.GetDirty)
			r.Get("/validation", h.Validate)
			r.Get("/intents", h.GetIntents)
			r.Post("/commit", h.Commit)

			r.Post("/media", h.AddMedia)
			r.Post("/media/reorder", h.ReorderMedia)
			r.Patch("/media/{localID}", h.EditMedia)
			r.Delete("/media/{localID}", h.RemoveMedia)
			r.Put("/selection", h.SelectMedia)

			r.Patch("/metadata", h.UpdateMetadata)
			r.Post("/tags", h.AddTag)
			r.Delete("/tags/{tag}", h.RemoveTag)
			r.Put("/cover", h.SetCover)
			r.Delete("/cover", h.ClearCover)
		})
	})
}

type openSessionRequest struct {
	CourseID int `json:"courseId"`
}

type reorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

type selectionRequest struct {
	Index *int `json:"index"`
}

type metadataRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

type commitRequest struct {
	Intent models.CommitIntent `json:"intent"`
}

type validationResponse struct {
	Tier   models.ValidationTier `json:"tier"`
	Valid  bool                  `json:"valid"`
	Errors models.FieldErrors    `json:"errors"`
}

type validationErrorResponse struct {
	Error  string             `json:"error"`
	Errors models.FieldErrors `json:"errors"`
}

// OpenSession handles POST /authoring/sessions
func (h *AuthoringHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseID <= 0 {
		h.RespondError(w, http.StatusBadRequest, "courseId must be a positive integer")
		return
	}

	id, session, err := h.registry.Open(r.Context(), req.CourseID)
	if err != nil {
		h.respondServiceError(w, err, "failed to open authoring session")
		return
	}

	middleware.TagSession(w, r, id, session.CourseID())
	view := session.View()
	view.SessionID = id
	h.RespondJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /authoring/sessions/{sessionID}
func (h *AuthoringHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	view := session.View()
	view.SessionID = chi.URLParam(r, "sessionID")
	h.RespondJSON(w, http.StatusOK, view)
}

// CloseSession handles DELETE /authoring/sessions/{sessionID}
func (h *AuthoringHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(chi.URLParam(r, "sessionID")); err != nil {
		h.respondServiceError(w, err, "failed to close authoring session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDirty handles GET /authoring/sessions/{sessionID}/dirty
func (h *AuthoringHandler) GetDirty(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]bool{"dirty": session.IsDirty()})
}

// Validate handles GET /authoring/sessions/{sessionID}/validation?tier=draft|publish
func (h *AuthoringHandler) Validate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	tier := models.ValidationTier(r.URL.Query().Get("tier"))
	if tier == "" {
		tier = models.ValidationTierDraft
	}
	errs, err := session.Validate(tier)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.RespondJSON(w, http.StatusOK, validationResponse{Tier: tier, Valid: len(errs) == 0, Errors: errs})
}

// GetIntents handles GET /authoring/sessions/{sessionID}/intents
func (h *AuthoringHandler) GetIntents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string][]models.CommitIntent{"intents": session.AvailableIntents()})
}

// Commit handles POST /authoring/sessions/{sessionID}/commit
func (h *AuthoringHandler) Commit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req commitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := session.Commit(r.Context(), req.Intent)
	if errors.Is(err, authoring.ErrValidationFailed) && result != nil {
		h.RespondJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{Error: err.Error(), Errors: result.Errors})
		return
	}
	if err != nil {
		h.respondServiceError(w, err, "failed to commit course")
		return
	}

	h.RespondJSON(w, http.StatusOK, result)
}

// AddMedia handles POST /authoring/sessions/{sessionID}/media (multipart "files")
func (h *AuthoringHandler) AddMedia(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	form, err := readStagedForm(r, h.stager)
	if err != nil {
		h.Logger.Info("failed to read media upload", zap.Error(err))
		h.RespondError(w, formStatus(err), "failed to read uploaded files")
		return
	}
	defer form.release()

	files := form.take("files")
	if len(files) == 0 {
		h.RespondError(w, http.StatusBadRequest, "files are required")
		return
	}

	result, err := session.AddMedia(files)
	if err != nil {
		h.respondServiceError(w, err, "failed to add media")
		return
	}
	h.RespondJSON(w, http.StatusOK, result)
}

// RemoveMedia handles DELETE /authoring/sessions/{sessionID}/media/{localID}
func (h *AuthoringHandler) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	summary, err := session.RemoveMedia(chi.URLParam(r, "localID"))
	if err != nil {
		h.respondServiceError(w, err, "failed to remove media")
		return
	}
	h.RespondJSON(w, http.StatusOK, summary)
}

// ReorderMedia handles POST /authoring/sessions/{sessionID}/media/reorder
func (h *AuthoringHandler) ReorderMedia(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil || req.From == nil || req.To == nil {
		h.RespondError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	summary, err := session.ReorderMedia(*req.From, *req.To)
	if err != nil {
		h.respondServiceError(w, err, "failed to reorder media")
		return
	}
	h.RespondJSON(w, http.StatusOK, summary)
}

// EditMedia handles PATCH /authoring/sessions/{sessionID}/media/{localID}
// (multipart "title", "description", "thumbnail", "clearThumbnail").
// Fields that are not sent keep their current value.
func (h *AuthoringHandler) EditMedia(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	form, err := readStagedForm(r, h.stager)
	if err != nil {
		h.Logger.Info("failed to read media edit", zap.Error(err))
		h.RespondError(w, formStatus(err), "failed to read request")
		return
	}
	defer form.release()

	localID := chi.URLParam(r, "localID")
	var fields models.MediaItemFields
	if title, ok := form.value("title"); ok {
		fields.Title = &title
	}
	if description, ok := form.value("description"); ok {
		fields.Description = &description
	}
	if thumbnail := form.takeOne("thumbnail"); thumbnail != nil {
		fields.Thumbnail = &models.ImageRef{File: thumbnail}
	} else if clearThumbnail, _ := form.value("clearThumbnail"); clearThumbnail == "true" {
		fields.Thumbnail = &models.ImageRef{}
	}

	summary, err := session.EditMediaMetadata(localID, fields)
	if err != nil {
		h.respondServiceError(w, err, "failed to edit media")
		return
	}
	h.RespondJSON(w, http.StatusOK, summary)
}

// SelectMedia handles PUT /authoring/sessions/{sessionID}/selection
func (h *AuthoringHandler) SelectMedia(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil || req.Index == nil {
		h.RespondError(w, http.StatusBadRequest, "index is required")
		return
	}

	if err := session.SelectMedia(*req.Index); err != nil {
		h.respondServiceError(w, err, "failed to select media")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateMetadata handles PATCH /authoring/sessions/{sessionID}/metadata
func (h *AuthoringHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req metadataRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		h.RespondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := session.UpdateMetadataField(req.Name, req.Value); err != nil {
		h.respondServiceError(w, err, "failed to update metadata")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTag handles POST /authoring/sessions/{sessionID}/tags
func (h *AuthoringHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.AddTag(req.Tag); err != nil {
		h.respondServiceError(w, err, "failed to add tag")
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string][]string{"tags": session.Metadata().Tags})
}

// RemoveTag handles DELETE /authoring/sessions/{sessionID}/tags/{tag}
func (h *AuthoringHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	// chi matches on the escaped path only when it differs from the decoded one
	tag := chi.URLParam(r, "tag")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(tag)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid tag")
			return
		}
		tag = unescaped
	}

	if err := session.RemoveTag(tag); err != nil {
		h.respondServiceError(w, err, "failed to remove tag")
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string][]string{"tags": session.Metadata().Tags})
}

// SetCover handles PUT /authoring/sessions/{sessionID}/cover (multipart "file")
func (h *AuthoringHandler) SetCover(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	form, err := readStagedForm(r, h.stager)
	if err != nil {
		h.Logger.Info("failed to read cover upload", zap.Error(err))
		h.RespondError(w, formStatus(err), "failed to read uploaded file")
		return
	}
	defer form.release()

	file := form.takeOne("file")
	if file == nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}

	if err := session.SetCover(file); err != nil {
		h.respondServiceError(w, err, "failed to set cover")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCover handles DELETE /authoring/sessions/{sessionID}/cover
func (h *AuthoringHandler) ClearCover(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.ClearCover(); err != nil {
		h.respondServiceError(w, err, "failed to clear cover")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session resolves the {sessionID} path parameter, responding with an error when it is unknown
func (h *AuthoringHandler) session(w http.ResponseWriter, r *http.Request) (*authoring.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	session, err := h.registry.Get(id)
	if err != nil {
		h.respondServiceError(w, err, "failed to get authoring session")
		return nil, false
	}
	middleware.TagSession(w, r, id, session.CourseID())
	return session, true
}

// respondServiceError maps a domain error to its status code.
// Unexpected errors are logged and answered with "message".
func (h *AuthoringHandler) respondServiceError(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
		h.RespondError(w, status, message)
		return
	}
	h.RespondError(w, status, err.Error())
}
