// Package api exposes the model vault workflows over HTTP. The caller is
// the already-authenticated UI layer: user identity arrives as an opaque id
// in the path and is trusted as-is.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/avatarkit/modelvault/pkg/modelvault"
)

// maxUploadBytes caps multipart uploads held in memory before spilling to disk.
const maxUploadBytes = 64 << 20

// Handler handles HTTP requests for the model vault
type Handler struct {
	service modelvault.Service
}

// NewHandler creates a new model vault handler
func NewHandler(service modelvault.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the routes for the model vault
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)

		r.Get("/models", h.ListModels)
		r.Post("/models", h.UploadModel)
		r.Put("/models/active", h.SetActiveModel)
		r.Delete("/models/{assetID}", h.DeleteModel)
		r.Get("/models/{assetID}/download", h.DownloadModel)

		r.Post("/reconcile", h.Reconcile)
	})

	return r
}

// ModelResponse is the response body for a single model asset
type ModelResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// ModelListResponse is the response body for the model list
type ModelListResponse struct {
	Models         []ModelResponse `json:"models"`
	ActiveURL      string          `json:"active_url,omitempty"`
	ActiveDangling bool            `json:"active_dangling"`
}

// ProfileResponse is the response body for a profile
type ProfileResponse struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	ModelURL  string    `json:"model_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UploadResponse is the response body after a successful upload
type UploadResponse struct {
	Model   ModelResponse   `json:"model"`
	Profile ProfileResponse `json:"profile"`
}

// SetActiveModelRequest is the request body for selecting the active model
type SetActiveModelRequest struct {
	AssetID string `json:"asset_id"`
}

// UpdateProfileRequest is the request body for updating profile names
type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

// ReconcileRequest is the request body for the reconciliation sweep
type ReconcileRequest struct {
	RemoveOrphanedBlobs bool `json:"remove_orphaned_blobs"`
	ClearDanglingActive bool `json:"clear_dangling_active"`
}

// UploadModel accepts a multipart upload and runs the upload workflow
func (h *Handler) UploadModel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	result, err := h.service.UploadAndActivate(r.Context(), modelvault.UploadModelRequest{
		UserID:   userID,
		FileName: header.Filename,
		Content:  file,
	})
	if err != nil {
		slog.Error("upload workflow failed", "user_id", userID, "file_name", header.Filename, "error", err)
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{
		Model:   toModelResponse(result.Asset, result.Profile),
		Profile: toProfileResponse(result.Profile),
	})
}

// ListModels returns the user's models with their active/inactive status
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	assets, err := h.service.ListAssets(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list assets", "user_id", userID, "error", err)
		renderServiceError(w, r, err)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil && !errors.Is(err, modelvault.ErrProfileNotFound) {
		slog.Error("failed to get profile", "user_id", userID, "error", err)
		renderServiceError(w, r, err)
		return
	}

	resp := ModelListResponse{Models: make([]ModelResponse, 0, len(assets))}
	for _, a := range assets {
		resp.Models = append(resp.Models, toModelResponse(a, profile))
	}
	if profile != nil {
		resp.ActiveURL = profile.ModelURL
	}

	// Surface a dangling active pointer so the caller can offer cleanup.
	if _, err := h.service.ActiveAsset(r.Context(), userID); errors.Is(err, modelvault.ErrActiveModelDangling) {
		resp.ActiveDangling = true
	}

	render.JSON(w, r, resp)
}

// SetActiveModel runs the selection workflow
func (h *Handler) SetActiveModel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req SetActiveModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid asset id")
		return
	}

	profile, err := h.service.SetActiveModel(r.Context(), modelvault.SetActiveModelRequest{
		UserID:  userID,
		AssetID: assetID,
	})
	if err != nil {
		slog.Error("selection workflow failed", "user_id", userID, "asset_id", assetID, "error", err)
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, toProfileResponse(profile))
}

// DeleteModel runs the delete workflow. Replaying a delete is success.
func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	assetID, err := uuid.Parse(chi.URLParam(r, "assetID"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid asset id")
		return
	}

	// The blob key derives from the original filename. Take it from the
	// catalog record when it still exists, else from the file_name query
	// parameter (replayed deletes).
	fileName := r.URL.Query().Get("file_name")
	if fileName == "" {
		assets, err := h.service.ListAssets(r.Context(), userID)
		if err != nil {
			slog.Error("failed to list assets", "user_id", userID, "error", err)
			renderServiceError(w, r, err)
			return
		}
		for _, a := range assets {
			if a.ID == assetID {
				fileName = a.FileName
				break
			}
		}
	}
	if fileName == "" {
		// Neither a record nor a hint; nothing left to delete.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.service.DeleteAsset(r.Context(), modelvault.DeleteAssetRequest{
		UserID:   userID,
		AssetID:  assetID,
		FileName: fileName,
	}); err != nil {
		slog.Error("delete workflow failed", "user_id", userID, "asset_id", assetID, "error", err)
		renderServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadModel streams a model blob
func (h *Handler) DownloadModel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	assetID, err := uuid.Parse(chi.URLParam(r, "assetID"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid asset id")
		return
	}

	assets, err := h.service.ListAssets(r.Context(), userID)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	var target *modelvault.Asset
	for _, a := range assets {
		if a.ID == assetID {
			target = a
			break
		}
	}
	if target == nil {
		renderError(w, r, http.StatusNotFound, "model not found")
		return
	}

	rc, err := h.service.DownloadAsset(r.Context(), userID, target.FileName)
	if err != nil {
		slog.Error("download failed", "user_id", userID, "asset_id", assetID, "error", err)
		renderServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+target.FileName+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("failed to stream model", "user_id", userID, "asset_id", assetID, "error", err)
	}
}

// GetProfile returns the user's profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, toProfileResponse(profile))
}

// UpdateProfile replaces the profile's name fields
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), modelvault.UpdateProfileRequest{
		UserID:   userID,
		FullName: req.FullName,
		Username: req.Username,
	})
	if err != nil {
		slog.Error("profile update failed", "user_id", userID, "error", err)
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, toProfileResponse(profile))
}

// Reconcile runs the per-user reconciliation sweep
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req ReconcileRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	report, err := h.service.Reconcile(r.Context(), modelvault.ReconcileRequest{
		UserID:              userID,
		RemoveOrphanedBlobs: req.RemoveOrphanedBlobs,
		ClearDanglingActive: req.ClearDanglingActive,
	})
	if err != nil {
		slog.Error("reconcile failed", "user_id", userID, "error", err)
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, report)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	return userID, true
}

func toModelResponse(a *modelvault.Asset, p *modelvault.Profile) ModelResponse {
	return ModelResponse{
		ID:        a.ID.String(),
		URL:       a.URL,
		FileName:  a.FileName,
		CreatedAt: a.CreatedAt,
		Active:    a.Active(p),
	}
}

func toProfileResponse(p *modelvault.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:    p.UserID.String(),
		FullName:  p.FullName,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		ModelURL:  p.ModelURL,
		UpdatedAt: p.UpdatedAt,
	}
}
