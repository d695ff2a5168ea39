package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/handcricket/internal/camera"
)

// CameraHandler serves /api/camera.
type CameraHandler struct {
	game Game
}

// NewCameraHandler creates a CameraHandler.
func NewCameraHandler(g Game) *CameraHandler {
	return &CameraHandler{game: g}
}

type cameraResponse struct {
	Camera          camera.Status `json:"camera"`
	GesturesEnabled bool          `json:"gesturesEnabled"`
	Lock            string        `json:"lock,omitempty"`
}

type gesturesRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/camera"), "/")

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.status(w)
	case action == "restart" && r.Method == http.MethodPost:
		if err := h.game.RestartCamera(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.status(w)
	case action == "gestures" && r.Method == http.MethodPost:
		h.setGestures(w, r)
	case action == "" || action == "restart" || action == "gestures":
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, http.StatusNotFound, "Unknown camera action")
	}
}

func (h *CameraHandler) setGestures(w http.ResponseWriter, r *http.Request) {
	var req gesturesRequest
	if err := decode(r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := h.game.SetGesturesEnabled(r.Context(), *req.Enabled); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.status(w)
}

func (h *CameraHandler) status(w http.ResponseWriter) {
	st := h.game.Status()
	writeJSON(w, http.StatusOK, cameraResponse{
		Camera:          st.Camera,
		GesturesEnabled: st.GesturesEnabled,
		Lock:            string(st.Lock),
	})
}
