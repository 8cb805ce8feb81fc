package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/session"
)

// AdminHandler exposes session-cache maintenance operations. Deleting a
// session resets that user's conversation to the idle phase; deleting a
// missing session is a no-op.
type AdminHandler struct {
	sessions session.Store
	logger   *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sessions session.Store, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		sessions: sessions,
		logger:   logger.Named("admin"),
	}
}

// RegisterRoutes registers the admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("DELETE /admin/sessions/{phone}", h.DeleteSession)
	mux.HandleFunc("DELETE /admin/sessions", h.ClearSessions)
}

// DeleteSession handles DELETE /admin/sessions/{phone}.
func (h *AdminHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")
	if phone == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_phone", "phone number is required")
		return
	}

	if err := h.sessions.Delete(r.Context(), phone); err != nil {
		h.logger.Error("Failed to delete session", zap.String("phone", phone), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "delete_failed", "failed to delete session")
		return
	}

	h.logger.Info("Session deleted", zap.String("phone", phone))
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "phone": phone})
}

// ClearSessions handles DELETE /admin/sessions.
func (h *AdminHandler) ClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context()); err != nil {
		h.logger.Error("Failed to clear sessions", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "clear_failed", "failed to clear sessions")
		return
	}

	h.logger.Info("All sessions cleared")
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
