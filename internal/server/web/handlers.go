package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
)

const maxBodyBytes = 1 << 20

type TokenValidator interface {
	ValidateToken(ctx context.Context, raw string) (*models.AccessClaims, error)
}

// SessionAPI is the part of services.SessionService the handlers call.
type SessionAPI interface {
	TokenValidator
	Register(ctx context.Context, req services.RegisterRequest) (*models.UserPublicView, error)
	Login(ctx context.Context, req services.LoginRequest) (*models.TokenPair, error)
	Refresh(ctx context.Context, value string) (*models.TokenPair, error)
	Logout(ctx context.Context, claims *models.AccessClaims, value string, all bool) error
	Profile(ctx context.Context, userID int64) (*models.UserPublicView, error)
}

type Handlers struct {
	sessions SessionAPI
	log      logging.Logger
}

func NewHandlers(s SessionAPI, l logging.Logger) *Handlers {
	return &Handlers{sessions: s, log: l}
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.sessions.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pair)
}

// Refresh is served on GET with a JSON body carrying the refresh token.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req services.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pair)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
		return
	}

	var req services.LogoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := services.Validate(req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.Logout(r.Context(), claims, req.RefreshToken, req.All); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
		return
	}

	user, err := h.sessions.Profile(r.Context(), claims.Sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, fmt.Errorf("%w: malformed JSON body", common.ErrorValidation))
		return false
	}
	return true
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, public := statusFor(err)
	if !public {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeErrorMessage(w, status, "internal server error")
		return
	}
	writeErrorMessage(w, status, err.Error())
}
