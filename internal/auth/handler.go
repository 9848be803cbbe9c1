package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/imageshare/service/internal/response"
)

// Handler holds HTTP handlers for credential endpoints.
type Handler struct {
	gate       *Gate
	defaultTTL time.Duration
}

// NewHandler creates a new auth Handler.
func NewHandler(gate *Gate, defaultTTL time.Duration) *Handler {
	return &Handler{gate: gate, defaultTTL: defaultTTL}
}

type issueTokenRequest struct {
	Subject string `json:"subject" example:"ci-pipeline"`
	TTL     string `json:"ttl"     example:"15m"`
}

type issueTokenResponse struct {
	Token     string    `json:"token"      example:"eyJhbGci..."`
	ExpiresAt time.Time `json:"expires_at" example:"2026-02-27T14:48:34Z"`
}

// IssueToken godoc
//
//	@Summary		Issue bearer token
//	@Description	Returns a short-lived token that authorizes write operations in place of the API key.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			request	body		issueTokenRequest	false	"Subject and lifetime"
//	@Success		200		{object}	issueTokenResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		401		{object}	response.ErrorBody
//	@Router			/tokens [post]
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid request body")
		return
	}

	ttl := h.defaultTTL
	if req.TTL != "" {
		d, err := cast.ToDurationE(req.TTL)
		if err != nil || d < MinTTL {
			response.BadRequest(w, "invalid ttl")
			return
		}
		ttl = d
	}

	subject := req.Subject
	if subject == "" {
		subject = "api"
	}

	token, exp, err := h.gate.IssueToken(subject, ttl)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, issueTokenResponse{Token: token, ExpiresAt: exp.UTC()})
}
