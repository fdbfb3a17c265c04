package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/veltamail/veltamail-backend/internal/api/response"
	"github.com/veltamail/veltamail-backend/internal/auth"
	apperrors "github.com/veltamail/veltamail-backend/internal/errors"
	"github.com/veltamail/veltamail-backend/internal/logger"
	"github.com/veltamail/veltamail-backend/internal/validator"
)

// MagicLinkHandler handles magic-link issuance and redemption
type MagicLinkHandler struct {
	service *auth.MagicLinkService
	secLog  *logger.SecurityLogger
}

// NewMagicLinkHandler creates a new MagicLinkHandler
func NewMagicLinkHandler(service *auth.MagicLinkService, secLog *logger.SecurityLogger) *MagicLinkHandler {
	return &MagicLinkHandler{
		service: service,
		secLog:  secLog,
	}
}

// IssueMagicLinkRequest represents the request body for issuing a magic link
type IssueMagicLinkRequest struct {
	Address string `json:"address" validate:"required"`
}

// RedeemMagicLinkRequest represents the request body for redeeming a magic link
type RedeemMagicLinkRequest struct {
	Token string `json:"token" validate:"required"`
}

// Issue handles POST /api/auth/magic-links
// Issuance is idempotent: while an unused, unexpired link exists for the
// mailbox, the same link is returned again.
func (h *MagicLinkHandler) Issue(c echo.Context) error {
	var req IssueMagicLinkRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.Address == "" {
		return response.BadRequest(c, "address is required")
	}
	if err := validator.ValidateEmail(req.Address); err != nil {
		return response.BadRequest(c, "invalid mailbox address")
	}

	link, err := h.service.Issue(c.Request().Context(), req.Address)
	if err != nil {
		if h.secLog != nil {
			h.secLog.MagicLinkDenied(c.RealIP(), "issue: "+apperrors.GetErrorCode(err))
		}
		switch {
		case errors.Is(err, apperrors.ErrMailboxNotFound):
			return response.NotFound(c, "mailbox not found")
		case errors.Is(err, apperrors.ErrMailboxInactive):
			return response.Error(c, apperrors.ErrMailboxInactive)
		default:
			return response.InternalError(c, "failed to issue magic link")
		}
	}

	if h.secLog != nil {
		h.secLog.MagicLinkIssued(c.RealIP(), req.Address)
	}

	return response.Created(c, link)
}

// Redeem handles POST /api/auth/magic-links/redeem
// Exchanges a single-use magic-link token for a session credential.
func (h *MagicLinkHandler) Redeem(c echo.Context) error {
	var req RedeemMagicLinkRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := validator.ValidateMagicLinkToken(req.Token); err != nil {
		if h.secLog != nil {
			h.secLog.MagicLinkDenied(c.RealIP(), "malformed token")
		}
		return response.BadRequest(c, "malformed token")
	}

	session, err := h.service.Redeem(c.Request().Context(), req.Token)
	if err != nil {
		if h.secLog != nil {
			h.secLog.MagicLinkDenied(c.RealIP(), "redeem: "+apperrors.GetErrorCode(err))
		}
		switch {
		case errors.Is(err, apperrors.ErrInvalidToken),
			errors.Is(err, apperrors.ErrExpiredToken),
			errors.Is(err, apperrors.ErrAlreadyUsedToken),
			errors.Is(err, apperrors.ErrMailboxInactive):
			return response.Error(c, err)
		default:
			return response.InternalError(c, "failed to redeem magic link")
		}
	}

	if h.secLog != nil {
		h.secLog.MagicLinkRedeemed(c.RealIP(), session.Mailbox.FullAddress)
	}

	return response.Success(c, session)
}
