package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/veltamail/veltamail-backend/internal/api/response"
	apperrors "github.com/veltamail/veltamail-backend/internal/errors"
	"github.com/veltamail/veltamail-backend/internal/mailer"
	"github.com/veltamail/veltamail-backend/internal/validator"
)

// SendHandler handles outbound mail submission
type SendHandler struct {
	mailer mailer.Mailer

	// defaultFrom is used when the request omits a sender address.
	defaultFrom string
}

// NewSendHandler creates a new SendHandler
func NewSendHandler(m mailer.Mailer, defaultFrom string) *SendHandler {
	return &SendHandler{
		mailer:      m,
		defaultFrom: defaultFrom,
	}
}

// SendMailRequest represents the request body for sending a message
type SendMailRequest struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to" validate:"required"`
	Subject string `json:"subject,omitempty"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Send handles POST /api/mail/send
// The message is DKIM-signed and handed to the relay synchronously; a
// transport failure is reported to the caller, who owns the retry decision.
func (h *SendHandler) Send(c echo.Context) error {
	if h.mailer == nil {
		return response.InternalError(c, "outbound mail not configured")
	}

	var req SendMailRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	from := req.From
	if from == "" {
		from = h.defaultFrom
	}
	if from == "" {
		return response.BadRequest(c, "from is required")
	}
	if err := validator.ValidateEmail(from); err != nil {
		return response.BadRequest(c, "invalid from address")
	}
	if req.To == "" {
		return response.BadRequest(c, "to is required")
	}
	if err := validator.ValidateEmail(req.To); err != nil {
		return response.BadRequest(c, "invalid to address")
	}
	if req.Text == "" && req.HTML == "" {
		return response.BadRequest(c, "text or html body is required")
	}

	receipt, err := h.mailer.Send(c.Request().Context(), &mailer.Message{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrTransport) {
			return response.Error(c, err)
		}
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalError(c, "failed to send message")
	}

	return response.Success(c, receipt)
}
