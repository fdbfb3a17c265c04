package handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/veltamail/veltamail-backend/internal/api/response"
	"github.com/veltamail/veltamail-backend/internal/repository"
	"github.com/veltamail/veltamail-backend/internal/storage"
	"github.com/veltamail/veltamail-backend/internal/validator"
)

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messageRepo repository.MessageRepository
	mailboxRepo repository.MailboxRepository
	archive     storage.RawArchive
}

// NewMessageHandler creates a new MessageHandler. archive may be nil, in
// which case raw message download is unavailable.
func NewMessageHandler(messageRepo repository.MessageRepository, mailboxRepo repository.MailboxRepository, archive storage.RawArchive) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		mailboxRepo: mailboxRepo,
		archive:     archive,
	}
}

// List handles GET /api/mailboxes/:mailbox_id/messages
func (h *MessageHandler) List(c echo.Context) error {
	mailboxID, err := strconv.ParseUint(c.Param("mailbox_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid mailbox ID")
	}

	// Verify mailbox exists
	_, err = h.mailboxRepo.GetByID(c.Request().Context(), uint(mailboxID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "mailbox not found")
		}
		return response.InternalError(c, "failed to get mailbox")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset = validator.ValidatePagination(limit, offset)

	messages, total, err := h.messageRepo.ListByMailbox(c.Request().Context(), uint(mailboxID), limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list messages")
	}

	return response.Paginated(c, messages, total, limit, offset)
}

// UnreadCount handles GET /api/mailboxes/:mailbox_id/messages/unread-count
func (h *MessageHandler) UnreadCount(c echo.Context) error {
	mailboxID, err := strconv.ParseUint(c.Param("mailbox_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid mailbox ID")
	}

	count, err := h.messageRepo.CountUnread(c.Request().Context(), uint(mailboxID))
	if err != nil {
		return response.InternalError(c, "failed to count unread messages")
	}

	return response.Success(c, map[string]int64{"unread_count": count})
}

// Get handles GET /api/messages/:id
func (h *MessageHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	message, err := h.messageRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to get message")
	}

	// Auto mark as read
	if !message.IsRead {
		_ = h.messageRepo.MarkAsRead(c.Request().Context(), uint(id))
		message.IsRead = true
	}

	return response.Success(c, message)
}

// GetRaw handles GET /api/messages/:id/raw
// Streams the archived RFC 5322 message as stored at delivery time.
func (h *MessageHandler) GetRaw(c echo.Context) error {
	if h.archive == nil {
		return response.InternalError(c, "raw archive not configured")
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	message, err := h.messageRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to get message")
	}

	if message.RawPath == "" {
		return response.NotFound(c, "raw message not archived")
	}

	rc, err := h.archive.Get(message.RawPath)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return response.NotFound(c, "raw message not found")
		}
		return response.InternalError(c, "failed to read raw message")
	}
	defer rc.Close()

	return c.Stream(200, "message/rfc822", rc)
}

// MarkAsRead handles PATCH /api/messages/:id/read
func (h *MessageHandler) MarkAsRead(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messageRepo.MarkAsRead(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to mark message as read")
	}

	return response.SuccessWithMessage(c, nil, "message marked as read")
}

// Delete handles DELETE /api/messages/:id
// The archived raw copy is removed alongside the database row.
func (h *MessageHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	message, err := h.messageRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to get message")
	}

	if err := h.messageRepo.Delete(c.Request().Context(), uint(id)); err != nil {
		return response.InternalError(c, "failed to delete message")
	}

	if h.archive != nil && message.RawPath != "" {
		_ = h.archive.Delete(message.RawPath)
	}

	return response.NoContent(c)
}
