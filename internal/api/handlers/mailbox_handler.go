package handlers

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/veltamail/veltamail-backend/internal/api/response"
	"github.com/veltamail/veltamail-backend/internal/models"
	"github.com/veltamail/veltamail-backend/internal/repository"
	"github.com/veltamail/veltamail-backend/internal/validator"
)

// MailboxHandler handles mailbox-related HTTP requests
type MailboxHandler struct {
	mailboxRepo repository.MailboxRepository
	domainRepo  repository.DomainRepository
}

// NewMailboxHandler creates a new MailboxHandler
func NewMailboxHandler(mailboxRepo repository.MailboxRepository, domainRepo repository.DomainRepository) *MailboxHandler {
	return &MailboxHandler{
		mailboxRepo: mailboxRepo,
		domainRepo:  domainRepo,
	}
}

// CreateMailboxRequest represents the request body for creating a mailbox
type CreateMailboxRequest struct {
	LocalPart string `json:"local_part" validate:"required"`
	DomainID  uint   `json:"domain_id" validate:"required"`
}

// CreateRandomMailboxRequest represents the request body for creating a random mailbox
type CreateRandomMailboxRequest struct {
	DomainID uint `json:"domain_id" validate:"required"`
}

// SetMailboxActiveRequest represents the request body for toggling a mailbox
type SetMailboxActiveRequest struct {
	Active *bool `json:"active"`
}

// Create handles POST /api/mailboxes
func (h *MailboxHandler) Create(c echo.Context) error {
	var req CreateMailboxRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.LocalPart == "" {
		return response.BadRequest(c, "local_part is required")
	}
	if req.DomainID == 0 {
		return response.BadRequest(c, "domain_id is required")
	}
	if err := validator.ValidateLocalPart(req.LocalPart); err != nil {
		return response.BadRequest(c, "invalid local_part")
	}

	// Get domain to verify it exists and is active
	domain, err := h.domainRepo.GetByID(c.Request().Context(), req.DomainID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "domain not found")
		}
		return response.InternalError(c, "failed to get domain")
	}

	if !domain.IsActive {
		return response.BadRequest(c, "domain is not active")
	}

	mailbox := &models.Mailbox{
		LocalPart:   req.LocalPart,
		DomainID:    req.DomainID,
		FullAddress: req.LocalPart + "@" + domain.Name,
	}

	if err := h.mailboxRepo.Create(c.Request().Context(), mailbox); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "mailbox already exists")
		}
		return response.InternalError(c, "failed to create mailbox")
	}

	return response.Created(c, mailbox)
}

// CreateRandom handles POST /api/mailboxes/random
func (h *MailboxHandler) CreateRandom(c echo.Context) error {
	var req CreateRandomMailboxRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.DomainID == 0 {
		return response.BadRequest(c, "domain_id is required")
	}

	// Get domain to verify it exists and is active
	domain, err := h.domainRepo.GetByID(c.Request().Context(), req.DomainID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "domain not found")
		}
		return response.InternalError(c, "failed to get domain")
	}

	if !domain.IsActive {
		return response.BadRequest(c, "domain is not active")
	}

	// Generate random 8-character alphanumeric local part
	localPart := generateRandomString(8)

	mailbox := &models.Mailbox{
		LocalPart:   localPart,
		DomainID:    req.DomainID,
		FullAddress: localPart + "@" + domain.Name,
	}

	if err := h.mailboxRepo.Create(c.Request().Context(), mailbox); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Extremely rare collision, try again
			localPart = generateRandomString(8)
			mailbox.LocalPart = localPart
			mailbox.FullAddress = localPart + "@" + domain.Name
			if err := h.mailboxRepo.Create(c.Request().Context(), mailbox); err != nil {
				return response.InternalError(c, "failed to create mailbox")
			}
		} else {
			return response.InternalError(c, "failed to create mailbox")
		}
	}

	return response.Created(c, mailbox)
}

// List handles GET /api/mailboxes
func (h *MailboxHandler) List(c echo.Context) error {
	domainIDStr := c.QueryParam("domain_id")
	if domainIDStr == "" {
		return response.BadRequest(c, "domain_id is required")
	}

	domainID, err := strconv.ParseUint(domainIDStr, 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid domain_id")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset = validator.ValidatePagination(limit, offset)

	mailboxes, total, err := h.mailboxRepo.ListByDomain(c.Request().Context(), uint(domainID), limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list mailboxes")
	}

	return response.Paginated(c, mailboxes, total, limit, offset)
}

// Get handles GET /api/mailboxes/:id
func (h *MailboxHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid mailbox ID")
	}

	mailbox, err := h.mailboxRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "mailbox not found")
		}
		return response.InternalError(c, "failed to get mailbox")
	}

	// Update last accessed timestamp
	_ = h.mailboxRepo.UpdateLastAccessed(c.Request().Context(), uint(id))

	return response.Success(c, mailbox)
}

// SetActive handles PATCH /api/mailboxes/:id/active
// A deactivated mailbox stops receiving mail and cannot issue or redeem
// magic links until reactivated.
func (h *MailboxHandler) SetActive(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid mailbox ID")
	}

	var req SetMailboxActiveRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Active == nil {
		return response.BadRequest(c, "active is required")
	}

	if err := h.mailboxRepo.SetActive(c.Request().Context(), uint(id), *req.Active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "mailbox not found")
		}
		return response.InternalError(c, "failed to update mailbox")
	}

	mailbox, err := h.mailboxRepo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		return response.InternalError(c, "failed to get mailbox")
	}

	return response.Success(c, mailbox)
}

// Delete handles DELETE /api/mailboxes/:id
func (h *MailboxHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid mailbox ID")
	}

	if err := h.mailboxRepo.Delete(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "mailbox not found")
		}
		return response.InternalError(c, "failed to delete mailbox")
	}

	return response.NoContent(c)
}

// generateRandomString generates a random alphanumeric string of given length
func generateRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	result := make([]byte, length)
	for i := range result {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[n.Int64()]
	}
	return string(result)
}
