package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/veltamail/veltamail-backend/internal/api/response"
	"github.com/veltamail/veltamail-backend/internal/models"
	"github.com/veltamail/veltamail-backend/internal/repository"
	"github.com/veltamail/veltamail-backend/internal/services"
	"github.com/veltamail/veltamail-backend/internal/validator"
)

// DomainHandler handles domain-related HTTP requests
type DomainHandler struct {
	repo        repository.DomainRepository
	dnsVerifier services.MailDNSVerifier
	dkimKeys    services.DKIMKeyProvider
	smtpHost    string
}

// NewDomainHandler creates a new DomainHandler
func NewDomainHandler(repo repository.DomainRepository) *DomainHandler {
	return &DomainHandler{repo: repo}
}

// NewDomainHandlerWithDNS creates a DomainHandler that can verify the DNS
// records a domain needs before it receives mail. smtpHost is the hostname
// inbound MX records must point at; dkimKeys describes the signing key whose
// TXT record is checked for the signing domain.
func NewDomainHandlerWithDNS(
	repo repository.DomainRepository,
	dnsVerifier services.MailDNSVerifier,
	dkimKeys services.DKIMKeyProvider,
	smtpHost string,
) *DomainHandler {
	return &DomainHandler{
		repo:        repo,
		dnsVerifier: dnsVerifier,
		dkimKeys:    dkimKeys,
		smtpHost:    smtpHost,
	}
}

// CreateDomainRequest represents the request body for creating a domain
type CreateDomainRequest struct {
	Name     string `json:"name" validate:"required"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UpdateDomainRequest represents the request body for updating a domain
type UpdateDomainRequest struct {
	Name     string `json:"name,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// Create handles POST /api/domains
func (h *DomainHandler) Create(c echo.Context) error {
	var req CreateDomainRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.Name == "" {
		return response.BadRequest(c, "name is required")
	}
	if err := validator.ValidateDomain(req.Name); err != nil {
		return response.BadRequest(c, "invalid domain name")
	}

	domain := &models.Domain{
		Name:     req.Name,
		IsActive: true,
	}
	if req.IsActive != nil {
		domain.IsActive = *req.IsActive
	}

	if err := h.repo.Create(c.Request().Context(), domain); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "domain already exists")
		}
		return response.InternalError(c, "failed to create domain")
	}

	return response.Created(c, domain)
}

// List handles GET /api/domains
func (h *DomainHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("active_only") == "true"

	domains, err := h.repo.List(c.Request().Context(), activeOnly)
	if err != nil {
		return response.InternalError(c, "failed to list domains")
	}

	return response.Success(c, domains)
}

// Get handles GET /api/domains/:id
func (h *DomainHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid domain ID")
	}

	domain, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "domain not found")
		}
		return response.InternalError(c, "failed to get domain")
	}

	return response.Success(c, domain)
}

// Update handles PUT /api/domains/:id
func (h *DomainHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid domain ID")
	}

	var req UpdateDomainRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	domain, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "domain not found")
		}
		return response.InternalError(c, "failed to get domain")
	}

	if req.Name != "" {
		if err := validator.ValidateDomain(req.Name); err != nil {
			return response.BadRequest(c, "invalid domain name")
		}
		domain.Name = req.Name
	}
	if req.IsActive != nil {
		domain.IsActive = *req.IsActive
	}

	if err := h.repo.Update(c.Request().Context(), domain); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "domain name already exists")
		}
		return response.InternalError(c, "failed to update domain")
	}

	return response.Success(c, domain)
}

// Delete handles DELETE /api/domains/:id
func (h *DomainHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid domain ID")
	}

	if err := h.repo.Delete(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "domain not found")
		}
		return response.InternalError(c, "failed to delete domain")
	}

	return response.NoContent(c)
}

// DomainDNSStatus reports which mail DNS records for a domain check out
type DomainDNSStatus struct {
	Domain       string   `json:"domain"`
	MXVerified   bool     `json:"mx_verified"`
	DKIMChecked  bool     `json:"dkim_checked"`
	DKIMVerified bool     `json:"dkim_verified"`
	Errors       []string `json:"errors,omitempty"`
}

// VerifyDNS handles POST /api/domains/:id/verify-dns
// Checks that the domain's MX record points at this server. When the domain
// is the signing domain, the DKIM TXT record is checked as well.
func (h *DomainHandler) VerifyDNS(c echo.Context) error {
	if h.dnsVerifier == nil {
		return response.InternalError(c, "DNS verifier not configured")
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid domain ID")
	}

	domain, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "domain not found")
		}
		return response.InternalError(c, "failed to get domain")
	}

	status := DomainDNSStatus{Domain: domain.Name}

	mxOK, err := h.dnsVerifier.VerifyMXRecord(c.Request().Context(), domain.Name, h.smtpHost)
	status.MXVerified = mxOK
	if err != nil {
		status.Errors = append(status.Errors, err.Error())
	}

	if h.dkimKeys != nil && domain.Name == h.dkimKeys.Domain() {
		status.DKIMChecked = true
		dkimOK, err := h.dnsVerifier.VerifyDKIMRecord(c.Request().Context(), h.dkimKeys)
		status.DKIMVerified = dkimOK
		if err != nil {
			status.Errors = append(status.Errors, err.Error())
		}
	}

	// Record the outcome on the domain so operators can see when it was
	// last checked without re-running the lookups.
	now := time.Now()
	domain.MXVerified = status.MXVerified
	domain.LastDNSCheckAt = &now
	if err := h.repo.Update(c.Request().Context(), domain); err != nil {
		status.Errors = append(status.Errors, "failed to record check result")
	}

	return response.Success(c, status)
}
