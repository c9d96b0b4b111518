package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/ledger"
	"github.com/dafibh/fortuna/tokenledger/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// LedgerHandler handles token ledger HTTP requests
type LedgerHandler struct {
	engine *ledger.Engine
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(engine *ledger.Engine) *LedgerHandler {
	return &LedgerHandler{engine: engine}
}

// BalanceResponse represents a balance in API responses
type BalanceResponse struct {
	PaidTokens               int64            `json:"paidTokens"`
	FreeTokensPerBeneficiary map[string]int64 `json:"freeTokensPerBeneficiary"`
	TotalFreeTokens          int64            `json:"totalFreeTokens"`
	TotalTokens              int64            `json:"totalTokens"`
}

// GetBalance handles GET /api/v1/ledger/balance
func (h *LedgerHandler) GetBalance(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "user required")
	}

	summary, err := h.engine.GetUserTokenSummary(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load token balance")
		return NewInternalError(c, "Failed to load balance")
	}

	return c.JSON(http.StatusOK, BalanceResponse{
		PaidTokens:               summary.Balance.PaidTokens,
		FreeTokensPerBeneficiary: summary.Balance.FreeTokensPerBeneficiary,
		TotalFreeTokens:          summary.Balance.TotalFreeTokens,
		TotalTokens:              summary.TotalTokens,
	})
}

// DeductRequest represents the deduct request body
type DeductRequest struct {
	Amount        int64          `json:"amount"`
	BeneficiaryID string         `json:"beneficiaryId"`
	RefID         string         `json:"refId,omitempty"`
	Purpose       string         `json:"purpose,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Deduct handles POST /api/v1/ledger/deduct
func (h *LedgerHandler) Deduct(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "user required")
	}

	var req DeductRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	tx, err := h.engine.DeductTokens(c.Request().Context(), ledger.DeductInput{
		UserID:        userID,
		Amount:        req.Amount,
		BeneficiaryID: req.BeneficiaryID,
		RefID:         req.RefID,
		Purpose:       req.Purpose,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, tx)
}

// TransferRequest represents the tip/transfer request body
type TransferRequest struct {
	BeneficiaryID string         `json:"beneficiaryId"`
	Amount        int64          `json:"amount"`
	RefID         string         `json:"refId,omitempty"`
	Purpose       string         `json:"purpose,omitempty"`
	Note          string         `json:"note,omitempty"`
	IsAnonymous   bool           `json:"isAnonymous,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Transfer handles POST /api/v1/ledger/transfer
func (h *LedgerHandler) Transfer(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "user required")
	}

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	tx, err := h.engine.TransferTokens(c.Request().Context(), ledger.TransferInput{
		SenderID:      userID,
		BeneficiaryID: req.BeneficiaryID,
		Amount:        req.Amount,
		RefID:         req.RefID,
		Purpose:       req.Purpose,
		Note:          req.Note,
		IsAnonymous:   req.IsAnonymous,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, tx)
}

// HoldRequest represents the hold request body
type HoldRequest struct {
	Amount              int64          `json:"amount"`
	BeneficiaryID       string         `json:"beneficiaryId"`
	RefID               string         `json:"refId,omitempty"`
	ExpiresAfterSeconds int64          `json:"expiresAfterSeconds,omitempty"`
	Purpose             string         `json:"purpose,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// Hold handles POST /api/v1/ledger/hold
func (h *LedgerHandler) Hold(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "user required")
	}

	var req HoldRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	tx, err := h.engine.HoldTokens(c.Request().Context(), ledger.HoldInput{
		UserID:              userID,
		Amount:              req.Amount,
		BeneficiaryID:       req.BeneficiaryID,
		RefID:               req.RefID,
		ExpiresAfterSeconds: req.ExpiresAfterSeconds,
		Purpose:             req.Purpose,
		Metadata:            req.Metadata,
	})
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, tx)
}

// HoldActionRequest represents the capture/reverse request body: exactly one
// of transactionId or refId should be set.
type HoldActionRequest struct {
	TransactionID string `json:"transactionId,omitempty"`
	RefID         string `json:"refId,omitempty"`
}

// Capture handles POST /api/v1/ledger/hold/capture
func (h *LedgerHandler) Capture(c echo.Context) error {
	var req HoldActionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.engine.CaptureHeldTokens(c.Request().Context(), ledger.CaptureInput{
		TransactionID: req.TransactionID,
		RefID:         req.RefID,
	})
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// Reverse handles POST /api/v1/ledger/hold/reverse
func (h *LedgerHandler) Reverse(c echo.Context) error {
	var req HoldActionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.engine.ReverseHeldTokens(c.Request().Context(), ledger.ReverseInput{
		TransactionID: req.TransactionID,
		RefID:         req.RefID,
	})
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ExtendRequest represents the extend-expiry request body
type ExtendRequest struct {
	TransactionID   string `json:"transactionId,omitempty"`
	RefID           string `json:"refId,omitempty"`
	ExtendBySeconds int64  `json:"extendBySeconds"`
	MaxTotalSeconds int64  `json:"maxTotalSeconds,omitempty"`
}

// Extend handles POST /api/v1/ledger/hold/extend
func (h *LedgerHandler) Extend(c echo.Context) error {
	var req ExtendRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	tx, err := h.engine.ExtendExpiry(c.Request().Context(), ledger.ExtendInput{
		TransactionID:   req.TransactionID,
		RefID:           req.RefID,
		ExtendBySeconds: req.ExtendBySeconds,
		MaxTotalSeconds: req.MaxTotalSeconds,
	})
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, tx)
}

// History handles GET /api/v1/ledger/history
func (h *LedgerHandler) History(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return NewUnauthorizedError(c, "user required")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return NewValidationError(c, "Invalid limit", []ValidationError{{Field: "limit", Message: "Must be an integer"}})
		}
		limit = parsed
	}

	rows, err := h.engine.GetUserTransactionHistory(c.Request().Context(), userID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load transaction history")
		return NewInternalError(c, "Failed to load history")
	}

	return c.JSON(http.StatusOK, rows)
}

// GetTransaction handles GET /api/v1/ledger/transactions/:id
func (h *LedgerHandler) GetTransaction(c echo.Context) error {
	id := c.Param("id")
	tx, err := h.engine.GetTransactionByID(c.Request().Context(), id)
	if err != nil {
		return h.mapLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

// AdjustRequest represents the admin token adjustment request body
type AdjustRequest struct {
	UserID        string         `json:"userId"`
	BeneficiaryID string         `json:"beneficiaryId,omitempty"`
	Delta         int64          `json:"delta"`
	Reason        string         `json:"reason"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AdjustAdmin handles POST /api/v1/ledger/admin/adjust. Gated by
// middleware.AuthMiddleware.RequireAdmin.
func (h *LedgerHandler) AdjustAdmin(c echo.Context) error {
	adminID := middleware.GetUserID(c)

	var req AdjustRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.UserID == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "userId", Message: "Required"}})
	}
	if req.Reason == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{{Field: "reason", Message: "Required"}})
	}

	tx, err := h.engine.AdjustUserTokensAdmin(c.Request().Context(), ledger.AdminAdjustmentInput{
		UserID:        req.UserID,
		BeneficiaryID: req.BeneficiaryID,
		Delta:         req.Delta,
		Reason:        req.Reason,
		AdminID:       adminID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return h.mapLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, tx)
}

// mapLedgerError translates a ledger.Engine error into the matching RFC 7807
// response. Anything not specifically recognized falls back to 500.
func (h *LedgerHandler) mapLedgerError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingIdentifier),
		errors.Is(err, domain.ErrInvalidHoldTimeout),
		errors.Is(err, domain.ErrSameBeneficiary),
		errors.Is(err, domain.ErrInvalidTransactionPayload),
		errors.Is(err, domain.ErrInvalidTransactionType):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrTransactionNotFound):
		return NewNotFoundError(c, err.Error())
	case errors.Is(err, domain.ErrInsufficientTokens),
		errors.Is(err, domain.ErrInsufficientPaidTokens):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrDuplicateHoldRefID),
		errors.Is(err, domain.ErrAlreadyCaptured),
		errors.Is(err, domain.ErrAlreadyReversed),
		errors.Is(err, domain.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrNoHeldTokens):
		return NewConflictError(c, err.Error())
	default:
		log.Error().Err(err).Msg("Ledger operation failed")
		return NewInternalError(c, "Ledger operation failed")
	}
}
