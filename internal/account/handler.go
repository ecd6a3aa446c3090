package account

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

// Handler exposes wallet HTTP endpoints: account lifecycle plus the deposit,
// transfer, and history actions on a named wallet.
type Handler struct {
	service *Service
	engine  *ledger.Engine
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service, engine *ledger.Engine) *Handler {
	return &Handler{service: service, engine: engine}
}

type createRequest struct {
	Name     string `json:"name"`
	HolderID string `json:"holder_id"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	HolderID  string    `json:"holder_id"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type movementResponse struct {
	ID            string    `json:"id"`
	SenderID      string    `json:"sender_id,omitempty"`
	RecipientID   string    `json:"recipient_id"`
	Amount        string    `json:"amount"`
	Kind          string    `json:"kind"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	Timestamp     time.Time `json:"timestamp"`
}

// Create opens a wallet for the given holder.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Create(c.UserContext(), CreateInput{Name: req.Name, HolderID: req.HolderID})
	if err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			return fiber.NewError(http.StatusConflict, "wallet name already taken")
		}
		if errors.Is(err, ledger.ErrStorage) {
			return ledgerError(err)
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toAccountResponse(acct))
}

// Get returns wallet metadata by name.
func (h *Handler) Get(c *fiber.Ctx) error {
	acct, err := h.service.Get(c.UserContext(), c.Params("name"))
	if err != nil {
		return ledgerError(err)
	}
	return c.Status(http.StatusOK).JSON(toAccountResponse(acct))
}

// List returns the holder's wallets.
func (h *Handler) List(c *fiber.Ctx) error {
	holderID := c.Query("holder_id")
	if holderID == "" {
		return fiber.NewError(http.StatusBadRequest, "holder_id is required")
	}
	accounts, err := h.service.ListByHolder(c.UserContext(), holderID)
	if err != nil {
		return ledgerError(err)
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, toAccountResponse(acct))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Balance returns the wallet's committed balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	name := c.Params("name")
	balance, err := h.service.Balance(c.UserContext(), name)
	if err != nil {
		return ledgerError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet":    name,
		"balance":   balance.StringFixed(2),
		"timestamp": time.Now().UTC(),
	})
}

// Deposit credits the wallet with the posted amount.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.engine.Deposit(c.UserContext(), c.Params("name"), amount)
	if err != nil {
		return ledgerError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_status": "success",
		"new_balance":        receipt.Balance.StringFixed(2),
	})
}

// Transfer moves funds from this wallet to the named recipient.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.engine.Transfer(c.UserContext(), c.Params("name"), req.Recipient, amount)
	if err != nil {
		return ledgerError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_status": "success",
		"new_balance":        receipt.SenderBalance.StringFixed(2),
	})
}

// History returns the wallet's paginated movement history.
func (h *Handler) History(c *fiber.Ctx) error {
	filter, err := parseHistoryFilter(c)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	movements, err := h.service.History(c.UserContext(), c.Params("name"), filter)
	if err != nil {
		return ledgerError(err)
	}

	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, movementResponse{
			ID:            m.ID,
			SenderID:      m.SenderID,
			RecipientID:   m.RecipientID,
			Amount:        m.Amount.StringFixed(2),
			Kind:          string(m.Kind),
			BalanceBefore: m.BalanceBefore.StringFixed(2),
			BalanceAfter:  m.BalanceAfter.StringFixed(2),
			Timestamp:     m.Timestamp,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"count":   len(out),
		"results": out,
	})
}

// parseAmount validates the wire amount before it reaches the engine: it
// must parse, be positive, and carry at most two decimal places. The engine
// never rescales.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("amount must be a decimal number")
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, ledger.ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, errors.New("amount precision is limited to 2 decimal places")
	}
	return amount, nil
}

func parseHistoryFilter(c *fiber.Ctx) (ledger.MovementFilter, error) {
	var filter ledger.MovementFilter

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("from must be RFC3339")
		}
		filter.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("to must be RFC3339")
		}
		filter.To = t
	}
	switch kind := c.Query("kind"); kind {
	case "":
	case string(ledger.KindCredit):
		filter.Kind = ledger.KindCredit
	case string(ledger.KindDebit):
		filter.Kind = ledger.KindDebit
	default:
		return filter, errors.New("kind must be CREDIT or DEBIT")
	}
	switch orderBy := c.Query("order_by"); orderBy {
	case "", "timestamp":
	case "amount":
		filter.OrderBy = "amount"
	default:
		return filter, errors.New("order_by must be timestamp or amount")
	}
	filter.Desc = c.Query("order") != "asc"

	var err error
	if filter.Limit, err = queryInt(c, "limit", 50); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func toAccountResponse(acct ledger.Account) accountResponse {
	return accountResponse{
		ID:        acct.ID,
		Name:      acct.Name,
		HolderID:  acct.HolderID,
		Balance:   acct.Balance.StringFixed(2),
		CreatedAt: acct.CreatedAt,
	}
}

// ledgerError maps the engine's error taxonomy onto HTTP statuses:
// validation and business-rule failures are client errors, missing accounts
// are 404s, and storage failures surface as a retryable upstream error.
func ledgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrRecipientIsSender),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrRecipientNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrStorage):
		return fiber.NewError(http.StatusBadGateway, "storage temporarily unavailable")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
