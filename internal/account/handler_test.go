package account

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/logging"
)

func setupHandlerApp(t *testing.T) (*fiber.App, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	svc := NewService(store)
	engine := ledger.NewEngine(store, nil, logging.Discard())
	h := NewHandler(svc, engine)

	app := fiber.New()
	app.Post("/wallets", h.Create)
	app.Get("/wallets/:name", h.Get)
	app.Get("/wallets/:name/balance", h.Balance)
	app.Post("/wallets/:name/deposit", h.Deposit)
	app.Post("/wallets/:name/transfer", h.Transfer)
	app.Get("/wallets/:name/history", h.History)
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	_ = json.Unmarshal(payload, &decoded)
	return resp.StatusCode, decoded
}

func createWallet(t *testing.T, app *fiber.App, name string) {
	t.Helper()
	status, _ := doJSON(t, app, fiber.MethodPost, "/wallets",
		`{"name":"`+name+`","holder_id":"`+uuid.NewString()+`"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create wallet %s: status %d", name, status)
	}
}

func TestHandlerDepositAndBalance(t *testing.T) {
	app, _ := setupHandlerApp(t)
	createWallet(t, app, "alice")

	status, body := doJSON(t, app, fiber.MethodPost, "/wallets/alice/deposit", `{"amount":"150.25"}`)
	if status != fiber.StatusOK {
		t.Fatalf("deposit status %d", status)
	}
	if body["transaction_status"] != "success" || body["new_balance"] != "150.25" {
		t.Fatalf("unexpected deposit response: %v", body)
	}

	status, body = doJSON(t, app, fiber.MethodGet, "/wallets/alice/balance", "")
	if status != fiber.StatusOK {
		t.Fatalf("balance status %d", status)
	}
	if body["balance"] != "150.25" {
		t.Fatalf("unexpected balance response: %v", body)
	}
}

func TestHandlerDepositValidation(t *testing.T) {
	app, store := setupHandlerApp(t)
	createWallet(t, app, "alice")

	for _, amount := range []string{"0", "-5", "1.005", "abc"} {
		status, _ := doJSON(t, app, fiber.MethodPost, "/wallets/alice/deposit", `{"amount":"`+amount+`"}`)
		if status != fiber.StatusBadRequest {
			t.Fatalf("deposit %q: expected 400, got %d", amount, status)
		}
	}

	acct, err := store.AccountByName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !acct.Balance.IsZero() {
		t.Fatalf("rejected deposits changed balance: %s", acct.Balance)
	}
}

func TestHandlerTransferErrorMapping(t *testing.T) {
	app, _ := setupHandlerApp(t)
	createWallet(t, app, "alice")
	createWallet(t, app, "bob")

	if status, _ := doJSON(t, app, fiber.MethodPost, "/wallets/alice/deposit", `{"amount":"100"}`); status != fiber.StatusOK {
		t.Fatalf("seed deposit failed: %d", status)
	}

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"happy path", `{"recipient":"bob","amount":"10"}`, fiber.StatusOK},
		{"insufficient funds", `{"recipient":"bob","amount":"5000"}`, fiber.StatusBadRequest},
		{"self transfer", `{"recipient":"alice","amount":"10"}`, fiber.StatusBadRequest},
		{"missing recipient", `{"recipient":"ghost","amount":"10"}`, fiber.StatusNotFound},
		{"zero amount", `{"recipient":"bob","amount":"0"}`, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		status, _ := doJSON(t, app, fiber.MethodPost, "/wallets/alice/transfer", tc.body)
		if status != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, status)
		}
	}

	if status, _ := doJSON(t, app, fiber.MethodPost, "/wallets/ghost/transfer", `{"recipient":"bob","amount":"10"}`); status != fiber.StatusNotFound {
		t.Fatalf("unknown sender: expected 404, got %d", status)
	}
}

// faultyLedgerStore fails every account lookup with a transient storage
// error while delegating everything else.
type faultyLedgerStore struct {
	ledger.Store
}

func (s *faultyLedgerStore) AccountByName(context.Context, string) (ledger.Account, error) {
	return ledger.Account{}, fmt.Errorf("%w: read account: connection reset", ledger.ErrStorage)
}

func TestHandlerStorageFailureMapsToBadGateway(t *testing.T) {
	store := &faultyLedgerStore{Store: ledger.NewMemoryStore()}
	svc := NewService(store)
	engine := ledger.NewEngine(store, nil, logging.Discard())
	h := NewHandler(svc, engine)

	app := fiber.New()
	app.Get("/wallets/:name/balance", h.Balance)
	app.Post("/wallets/:name/deposit", h.Deposit)

	if status, _ := doJSON(t, app, fiber.MethodGet, "/wallets/alice/balance", ""); status != fiber.StatusBadGateway {
		t.Fatalf("balance: expected 502, got %d", status)
	}
	if status, _ := doJSON(t, app, fiber.MethodPost, "/wallets/alice/deposit", `{"amount":"10"}`); status != fiber.StatusBadGateway {
		t.Fatalf("deposit: expected 502, got %d", status)
	}
}

func TestHandlerHistory(t *testing.T) {
	app, _ := setupHandlerApp(t)
	createWallet(t, app, "alice")
	createWallet(t, app, "bob")

	doJSON(t, app, fiber.MethodPost, "/wallets/alice/deposit", `{"amount":"100"}`)
	doJSON(t, app, fiber.MethodPost, "/wallets/alice/transfer", `{"recipient":"bob","amount":"30"}`)

	status, body := doJSON(t, app, fiber.MethodGet, "/wallets/alice/history?kind=DEBIT", "")
	if status != fiber.StatusOK {
		t.Fatalf("history status %d", status)
	}
	if body["count"] != float64(1) {
		t.Fatalf("expected 1 debit, got %v", body["count"])
	}

	if status, _ := doJSON(t, app, fiber.MethodGet, "/wallets/alice/history?kind=BOGUS", ""); status != fiber.StatusBadRequest {
		t.Fatalf("bad kind: expected 400, got %d", status)
	}
	if status, _ := doJSON(t, app, fiber.MethodGet, "/wallets/ghost/history", ""); status != fiber.StatusNotFound {
		t.Fatalf("unknown wallet: expected 404, got %d", status)
	}
}
