package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deuna/payment-system/configs"
	"github.com/deuna/payment-system/internal/audit"
	"github.com/deuna/payment-system/internal/handlers"
	"github.com/deuna/payment-system/internal/ledger"
	"github.com/deuna/payment-system/internal/logger"
	"github.com/deuna/payment-system/internal/routes"
	"github.com/deuna/payment-system/internal/store/memory"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	configs.AppConfig.JWT.SECRET = "test-secret"
	os.Exit(m.Run())
}

func newAPI(t *testing.T) http.Handler {
	t.Helper()

	st := memory.New()
	log := zap.NewNop()
	engine := ledger.NewEngine(st, ledger.DefaultPolicy(), audit.NewRecorder(st, log),
		ledger.SimulatedOperator{}, ledger.DefaultConfig(), log)

	_, err := engine.InitializeBank(context.Background(), "Test Bank", decimal.RequireFromString("100000"))
	require.NoError(t, err)

	return routes.NewRoutes(handlers.New(engine))
}

func doJSON(t *testing.T, api http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func createUser(t *testing.T, api http.Handler, name, email string) string {
	t.Helper()
	rec, body := doJSON(t, api, http.MethodPost, "/api/users/create", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["userId"].(string)
}

func login(t *testing.T, api http.Handler, email string) string {
	t.Helper()
	rec, body := doJSON(t, api, http.MethodPost, "/api/users/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return body["token"].(string)
}

func TestCreateUserEndpoint(t *testing.T) {
	t.Parallel()
	api := newAPI(t)

	rec, body := doJSON(t, api, http.MethodPost, "/api/users/create", "", map[string]string{
		"name": "Alice", "email": "alice@test.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, body["userId"])
	assert.Equal(t, "100", body["balance"])
	assert.Equal(t, "99900", body["bankBalance"])

	// Missing fields.
	rec, _ = doJSON(t, api, http.MethodPost, "/api/users/create", "", map[string]string{
		"name": "Bob",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate email.
	rec, _ = doJSON(t, api, http.MethodPost, "/api/users/create", "", map[string]string{
		"name": "Alice Again", "email": "alice@test.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginAndMe(t *testing.T) {
	t.Parallel()
	api := newAPI(t)
	userID := createUser(t, api, "Alice", "alice@test.com")

	token := login(t, api, "alice@test.com")

	rec, body := doJSON(t, api, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, body["accountId"])
	assert.Equal(t, "user", body["kind"])

	rec, _ = doJSON(t, api, http.MethodPost, "/api/users/login", "", map[string]string{
		"email": "alice@test.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	t.Parallel()
	api := newAPI(t)

	rec, _ := doJSON(t, api, http.MethodPost, "/api/transfer", "", map[string]any{
		"toUserId": "someone", "amount": 10,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, api, http.MethodPost, "/api/transfer", "not-a-jwt", map[string]any{
		"toUserId": "someone", "amount": 10,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransferEndpoint(t *testing.T) {
	t.Parallel()
	api := newAPI(t)
	createUser(t, api, "Alice", "alice@test.com")
	bobID := createUser(t, api, "Bob", "bob@test.com")
	token := login(t, api, "alice@test.com")

	rec, body := doJSON(t, api, http.MethodPost, "/api/transfer", token, map[string]any{
		"toUserId": bobID, "amount": 50, "description": "lunch",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0.5", body["fee"])
	assert.Equal(t, "50.5", body["totalDebited"])
	assert.Equal(t, "49.5", body["newBalance"])

	// More than the remaining balance covers.
	rec, body = doJSON(t, api, http.MethodPost, "/api/transfer", token, map[string]any{
		"toUserId": bobID, "amount": 100,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "49.5", body["currentBalance"])
	assert.Equal(t, "101", body["required"])
	assert.Equal(t, "51.5", body["missing"])
}

func TestRechargeEndpoint(t *testing.T) {
	t.Parallel()
	api := newAPI(t)
	userID := createUser(t, api, "Alice", "alice@test.com")
	token := login(t, api, "alice@test.com")

	rec, body := doJSON(t, api, http.MethodPost, "/api/users/"+userID+"/recharge", token, map[string]any{
		"amount": 250,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "350", body["newBalance"])
	assert.Equal(t, "99650", body["bankBalance"])

	rec, _ = doJSON(t, api, http.MethodPost, "/api/users/"+userID+"/recharge", token, map[string]any{
		"amount": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRechargeOnlyOwnAccount(t *testing.T) {
	t.Parallel()
	api := newAPI(t)
	aliceID := createUser(t, api, "Alice", "alice@test.com")
	createUser(t, api, "Bob", "bob@test.com")
	bobToken := login(t, api, "bob@test.com")

	rec, _ := doJSON(t, api, http.MethodPost, "/api/users/"+aliceID+"/recharge", bobToken, map[string]any{
		"amount": 10,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPaymentFlowEndpoints(t *testing.T) {
	t.Parallel()
	api := newAPI(t)
	createUser(t, api, "Alice", "alice@test.com")
	userToken := login(t, api, "alice@test.com")

	rec, body := doJSON(t, api, http.MethodPost, "/api/merchants/create", "", map[string]string{
		"name": "Shop", "email": "shop@test.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body = doJSON(t, api, http.MethodPost, "/api/merchants/login", "", map[string]string{
		"email": "shop@test.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	merchantToken := body["token"].(string)

	rec, body = doJSON(t, api, http.MethodPost, "/api/orders/create", merchantToken, map[string]any{
		"amount": 60, "description": "groceries",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := body["orderId"].(string)
	code := body["paymentCode"].(string)
	require.Len(t, code, 8)

	rec, body = doJSON(t, api, http.MethodGet, "/api/payments/query/"+code, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Shop", body["merchantName"])
	assert.Equal(t, "60", body["amount"])

	rec, body = doJSON(t, api, http.MethodPost, "/api/payments/process", userToken, map[string]any{
		"paymentCode": code, "paymentMethod": "wallet",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paymentID := body["paymentId"].(string)
	assert.Equal(t, "40", body["newBalance"])
	assert.Equal(t, "completed", body["status"])

	rec, body = doJSON(t, api, http.MethodGet, "/api/orders/"+orderID+"/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, paymentID, body["paymentId"])

	rec, body = doJSON(t, api, http.MethodGet, "/api/payments/"+paymentID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, paymentID, body["paymentId"])
	assert.Equal(t, orderID, body["orderId"])
	assert.Equal(t, "Alice", body["payerName"])
	assert.Equal(t, "60", body["amount"])
	assert.Equal(t, "completed", body["status"])

	// The code is spent.
	rec, _ = doJSON(t, api, http.MethodPost, "/api/payments/process", userToken, map[string]any{
		"paymentCode": code, "paymentMethod": "wallet",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, api, http.MethodGet, "/api/payments/query/"+code, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, api, http.MethodGet, "/api/payments/query/00000000", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelfRechargeEndpoint(t *testing.T) {
	t.Parallel()
	api := newAPI(t)
	createUser(t, api, "Alice", "alice@test.com")
	token := login(t, api, "alice@test.com")

	rec, body := doJSON(t, api, http.MethodPost, "/api/recharge", token, map[string]any{
		"channel": "celular", "carrier": "claro", "destination": "0991234567", "amount": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "90", body["newBalance"])
	assert.Equal(t, "00", body["responseCode"])

	rec, _ = doJSON(t, api, http.MethodPost, "/api/recharge", token, map[string]any{
		"channel": "celular", "amount": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, api, http.MethodPost, "/api/recharge", token, map[string]any{
		"channel": "paypal", "amount": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBankEndpoints(t *testing.T) {
	t.Parallel()
	api := newAPI(t)
	createUser(t, api, "Alice", "alice@test.com")

	rec, body := doJSON(t, api, http.MethodGet, "/api/bank/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Test Bank", body["name"])
	assert.Equal(t, "99900", body["balance"])

	rec, body = doJSON(t, api, http.MethodGet, "/api/bank/transactions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "99900", body["currentBalance"])
	rows := body["transactions"].([]any)
	assert.Len(t, rows, 2) // initial deposit + user creation grant
}

func TestUserTransactionsEndpoint(t *testing.T) {
	t.Parallel()
	api := newAPI(t)
	userID := createUser(t, api, "Alice", "alice@test.com")

	rec, body := doJSON(t, api, http.MethodGet, "/api/users/"+userID+"/transactions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := body["transactions"].([]any)
	require.Len(t, rows, 1) // the welcome grant

	// Rows use the API's camelCase keys, not Go field names.
	row := rows[0].(map[string]any)
	assert.Contains(t, row, "transactionId")
	assert.Contains(t, row, "balanceBefore")
	assert.Contains(t, row, "balanceAfter")
	assert.NotContains(t, row, "ID")
	assert.Equal(t, "recharge", row["kind"])
	assert.Equal(t, "100", row["balanceAfter"])

	rec, _ = doJSON(t, api, http.MethodGet, "/api/users/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
