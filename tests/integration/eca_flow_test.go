package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ecaapp "github.com/erp/eca/internal/application/eca"
	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/infrastructure/audit"
	"github.com/erp/eca/internal/infrastructure/persistence"
	"github.com/erp/eca/internal/interfaces/http/handler"
	"github.com/erp/eca/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// engineSetup serves the webhook endpoint over a migrated database
type engineSetup struct {
	DB     *TestDB
	Repos  *persistence.Repositories
	Engine *gin.Engine
	Org    eca.Tenant
}

func newEngineSetup(t *testing.T) *engineSetup {
	t.Helper()

	testDB := NewTestDB(t)
	repos := persistence.NewRepositories(testDB.DB)
	log := zap.NewNop()

	org := eca.Tenant{ID: uuid.New(), Name: "Acme", Status: eca.TenantStatusActive}
	require.NoError(t, repos.Tenants.CreateOrganization(context.Background(), &org))

	processor := ecaapp.NewProcessor(ecaapp.Dependencies{
		Tenants:       repos.Tenants,
		Entities:      repos.Entities,
		Relationships: repos.Relationships,
		Transactions:  repos.Transactions,
		Ledger:        repos.Ledger,
		Audit:         audit.NewMultiSink(repos.Audit),
		Logger:        log,
	}, ecaapp.DefaultOptions())

	engine, err := router.NewEngine(router.Config{ServiceName: "eca-test", Mode: gin.TestMode, MaxBodySize: 1 << 20, Logger: log})
	require.NoError(t, err)
	router.NewRouter(engine).
		RegisterEngine(handler.NewSystemHandler("eca-test", "test", map[string]handler.HealthCheck{
			"database": func(ctx context.Context) error { return testDB.SqlDB.PingContext(ctx) },
		}, time.Second)).
		Register(handler.NewWebhookHandler(processor, 1<<20, log)).
		Setup()

	return &engineSetup{DB: testDB, Repos: repos, Engine: engine, Org: org}
}

func (s *engineSetup) post(t *testing.T, action string, org uuid.UUID, attrs map[string]any) (int, ecaapp.ECAWebhookResponse) {
	t.Helper()
	code, resp, err := s.send(action, org, attrs)
	require.NoError(t, err)
	return code, resp
}

// send is safe to call from goroutines other than the test's
func (s *engineSetup) send(action string, org uuid.UUID, attrs map[string]any) (int, ecaapp.ECAWebhookResponse, error) {
	var resp ecaapp.ECAWebhookResponse
	body, err := json.Marshal(map[string]any{
		"action":          action,
		"organization_id": org.String(),
		"attributes":      attrs,
	})
	if err != nil {
		return 0, resp, err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/eca", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		return w.Code, resp, fmt.Errorf("decode %q: %w", w.Body.String(), err)
	}
	return w.Code, resp, nil
}

func line(productID string, qty any) map[string]any {
	return map[string]any{"product_id": productID, "quantity": qty}
}

func TestECAFlow_PurchaseLifecycle(t *testing.T) {
	s := newEngineSetup(t)
	attrs := func(status string) map[string]any {
		return map[string]any{
			"external_id": "PO-100",
			"status":      status,
			"supplier_id": "SUP-1",
			"location_id": "WH-1",
			"items":       []any{line("P-1", "5"), line("P-2", "1.5")},
		}
	}

	code, created := s.post(t, "purchase", s.Org.ID, attrs("draft"))
	require.Equal(t, http.StatusOK, code, "%+v", created.Error)
	require.True(t, created.Success)
	require.NotNil(t, created.TransactionID)
	assert.Len(t, created.EntityIDs, 4)
	assert.Equal(t, int64(4), s.DB.Count("eca_entities", "organization_id = ?", s.Org.ID))
	assert.Equal(t, int64(1), s.DB.Count("eca_transactions", "organization_id = ?", s.Org.ID))

	t.Run("replay is idempotent", func(t *testing.T) {
		code, replay := s.post(t, "purchase", s.Org.ID, attrs("draft"))
		require.Equal(t, http.StatusOK, code)
		assert.True(t, replay.Metadata.Replayed)
		assert.Equal(t, *created.TransactionID, *replay.TransactionID)
		assert.Equal(t, int64(4), s.DB.Count("eca_entities", "organization_id = ?", s.Org.ID))
	})

	t.Run("status progresses along the lifecycle", func(t *testing.T) {
		code, confirmed := s.post(t, "purchase", s.Org.ID, attrs("confirmed"))
		require.Equal(t, http.StatusOK, code, "%+v", confirmed.Error)
		require.NotNil(t, confirmed.StateTransition)
		assert.Equal(t, eca.StateConfirmed, confirmed.StateTransition.To)

		tx, err := s.Repos.Transactions.FindTransactionByID(context.Background(), s.Org.ID, *created.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, eca.StateConfirmed, tx.Status)
	})

	t.Run("illegal transition is rejected with 409", func(t *testing.T) {
		code, resp := s.post(t, "purchase", s.Org.ID, attrs("draft"))
		assert.Equal(t, http.StatusConflict, code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_STATE_TRANSITION", resp.Error.Code)
	})
}

func TestECAFlow_NewTransactionCannotSkipInitialState(t *testing.T) {
	s := newEngineSetup(t)

	code, resp := s.post(t, "purchase", s.Org.ID, map[string]any{
		"external_id": "PO-X",
		"status":      "returned",
		"supplier_id": "SUP-1",
		"location_id": "WH-1",
		"items":       []any{line("P-1", 1)},
	})

	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_STATE_TRANSITION", resp.Error.Code)
	assert.Equal(t, int64(0), s.DB.Count("eca_transactions", "organization_id = ?", s.Org.ID))
}

func TestECAFlow_TenantIsolation(t *testing.T) {
	s := newEngineSetup(t)
	attrs := map[string]any{
		"external_id": "SO-1",
		"location_id": "STORE-1",
		"items":       []any{line("P-1", 1)},
	}

	code, resp := s.post(t, "sale", uuid.New(), attrs)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "TENANT_NOT_FOUND", resp.Error.Code)

	other := eca.Tenant{ID: uuid.New(), Name: "Globex", Status: eca.TenantStatusActive}
	require.NoError(t, s.Repos.Tenants.CreateOrganization(context.Background(), &other))

	code, a := s.post(t, "sale", s.Org.ID, attrs)
	require.Equal(t, http.StatusOK, code, "%+v", a.Error)
	code, b := s.post(t, "sale", other.ID, attrs)
	require.Equal(t, http.StatusOK, code, "%+v", b.Error)

	assert.NotEqual(t, *a.TransactionID, *b.TransactionID, "same external id in two tenants must not collide")
	leaked, err := s.Repos.Transactions.FindTransactionByID(context.Background(), other.ID, *a.TransactionID)
	require.NoError(t, err)
	assert.Nil(t, leaked)
}

func TestECAFlow_ReturnCompensatesSale(t *testing.T) {
	s := newEngineSetup(t)

	var sale ecaapp.ECAWebhookResponse
	for _, status := range []string{"pending", "confirmed", "shipped", "delivered"} {
		var code int
		code, sale = s.post(t, "sale", s.Org.ID, map[string]any{
			"external_id": "SO-9",
			"status":      status,
			"location_id": "STORE-1",
			"items":       []any{line("P-1", 2)},
		})
		require.Equal(t, http.StatusOK, code, "%s: %+v", status, sale.Error)
	}

	code, ret := s.post(t, "return", s.Org.ID, map[string]any{
		"external_id":          "RMA-1",
		"location_id":          "STORE-1",
		"original_type":        "sale",
		"original_external_id": "SO-9",
		"items":                []any{line("P-1", 1)},
	})
	require.Equal(t, http.StatusOK, code, "%+v", ret.Error)
	require.NotNil(t, ret.Attributes.Compensated)

	original, err := s.Repos.Transactions.FindTransactionByID(context.Background(), s.Org.ID, *sale.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, eca.StateReturned, original.Status)
}

func TestECAFlow_PartialFailureIsIsolated(t *testing.T) {
	s := newEngineSetup(t)

	code, resp := s.post(t, "inventory_adjustment", s.Org.ID, map[string]any{
		"external_id": "ADJ-1",
		"location_id": "WH-1",
		"event_type":  "cycle_count",
		"items":       []any{line("P-1", 3), map[string]any{"quantity": 1}, line("P-3", -2)},
	})
	require.Equal(t, http.StatusOK, code, "%+v", resp.Error)
	assert.Equal(t, 3, resp.Attributes.Summary.RecordsProcessed)
	assert.Equal(t, 2, resp.Attributes.Summary.RecordsSuccessful)
	assert.Equal(t, 1, resp.Attributes.Summary.RecordsFailed)
	assert.Equal(t, eca.StateProcessed, resp.StateTransition.To)
}

func TestECAFlow_AuditTrail(t *testing.T) {
	s := newEngineSetup(t)

	code, resp := s.post(t, "transfer", s.Org.ID, map[string]any{
		"external_id":      "TR-1",
		"from_location_id": "WH-1",
		"to_location_id":   "WH-2",
		"items":            []any{line("P-1", 4)},
	})
	require.Equal(t, http.StatusOK, code, "%+v", resp.Error)

	eventUUID, err := uuid.Parse(resp.Metadata.EventUUID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		records, err := s.Repos.Audit.FindByEventUUID(context.Background(), eventUUID)
		return err == nil && len(records) == 1 && records[0].Success
	}, 5*time.Second, 50*time.Millisecond)

	code, _ = s.post(t, "transfer", s.Org.ID, map[string]any{"from_location_id": "WH-1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Eventually(t, func() bool {
		return s.DB.Count("eca_audit_log", "success = ? AND error_code = ?", false, "VALIDATION_ERROR") == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestECAFlow_ConcurrentDuplicatesConverge(t *testing.T) {
	s := newEngineSetup(t)
	attrs := map[string]any{
		"external_id": "PO-C",
		"supplier_id": "SUP-1",
		"location_id": "WH-1",
		"items":       []any{line("P-1", 1), line("P-2", 1)},
	}

	const n = 6
	var wg sync.WaitGroup
	codes := make([]int, n)
	results := make([]ecaapp.ECAWebhookResponse, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i], results[i], errs[i] = s.send("purchase", s.Org.ID, attrs)
		}(i)
	}
	wg.Wait()

	ids := map[uuid.UUID]struct{}{}
	for i, r := range results {
		require.NoError(t, errs[i])
		require.Equal(t, http.StatusOK, codes[i], fmt.Sprintf("call %d: %+v", i, r.Error))
		ids[*r.TransactionID] = struct{}{}
	}
	assert.Len(t, ids, 1)
	assert.Equal(t, int64(1), s.DB.Count("eca_transactions", "external_id = ?", "PO-C"))
	assert.Equal(t, int64(4), s.DB.Count("eca_entities", "organization_id = ?", s.Org.ID))
}

func TestECAFlow_Readiness(t *testing.T) {
	s := newEngineSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}
