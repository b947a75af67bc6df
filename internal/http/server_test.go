package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"paydue/internal/auth"
	"paydue/internal/cache"
	"paydue/internal/core"
	"paydue/internal/services"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]auth.User
}

func (s *memUserStore) CreateUser(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return fmt.Errorf("%w: email already registered", core.ErrValidation)
	}
	if s.users == nil {
		s.users = make(map[string]auth.User)
	}
	s.users[u.Email] = u
	return nil
}

func (s *memUserStore) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return auth.User{}, core.ErrNotFound
	}
	return u, nil
}

type memPaymentStore struct {
	mu       sync.Mutex
	payments map[string]core.Payment
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[string]core.Payment)}
}

func (s *memPaymentStore) ListPayments(ctx context.Context, ownerID string) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Payment
	for _, p := range s.payments {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPaymentStore) GetPayment(ctx context.Context, ownerID, id string) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.OwnerID != ownerID {
		return core.Payment{}, core.ErrNotFound
	}
	return p, nil
}

func (s *memPaymentStore) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payments[p.ID] = p
	return p, nil
}

func (s *memPaymentStore) UpdatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.payments[p.ID]
	if !ok || existing.OwnerID != p.OwnerID {
		return core.Payment{}, core.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.payments[p.ID] = p
	return p, nil
}

func (s *memPaymentStore) DeletePayment(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *memPaymentStore) MarkPaid(ctx context.Context, ownerID, id string) (core.Payment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.OwnerID != ownerID {
		return core.Payment{}, 0, core.ErrNotFound
	}
	p.Status = core.StatusPaid
	p.UpdatedAt = time.Now().UTC()
	s.payments[id] = p
	return p, 2, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	local := auth.NewLocal([]byte("test-secret"), time.Hour, &memUserStore{}, auth.NewSessions())
	service := services.NewPaymentService(
		newMemPaymentStore(),
		nil,
		cache.NewLRUCache[[]core.Payment](16, time.Minute),
	)

	srv := NewServer(":0", service, local, local)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, buf.Bytes()
}

func register(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()

	resp, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "correct horse",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register returned %d: %s", resp.StatusCode, body)
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session.Token
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, ts, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s returned %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestPaymentsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodGet, "/api/payments", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list returned %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/payments", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token list returned %d, want 401", resp.StatusCode)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	ts := newTestServer(t)

	token := register(t, ts, "ada@example.com")
	if token == "" {
		t.Fatal("register returned an empty token")
	}

	resp, body := doJSON(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "correct horse",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d: %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password login returned %d, want 401", resp.StatusCode)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "ada@example.com")

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/auth/signout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signout returned %d, want 200", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/payments", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token list returned %d, want 401", resp.StatusCode)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "ada@example.com")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/payments", token, map[string]string{
		"title":    "Electricity",
		"amount":   "84.50",
		"due_date": "2026-09-15",
		"notes":    "autopay off",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d: %s", resp.StatusCode, body)
	}

	var created paymentResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created payment: %v", err)
	}
	if created.AmountCents != 8450 {
		t.Errorf("AmountCents = %d, want 8450", created.AmountCents)
	}
	if created.Status != core.StatusPending {
		t.Errorf("Status = %q, want pending", created.Status)
	}
	if created.DueDate != "2026-09-15" {
		t.Errorf("DueDate = %q, want 2026-09-15", created.DueDate)
	}

	resp, body = doJSON(t, ts, http.MethodPut, "/api/payments/"+created.ID, token, map[string]string{
		"title":    "Electricity bill",
		"amount":   "90.00",
		"due_date": "2026-09-20",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update returned %d: %s", resp.StatusCode, body)
	}

	var updated paymentResponse
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("decode updated payment: %v", err)
	}
	if updated.Title != "Electricity bill" || updated.AmountCents != 9000 {
		t.Errorf("update not applied: %+v", updated)
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/api/payments/"+created.ID+"/paid", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark paid returned %d: %s", resp.StatusCode, body)
	}
	var paid paymentResponse
	if err := json.Unmarshal(body, &paid); err != nil {
		t.Fatalf("decode paid payment: %v", err)
	}
	if paid.Status != core.StatusPaid || paid.Classification != core.ClassPaid {
		t.Errorf("mark paid yielded status %q classification %q", paid.Status, paid.Classification)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/payments/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete returned %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/payments/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete returned %d, want 404", resp.StatusCode)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "ada@example.com")

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing title", map[string]string{"amount": "10.00", "due_date": "2026-09-15"}},
		{"missing amount", map[string]string{"title": "Rent", "due_date": "2026-09-15"}},
		{"bad amount", map[string]string{"title": "Rent", "amount": "ten", "due_date": "2026-09-15"}},
		{"missing due date", map[string]string{"title": "Rent", "amount": "10.00"}},
		{"bad due date", map[string]string{"title": "Rent", "amount": "10.00", "due_date": "next tuesday"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := doJSON(t, ts, http.MethodPost, "/api/payments", token, tc.body)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Errorf("returned %d, want 422", resp.StatusCode)
			}
		})
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	ada := register(t, ts, "ada@example.com")
	bob := register(t, ts, "bob@example.com")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/payments", ada, map[string]string{
		"title": "Rent", "amount": "1200.00", "due_date": "2026-09-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d: %s", resp.StatusCode, body)
	}
	var created paymentResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created payment: %v", err)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/payments/"+created.ID, bob, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-owner delete returned %d, want 404", resp.StatusCode)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/payments", bob, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list returned %d", resp.StatusCode)
	}
	var listed struct {
		Payments []paymentResponse `json:"payments"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Payments) != 0 {
		t.Errorf("bob sees %d payments, want 0", len(listed.Payments))
	}
}

func TestListFilterAndSearch(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "ada@example.com")

	overdue := core.Day(time.Now()).AddDate(0, 0, -3).Format(dueDateLayout)
	farOut := core.Day(time.Now()).AddDate(0, 1, 0).Format(dueDateLayout)

	for _, p := range []map[string]string{
		{"title": "Water bill", "amount": "30.00", "due_date": overdue},
		{"title": "Internet", "amount": "55.00", "due_date": farOut},
	} {
		resp, body := doJSON(t, ts, http.MethodPost, "/api/payments", token, p)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create returned %d: %s", resp.StatusCode, body)
		}
	}

	var listed struct {
		Payments []paymentResponse `json:"payments"`
	}

	resp, body := doJSON(t, ts, http.MethodGet, "/api/payments?status=overdue", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("filtered list returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Payments) != 1 || listed.Payments[0].Title != "Water bill" {
		t.Errorf("overdue filter returned %+v", listed.Payments)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/payments?q=internet", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search list returned %d", resp.StatusCode)
	}
	listed.Payments = nil
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Payments) != 1 || listed.Payments[0].Title != "Internet" {
		t.Errorf("search returned %+v", listed.Payments)
	}
}

func TestDashboardTotals(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "ada@example.com")

	due := core.Day(time.Now()).AddDate(0, 0, 2).Format(dueDateLayout)
	var paidID string
	for i, p := range []map[string]string{
		{"title": "Rent", "amount": "1200.00", "due_date": due},
		{"title": "Gym", "amount": "40.00", "due_date": due},
	} {
		resp, body := doJSON(t, ts, http.MethodPost, "/api/payments", token, p)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create returned %d: %s", resp.StatusCode, body)
		}
		if i == 1 {
			var created paymentResponse
			if err := json.Unmarshal(body, &created); err != nil {
				t.Fatalf("decode created payment: %v", err)
			}
			paidID = created.ID
		}
	}

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/payments/"+paidID+"/paid", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark paid returned %d", resp.StatusCode)
	}

	resp, body := doJSON(t, ts, http.MethodGet, "/api/dashboard", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard returned %d", resp.StatusCode)
	}

	var stats struct {
		Total            int    `json:"total"`
		Pending          int    `json:"pending"`
		Overdue          int    `json:"overdue"`
		TotalAmountCents int64  `json:"total_amount_cents"`
		TotalAmount      string `json:"total_amount"`
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if stats.Total != 2 || stats.Pending != 1 || stats.Overdue != 0 {
		t.Errorf("counters = %+v", stats)
	}
	if stats.TotalAmountCents != 120000 {
		t.Errorf("TotalAmountCents = %d, want 120000 (paid excluded)", stats.TotalAmountCents)
	}
}

func TestHistoryAndCSVExport(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "ada@example.com")

	due := core.Day(time.Now()).AddDate(0, 0, 1).Format(dueDateLayout)
	resp, body := doJSON(t, ts, http.MethodPost, "/api/payments", token, map[string]string{
		"title": "Phone", "amount": "25.00", "due_date": due,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d: %s", resp.StatusCode, body)
	}
	var created paymentResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created payment: %v", err)
	}

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/payments/"+created.ID+"/paid", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark paid returned %d", resp.StatusCode)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/history", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history returned %d", resp.StatusCode)
	}
	var history struct {
		Payments        []paymentResponse `json:"payments"`
		TotalPayments   int               `json:"total_payments"`
		AvailableMonths []string          `json:"available_months"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if history.TotalPayments != 1 || len(history.AvailableMonths) != 1 {
		t.Errorf("history = %+v", history)
	}

	thisMonth := core.MonthOf(time.Now()).String()
	resp, body = doJSON(t, ts, http.MethodGet, "/api/history/export.csv?month="+thisMonth, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csv export returned %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if !strings.Contains(string(body), "Phone") {
		t.Errorf("csv export missing payment row: %s", body)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/history?month=93-13", token, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad month returned %d, want 422", resp.StatusCode)
	}
}

func TestReceiptDownload(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "ada@example.com")

	due := core.Day(time.Now()).AddDate(0, 0, 1).Format(dueDateLayout)
	resp, body := doJSON(t, ts, http.MethodPost, "/api/payments", token, map[string]string{
		"title": "Insurance", "amount": "310.20", "due_date": due,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d: %s", resp.StatusCode, body)
	}
	var created paymentResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created payment: %v", err)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/payments/"+created.ID+"/receipt", token, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("receipt for unpaid payment returned %d, want 422", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/payments/"+created.ID+"/paid", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark paid returned %d", resp.StatusCode)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/payments/"+created.ID+"/receipt", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("receipt returned %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Error("receipt body does not start with a PDF header")
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.URL.RawQuery = "q=../../etc/passwd"

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("traversal probe returned %d, want 400", resp.StatusCode)
	}
}
