package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
	"github.com/ariefcatur/go-campus-tokens.git/internal/tokens"
)

type fakeLedger struct {
	placement *tokens.Placement
	err       error
	got       tokens.PlaceOrderRequest
}

func (f *fakeLedger) PlaceOrder(_ context.Context, req tokens.PlaceOrderRequest) (*tokens.Placement, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.placement, nil
}

type fakeTokens struct {
	byID map[int64]*tokens.Token
}

func (f *fakeTokens) ListByUser(_ context.Context, username string) ([]tokens.Token, error) {
	var out []tokens.Token
	for _, t := range f.byID {
		if t.Username == username {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTokens) ListByStall(_ context.Context, stallID string) ([]tokens.Token, error) {
	var out []tokens.Token
	for _, t := range f.byID {
		if t.StallID == stallID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTokens) SetStatus(_ context.Context, tokenID int64, stallID string, status tokens.Status) (*tokens.Token, error) {
	t, ok := f.byID[tokenID]
	if !ok || t.StallID != stallID {
		return nil, tokens.ErrTokenNotFound
	}
	t.Status = status
	cp := *t
	return &cp, nil
}

type fakeWallet struct{ balance int64 }

func (f *fakeWallet) Balance(context.Context, string) (int64, error) { return f.balance, nil }

var testSessions = auth.NewSessions("test-secret")

func userCookie(t *testing.T, username string) *http.Cookie {
	t.Helper()
	tok, err := testSessions.Issue(auth.Session{Role: auth.RoleUser, Username: username, UID: "UID_0001"})
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return testSessions.Cookie(tok)
}

func stallCookie(t *testing.T, stallID string) *http.Cookie {
	t.Helper()
	tok, err := testSessions.Issue(auth.Session{Role: auth.RoleStall, StallID: stallID, StallName: "Test Stall"})
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return testSessions.Cookie(tok)
}

func newOrderServer(l *fakeLedger, ft *fakeTokens) *httptest.Server {
	r := NewRouter()
	guard := &Guard{Sessions: testSessions}
	h := &OrdersHandler{Ledger: l, Tokens: ft, Wallet: &fakeWallet{balance: 5000}, Guard: guard}
	h.Register(r)
	sh := &StallHandler{Tokens: ft, Guard: guard}
	sh.Register(r)
	return httptest.NewServer(r)
}

func TestPlaceOrderRequiresSession(t *testing.T) {
	srv := newOrderServer(&fakeLedger{}, &fakeTokens{byID: map[int64]*tokens.Token{}})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/tokens", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("want 401 without a session, got %d", resp.StatusCode)
	}
}

func TestPlaceOrderReturnsTokenAndBalance(t *testing.T) {
	l := &fakeLedger{placement: &tokens.Placement{TokenID: 7, TokenNo: 3, NewBalanceCents: 1500}}
	srv := newOrderServer(l, &fakeTokens{byID: map[int64]*tokens.Token{}})
	defer srv.Close()

	body := `{"stall_id":"S101","stall_name":"Tasty Bites","items":[{"name":"Burger","qty":1,"price_cents":8000}],"total_cents":8000,"pin":"1234"}`
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/tokens", strings.NewReader(body))
	req.AddCookie(userCookie(t, "alice"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var got placeOrderResp
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.TokenNo != 3 || got.NewBalanceCents != 1500 {
		t.Errorf("unexpected response: %+v", got)
	}
	if l.got.Username != "alice" {
		t.Errorf("username must come from the session, got %q", l.got.Username)
	}
}

func TestPlaceOrderErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"insufficient", &tokens.InsufficientFundsError{BalanceCents: 0}, http.StatusBadRequest},
		{"wrong pin", tokens.ErrWrongPIN, http.StatusUnauthorized},
		{"blocked", tokens.ErrAccountBlocked, http.StatusForbidden},
		{"invalid", tokens.ErrInvalidRequest, http.StatusBadRequest},
		{"stall missing", tokens.ErrStallNotFound, http.StatusNotFound},
		{"infra", tokens.ErrOrderFailed, http.StatusInternalServerError},
	}
	body := `{"stall_id":"S101","stall_name":"X","items":[{"name":"Burger","qty":1,"price_cents":8000}],"total_cents":8000,"pin":"1234"}`
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newOrderServer(&fakeLedger{err: tc.err}, &fakeTokens{byID: map[int64]*tokens.Token{}})
			defer srv.Close()

			req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/tokens", strings.NewReader(body))
			req.AddCookie(userCookie(t, "alice"))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.code {
				t.Errorf("want %d, got %d", tc.code, resp.StatusCode)
			}
		})
	}
}

func TestInsufficientFundsCarriesBalance(t *testing.T) {
	srv := newOrderServer(
		&fakeLedger{err: &tokens.InsufficientFundsError{BalanceCents: 250}},
		&fakeTokens{byID: map[int64]*tokens.Token{}},
	)
	defer srv.Close()

	body := `{"stall_id":"S101","stall_name":"X","items":[{"name":"Burger","qty":1,"price_cents":8000}],"total_cents":8000,"pin":"1234"}`
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/tokens", strings.NewReader(body))
	req.AddCookie(userCookie(t, "alice"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got struct {
		Error        string `json:"error"`
		BalanceCents int64  `json:"balance_cents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.BalanceCents != 250 {
		t.Errorf("response should carry the live balance, got %+v", got)
	}
}

func patchStatus(t *testing.T, srv *httptest.Server, c *http.Cookie, body string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/tokens/stall", strings.NewReader(body))
	req.AddCookie(c)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestSetStatusIdempotent(t *testing.T) {
	ft := &fakeTokens{byID: map[int64]*tokens.Token{
		1: {ID: 1, TokenNo: 1, StallID: "S101", Username: "alice", Status: tokens.StatusPending},
	}}
	srv := newOrderServer(&fakeLedger{}, ft)
	defer srv.Close()

	c := stallCookie(t, "S101")
	for i := 0; i < 2; i++ {
		resp := patchStatus(t, srv, c, `{"token_id":1,"status":"Served"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("attempt %d: want 200, got %d", i+1, resp.StatusCode)
		}
		var got tokens.Token
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if got.Status != tokens.StatusServed {
			t.Errorf("attempt %d: status = %s", i+1, got.Status)
		}
	}
}

func TestSetStatusForeignStallIsNotFound(t *testing.T) {
	ft := &fakeTokens{byID: map[int64]*tokens.Token{
		1: {ID: 1, TokenNo: 1, StallID: "S102", Username: "alice", Status: tokens.StatusPending},
	}}
	srv := newOrderServer(&fakeLedger{}, ft)
	defer srv.Close()

	resp := patchStatus(t, srv, stallCookie(t, "S101"), `{"token_id":1,"status":"Served"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-stall mutation should be 404, got %d", resp.StatusCode)
	}
	if ft.byID[1].Status != tokens.StatusPending {
		t.Error("foreign token must stay untouched")
	}
}

func TestSetStatusRejectsBogusStatus(t *testing.T) {
	srv := newOrderServer(&fakeLedger{}, &fakeTokens{byID: map[int64]*tokens.Token{}})
	defer srv.Close()

	resp := patchStatus(t, srv, stallCookie(t, "S101"), `{"token_id":1,"status":"Eaten"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("want 400 for unknown status, got %d", resp.StatusCode)
	}
}

func TestUserSessionCannotReachStallRoutes(t *testing.T) {
	srv := newOrderServer(&fakeLedger{}, &fakeTokens{byID: map[int64]*tokens.Token{}})
	defer srv.Close()

	resp := patchStatus(t, srv, userCookie(t, "alice"), `{"token_id":1,"status":"Served"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("user session on a stall route should be 401, got %d", resp.StatusCode)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	srv := newOrderServer(&fakeLedger{}, &fakeTokens{byID: map[int64]*tokens.Token{}})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/users/balance", nil)
	req.AddCookie(userCookie(t, "alice"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["balance_cents"] != 5000 {
		t.Errorf("balance = %d, want 5000", got["balance_cents"])
	}
}
