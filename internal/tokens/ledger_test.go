package tokens

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
)

// memStore emulates the row-locking contract with one big lock per
// transaction: fn either commits all staged writes or none of them.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*memUser // keyed by lower(username)
	stalls map[string]bool
	toks   []Token
	nextID int64
}

type memUser struct {
	username string
	balance  int64
	pinHash  string
	blocked  bool
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*memUser{}, stalls: map[string]bool{}}
}

func (m *memStore) addUser(username string, balance int64, pinHash string, blocked bool) {
	m.users[lower(username)] = &memUser{username: username, balance: balance, pinHash: pinHash, blocked: blocked}
}

func (m *memStore) addStall(stallID string) { m.stalls[stallID] = true }

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func (m *memStore) FindUserForAuth(_ context.Context, username string) (*AuthInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[lower(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &AuthInfo{Username: u.username, PinHash: u.pinHash, Blocked: u.blocked}, nil
}

func (m *memStore) InTx(_ context.Context, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{s: m, debits: map[string]int64{}}
	if err := fn(tx); err != nil {
		return err
	}
	for name, amt := range tx.debits {
		m.users[lower(name)].balance -= amt
	}
	m.toks = append(m.toks, tx.inserts...)
	return nil
}

type memTx struct {
	s       *memStore
	debits  map[string]int64
	inserts []Token
}

func (t *memTx) LockBalance(_ context.Context, username string) (int64, error) {
	u, ok := t.s.users[lower(username)]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.balance - t.debits[username], nil
}

func (t *memTx) Debit(_ context.Context, username string, amountCents int64) error {
	if _, ok := t.s.users[lower(username)]; !ok {
		return ErrUserNotFound
	}
	t.debits[username] += amountCents
	return nil
}

func (t *memTx) NextTokenNo(_ context.Context, stallID string) (int, error) {
	if !t.s.stalls[stallID] {
		return 0, ErrStallNotFound
	}
	max := 0
	for _, tok := range t.s.toks {
		if tok.StallID == stallID && tok.TokenNo > max {
			max = tok.TokenNo
		}
	}
	for _, tok := range t.inserts {
		if tok.StallID == stallID && tok.TokenNo > max {
			max = tok.TokenNo
		}
	}
	return max + 1, nil
}

func (t *memTx) InsertToken(_ context.Context, tok *Token) (int64, error) {
	t.s.nextID++
	tok.ID = t.s.nextID
	t.inserts = append(t.inserts, *tok)
	return tok.ID, nil
}

func (m *memStore) balanceOf(username string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[lower(username)].balance
}

func (m *memStore) tokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toks)
}

// pinHash is shared across tests; bcrypt is slow enough that hashing
// once matters for test runtime.
var pinHash = func() string {
	h, err := auth.HashPin("1234")
	if err != nil {
		panic(err)
	}
	return h
}()

func cart() []LineItem {
	return []LineItem{
		{Name: "Burger", Qty: 1, PriceCents: 8000},
		{Name: "Cold Coffee", Qty: 2, PriceCents: 1000},
	}
}

func placeReq(username string, totalCents int64, items []LineItem) PlaceOrderRequest {
	return PlaceOrderRequest{
		Username: username, StallID: "S101", StallName: "Tasty Bites",
		Items: items, TotalCents: totalCents, PIN: "1234",
	}
}

func TestPlaceOrderDebitsAndAssignsFirstToken(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", 10000, pinHash, false)
	st.addStall("S101")
	l := NewLedger(st, 4)

	pl, err := l.PlaceOrder(context.Background(), placeReq("alice", 10000, cart()))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if pl.TokenNo != 1 {
		t.Errorf("first token at a stall should be 1, got %d", pl.TokenNo)
	}
	if pl.NewBalanceCents != 0 {
		t.Errorf("balance after exact-total order should be 0, got %d", pl.NewBalanceCents)
	}
	if st.balanceOf("alice") != 0 {
		t.Errorf("stored balance should be 0, got %d", st.balanceOf("alice"))
	}
}

func TestPlaceOrderRetryAfterDrainFailsWithBalance(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", 10000, pinHash, false)
	st.addStall("S101")
	l := NewLedger(st, 4)

	if _, err := l.PlaceOrder(context.Background(), placeReq("alice", 10000, cart())); err != nil {
		t.Fatalf("first place: %v", err)
	}

	_, err := l.PlaceOrder(context.Background(), placeReq("alice", 10000, cart()))
	var insuf *InsufficientFundsError
	if !errors.As(err, &insuf) {
		t.Fatalf("want InsufficientFundsError, got %v", err)
	}
	if insuf.BalanceCents != 0 {
		t.Errorf("error should carry live balance 0, got %d", insuf.BalanceCents)
	}
	if st.tokenCount() != 1 {
		t.Errorf("failed retry must not create a token, have %d", st.tokenCount())
	}
}

func TestPlaceOrderRejectsTamperedTotal(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", 10000, pinHash, false)
	st.addStall("S101")
	l := NewLedger(st, 4)

	_, err := l.PlaceOrder(context.Background(), placeReq("alice", 1, cart()))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("mismatched total should be ErrInvalidRequest, got %v", err)
	}
	if st.balanceOf("alice") != 10000 {
		t.Error("rejected order must not touch the balance")
	}
}

func TestPlaceOrderRejectsBadCarts(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", 10000, pinHash, false)
	st.addStall("S101")
	l := NewLedger(st, 4)

	cases := []PlaceOrderRequest{
		placeReq("alice", 0, nil),
		placeReq("alice", 8000, []LineItem{{Name: "Burger", Qty: 0, PriceCents: 8000}}),
		placeReq("alice", 8000, []LineItem{{Name: "Burger", Qty: -1, PriceCents: 8000}}),
		placeReq("alice", 0, []LineItem{{Name: "Burger", Qty: 1, PriceCents: 0}}),
		{Username: "alice", Items: cart(), TotalCents: 10000, PIN: "1234"}, // missing stall
	}
	for i, req := range cases {
		if _, err := l.PlaceOrder(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: want ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestPlaceOrderAuthFailures(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", 10000, pinHash, false)
	st.addUser("mallory", 10000, pinHash, true)
	st.addStall("S101")
	l := NewLedger(st, 4)

	if _, err := l.PlaceOrder(context.Background(), placeReq("nobody", 10000, cart())); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: want ErrUserNotFound, got %v", err)
	}
	if _, err := l.PlaceOrder(context.Background(), placeReq("mallory", 10000, cart())); !errors.Is(err, ErrAccountBlocked) {
		t.Errorf("blocked user: want ErrAccountBlocked, got %v", err)
	}

	req := placeReq("alice", 10000, cart())
	req.PIN = "9999"
	if _, err := l.PlaceOrder(context.Background(), req); !errors.Is(err, ErrWrongPIN) {
		t.Errorf("wrong pin: want ErrWrongPIN, got %v", err)
	}
	if st.balanceOf("alice") != 10000 {
		t.Error("auth failures must not touch the balance")
	}
}

func TestPlaceOrderUnknownStallRollsBackDebit(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", 10000, pinHash, false)
	l := NewLedger(st, 4)

	_, err := l.PlaceOrder(context.Background(), placeReq("alice", 10000, cart()))
	if !errors.Is(err, ErrStallNotFound) {
		t.Fatalf("want ErrStallNotFound, got %v", err)
	}
	if st.balanceOf("alice") != 10000 {
		t.Errorf("rolled-back order must leave balance intact, got %d", st.balanceOf("alice"))
	}
}

func TestConcurrentOrdersSameStallGetDenseTokenNumbers(t *testing.T) {
	st := newMemStore()
	st.addStall("S101")
	const users = 8
	names := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	for _, n := range names {
		st.addUser(n, 100000, pinHash, false)
	}
	l := NewLedger(st, users)

	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for i := 0; i < 2; i++ {
				if _, err := l.PlaceOrder(context.Background(), placeReq(name, 10000, cart())); err != nil {
					t.Errorf("%s: %v", name, err)
				}
			}
		}(n)
	}
	wg.Wait()

	seen := map[int]bool{}
	for _, tok := range st.toks {
		if seen[tok.TokenNo] {
			t.Errorf("duplicate token number %d", tok.TokenNo)
		}
		seen[tok.TokenNo] = true
	}
	for no := 1; no <= users*2; no++ {
		if !seen[no] {
			t.Errorf("token number %d missing, sequence has a gap", no)
		}
	}
}

func TestConcurrentOrdersSameUserNeverOverdraw(t *testing.T) {
	st := newMemStore()
	st.addUser("alice", 10000, pinHash, false)
	st.addStall("S101")
	l := NewLedger(st, 10)

	items := []LineItem{{Name: "Sandwich", Qty: 1, PriceCents: 3000}}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, insufficient := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.PlaceOrder(context.Background(), placeReq("alice", 3000, items))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, new(*InsufficientFundsError)):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Errorf("balance 100.00 allows exactly 3 orders of 30.00, got %d", succeeded)
	}
	if insufficient != 7 {
		t.Errorf("want 7 insufficient-funds failures, got %d", insufficient)
	}
	if got := st.balanceOf("alice"); got != 1000 {
		t.Errorf("final balance should be 10.00, got %d", got)
	}
	if got := st.balanceOf("alice"); got < 0 {
		t.Errorf("balance went negative: %d", got)
	}
}

func TestCartTotalExact(t *testing.T) {
	if got := CartTotal(cart()); got != 10000 {
		t.Errorf("CartTotal = %d, want 10000", got)
	}
}
