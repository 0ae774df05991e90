package auth

import "testing"

func TestCheckPinRoundTrip(t *testing.T) {
	hash, err := HashPin("2134")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPin("2134", hash) {
		t.Error("correct PIN should verify")
	}
	if CheckPin("0000", hash) {
		t.Error("wrong PIN should not verify")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions("test-secret")
	tok, err := s.Issue(Session{Role: RoleUser, Username: "alice", UID: "UID_0001"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Role != RoleUser || got.Username != "alice" || got.UID != "UID_0001" {
		t.Errorf("claims not preserved: %+v", got)
	}
}

func TestSessionWrongSecretRejected(t *testing.T) {
	tok, err := NewSessions("secret-a").Issue(Session{Role: RoleAdmin, Username: "admin"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewSessions("secret-b").Verify(tok); err == nil {
		t.Error("token signed with another secret should not verify")
	}
}

func TestSessionGarbageRejected(t *testing.T) {
	if _, err := NewSessions("secret").Verify("not.a.jwt"); err == nil {
		t.Error("garbage token should not verify")
	}
}

func TestStallSessionCarriesStallFields(t *testing.T) {
	s := NewSessions("secret")
	tok, err := s.Issue(Session{Role: RoleStall, StallID: "S101", StallName: "Tasty Bites"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.StallID != "S101" || got.StallName != "Tasty Bites" {
		t.Errorf("stall claims not preserved: %+v", got)
	}
}
