package service

import (
	"context"
	"testing"
	"time"

	"github.com/99minutos/accounts-api/internal/core/ports"
)

type passwordFixture struct {
	users     *memUsers
	allowlist *memAllowlist
	resets    *memResets
	notifier  *stubNotifier
	sessions  *SessionService
	svc       *PasswordService
}

func newPasswordFixture() *passwordFixture {
	f := &passwordFixture{
		users:     newMemUsers(),
		allowlist: newMemAllowlist(),
		resets:    newMemResets(),
		notifier:  &stubNotifier{},
	}
	f.sessions = NewSessionService(f.users, f.allowlist, NewJWTIssuer("secret", time.Hour, ""), stubHasher{}, testLog)
	f.svc = NewPasswordService(f.users, f.resets, f.notifier, stubHasher{}, f.sessions, testLog)
	return f
}

func TestPasswordService_RequestReset(t *testing.T) {
	f := newPasswordFixture()
	alice := seedUser(f.users, "alice", "alice@example.com")

	if err := f.svc.RequestReset(context.Background(), " ALICE@example.com "); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].userID != alice.ID {
		t.Fatalf("expected one notification for alice, got %+v", f.notifier.sent)
	}
}

func TestPasswordService_RequestReset_UnknownEmailIsSilent(t *testing.T) {
	f := newPasswordFixture()

	for _, email := range []string{"ghost@example.com", ""} {
		if err := f.svc.RequestReset(context.Background(), email); err != nil {
			t.Fatalf("RequestReset(%q) returned error: %v", email, err)
		}
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("no notification expected, got %+v", f.notifier.sent)
	}
}

func TestPasswordService_Reset(t *testing.T) {
	f := newPasswordFixture()
	ctx := context.Background()
	alice := seedUser(f.users, "alice", "alice@example.com")
	_, _, _ = f.sessions.Login(ctx, "alice", validPassword, "")
	_ = f.svc.RequestReset(ctx, alice.Email)
	token := f.notifier.sent[0].token

	err := f.svc.Reset(ctx, ports.ResetPasswordInput{Token: token, Password: "N3w@pass", PasswordConfirmation: strPtr("N3w@pass")})
	if err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if got := f.users.get(alice.ID).PasswordHash; got != "hashed:N3w@pass" {
		t.Fatalf("password not updated: %q", got)
	}
	if f.allowlist.count(alice.ID) != 0 {
		t.Fatalf("sessions should be revoked after reset")
	}

	err = f.svc.Reset(ctx, ports.ResetPasswordInput{Token: token, Password: "N3w@pass", PasswordConfirmation: strPtr("N3w@pass")})
	if !hasMessage(fieldMessages(t, err), "reset_password_token", msgInvalid) {
		t.Fatalf("token must be single use, got %v", err)
	}
}

func TestPasswordService_Reset_WeakPasswordKeepsToken(t *testing.T) {
	f := newPasswordFixture()
	ctx := context.Background()
	alice := seedUser(f.users, "alice", "alice@example.com")
	_ = f.svc.RequestReset(ctx, alice.Email)
	token := f.notifier.sent[0].token

	err := f.svc.Reset(ctx, ports.ResetPasswordInput{Token: token, Password: "weak"})
	if !hasMessage(fieldMessages(t, err), "password", msgPasswordRules) {
		t.Fatalf("expected password rules error, got %v", err)
	}
	if _, err := f.resets.Lookup(ctx, token); err != nil {
		t.Fatalf("token should survive a failed attempt: %v", err)
	}
}

func TestPasswordService_Reset_BadToken(t *testing.T) {
	f := newPasswordFixture()

	err := f.svc.Reset(context.Background(), ports.ResetPasswordInput{Token: "", Password: validPassword})
	if !hasMessage(fieldMessages(t, err), "reset_password_token", msgBlank) {
		t.Fatalf("expected blank token error, got %v", err)
	}

	err = f.svc.Reset(context.Background(), ports.ResetPasswordInput{Token: "unknown", Password: validPassword})
	if !hasMessage(fieldMessages(t, err), "reset_password_token", msgInvalid) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestPasswordService_Reset_DiscardedOwner(t *testing.T) {
	f := newPasswordFixture()
	ctx := context.Background()
	alice := seedUser(f.users, "alice", "alice@example.com")
	_ = f.svc.RequestReset(ctx, alice.Email)
	token := f.notifier.sent[0].token
	_ = f.users.Discard(ctx, alice.ID, time.Now())

	err := f.svc.Reset(ctx, ports.ResetPasswordInput{Token: token, Password: validPassword})
	if !hasMessage(fieldMessages(t, err), "reset_password_token", msgInvalid) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}
