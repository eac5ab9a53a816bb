package user

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_link_relay_bot/internal/domain"
	"tg_link_relay_bot/internal/store"
)

func TestEnsureUserRegistersOnce(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	hookLogger.SetLevel(logrus.DebugLevel)
	registrar := NewRegistrar(store.NewRegistry(), logrus.NewEntry(hookLogger))

	ctx := context.Background()
	total, created, err := registrar.EnsureUser(ctx, domain.User{ID: 123, Username: "alice"})
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if !created || total != 1 {
		t.Fatalf("expected (1, true) for new user, got (%d, %v)", total, created)
	}

	entry := hook.LastEntry()
	if entry.Data["event"] != "user_registered" || entry.Data["user_id"] != int64(123) || entry.Data["total_users"] != 1 {
		t.Fatalf("unexpected registration log %v", entry.Data)
	}

	total, created, err = registrar.EnsureUser(ctx, domain.User{ID: 123})
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if created || total != 1 {
		t.Fatalf("expected (1, false) for known user, got (%d, %v)", total, created)
	}
	if hook.LastEntry().Data["event"] != "user_seen" {
		t.Fatalf("expected user_seen log, got %v", hook.LastEntry().Data["event"])
	}

	if registrar.Count() != 1 {
		t.Fatalf("expected count 1, got %d", registrar.Count())
	}
}

func TestEnsureUserValidates(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	tests := []struct {
		name      string
		registrar *Registrar
		ctx       context.Context
		user      domain.User
		expectErr string
	}{
		{
			name:      "nil registrar",
			registrar: nil,
			ctx:       context.Background(),
			user:      domain.User{ID: 1},
			expectErr: "not initialized",
		},
		{
			name:      "nil store",
			registrar: NewRegistrar(nil, logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			user:      domain.User{ID: 1},
			expectErr: "not initialized",
		},
		{
			name:      "nil context",
			registrar: NewRegistrar(store.NewRegistry(), logrus.NewEntry(hookLogger)),
			ctx:       nil,
			user:      domain.User{ID: 1},
			expectErr: "context is required",
		},
		{
			name:      "zero user id",
			registrar: NewRegistrar(store.NewRegistry(), logrus.NewEntry(hookLogger)),
			ctx:       context.Background(),
			user:      domain.User{},
			expectErr: "user id is required",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.registrar.EnsureUser(tt.ctx, tt.user)
			if err == nil || !strings.Contains(err.Error(), tt.expectErr) {
				t.Fatalf("expected error containing %q, got %v", tt.expectErr, err)
			}
		})
	}

	var nilRegistrar *Registrar
	if nilRegistrar.Count() != 0 {
		t.Fatalf("nil registrar should count zero")
	}
}
