package group

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_link_relay_bot/internal/domain"
)

const testToken = "123:secret-token"

type fakeMembers struct {
	member *models.ChatMember
	err    error
	params []*bot.GetChatMemberParams
}

func (f *fakeMembers) GetChatMember(_ context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error) {
	f.params = append(f.params, params)
	return f.member, f.err
}

func newHookLogger() (*logrus.Entry, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func TestCheckInterpretsStatuses(t *testing.T) {
	tests := []struct {
		memberType models.ChatMemberType
		want       domain.MembershipStatus
	}{
		{memberType: models.ChatMemberTypeMember, want: domain.MembershipMember},
		{memberType: models.ChatMemberTypeAdministrator, want: domain.MembershipMember},
		{memberType: models.ChatMemberTypeOwner, want: domain.MembershipMember},
		{memberType: models.ChatMemberTypeLeft, want: domain.MembershipNotMember},
		{memberType: models.ChatMemberTypeBanned, want: domain.MembershipNotMember},
		{memberType: models.ChatMemberTypeRestricted, want: domain.MembershipNotMember},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.memberType), func(t *testing.T) {
			members := &fakeMembers{member: &models.ChatMember{Type: tt.memberType}}
			logger, _ := newHookLogger()
			gate := NewGate(members, domain.Recipient{Username: "my_channel"}, logger)

			status, err := gate.Check(context.Background(), 7)
			if err != nil {
				t.Fatalf("Check returned error: %v", err)
			}
			if status != tt.want {
				t.Fatalf("type %q mapped to %s, want %s", tt.memberType, status, tt.want)
			}
			if gate.IsMember(context.Background(), 7) != tt.want.Allows() {
				t.Fatalf("IsMember disagrees with Check for %q", tt.memberType)
			}

			params := members.params[0]
			if params.ChatID != "@my_channel" || params.UserID != 7 {
				t.Fatalf("unexpected params %+v", params)
			}
		})
	}
}

func TestIsMemberFailsClosedOnGetterErrors(t *testing.T) {
	tests := []struct {
		name    string
		members *fakeMembers
	}{
		{name: "api error", members: &fakeMembers{err: errors.New("bad request, chat not found")}},
		{name: "nil member", members: &fakeMembers{}},
		{name: "empty type", members: &fakeMembers{member: &models.ChatMember{}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := newHookLogger()
			gate := NewGate(tt.members, domain.ChatRecipient(-100123), logger)

			status, err := gate.Check(context.Background(), 9)
			if !errors.Is(err, ErrStatusUnavailable) {
				t.Fatalf("expected ErrStatusUnavailable, got %v", err)
			}
			if status != domain.MembershipUnknown {
				t.Fatalf("expected unknown status, got %s", status)
			}

			if gate.IsMember(context.Background(), 9) {
				t.Fatalf("expected fail-closed denial")
			}

			entry := hook.LastEntry()
			if entry == nil || entry.Data["event"] != "membership_check_failed" {
				t.Fatalf("expected membership_check_failed log, got %v", entry)
			}
		})
	}
}

// newBotAPIServer serves getMe plus the given getChatMember handler, so a real
// *bot.Bot can be pointed at it.
func newBotAPIServer(t *testing.T, chatMember http.HandlerFunc) *bot.Bot {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"relay","username":"relay_bot"}}`))
		case r.URL.Path == "/bot"+testToken+"/getChatMember":
			chatMember(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	b, err := bot.New(testToken, bot.WithServerURL(srv.URL))
	if err != nil {
		t.Fatalf("bot.New returned error: %v", err)
	}
	return b
}

func TestCheckWithBotAPI(t *testing.T) {
	var gotChat, gotUser string
	b := newBotAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotChat = r.FormValue("chat_id")
		gotUser = r.FormValue("user_id")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"status":"member","user":{"id":42,"is_bot":false,"first_name":"A"}}}`))
	})

	logger, _ := newHookLogger()
	gate := NewGate(b, domain.Recipient{Username: "my_channel"}, logger)

	status, err := gate.Check(context.Background(), 42)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if status != domain.MembershipMember {
		t.Fatalf("expected member, got %s", status)
	}
	if gotChat != "@my_channel" || gotUser != "42" {
		t.Fatalf("unexpected query chat_id=%s user_id=%s", gotChat, gotUser)
	}
}

func TestIsMemberFailsClosedWithBotAPI(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"ok":false,"error_code":500,"description":"Internal Server Error"}`))
			},
		},
		{
			name: "api not ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"ok":true,"result":`))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			b := newBotAPIServer(t, tt.handler)
			logger, hook := newHookLogger()
			gate := NewGate(b, domain.Recipient{Username: "my_channel"}, logger)

			status, err := gate.Check(context.Background(), 9)
			if !errors.Is(err, ErrStatusUnavailable) || status != domain.MembershipUnknown {
				t.Fatalf("expected unknown status with ErrStatusUnavailable, got %s, %v", status, err)
			}
			if gate.IsMember(context.Background(), 9) {
				t.Fatalf("expected fail-closed denial")
			}
			if entry := hook.LastEntry(); entry == nil || entry.Data["event"] != "membership_check_failed" {
				t.Fatalf("expected membership_check_failed log, got %v", entry)
			}
		})
	}
}

func TestCheckValidatesInput(t *testing.T) {
	var nilGate *Gate
	if _, err := nilGate.Check(context.Background(), 1); !errors.Is(err, ErrStatusUnavailable) {
		t.Fatalf("expected error for nil gate, got %v", err)
	}
	if nilGate.IsMember(context.Background(), 1) {
		t.Fatalf("nil gate must deny")
	}

	if _, err := NewGate(nil, domain.Recipient{Username: "c"}, nil).Check(context.Background(), 1); !errors.Is(err, ErrStatusUnavailable) {
		t.Fatalf("expected error for missing getter, got %v", err)
	}

	members := &fakeMembers{member: &models.ChatMember{Type: models.ChatMemberTypeMember}}
	gate := NewGate(members, domain.Recipient{Username: "c"}, nil)
	if _, err := gate.Check(nil, 1); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := gate.Check(context.Background(), 0); err == nil {
		t.Fatalf("expected error for zero user id")
	}
	if len(members.params) != 0 {
		t.Fatalf("expected no query for invalid input, got %d", len(members.params))
	}
}
