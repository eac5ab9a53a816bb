package domain

import "testing"

func TestParseRecipient(t *testing.T) {
	tests := []struct {
		raw    string
		want   Recipient
		wantOK bool
	}{
		{raw: "@archive", want: Recipient{Username: "archive"}, wantOK: true},
		{raw: " archive ", want: Recipient{Username: "archive"}, wantOK: true},
		{raw: "-1001234", want: Recipient{ID: -1001234}, wantOK: true},
		{raw: "", wantOK: false},
		{raw: "@", wantOK: false},
		{raw: "0", wantOK: false},
		{raw: "two words", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseRecipient(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseRecipient(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("ParseRecipient(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRecipientChatID(t *testing.T) {
	if got := (Recipient{Username: "chan"}).ChatID(); got != "@chan" {
		t.Fatalf("expected @chan, got %v", got)
	}
	if got := ChatRecipient(42).ChatID(); got != int64(42) {
		t.Fatalf("expected int64 42, got %v (%T)", got, got)
	}
}

func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		user User
		want string
	}{
		{User{ID: 1, FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{User{ID: 2, FirstName: "Ada"}, "Ada"},
		{User{ID: 3, Username: "ada"}, "@ada"},
		{User{ID: 4}, ""},
	}

	for _, tt := range tests {
		if got := tt.user.DisplayName(); got != tt.want {
			t.Fatalf("DisplayName(%+v) = %q, want %q", tt.user, got, tt.want)
		}
	}

	if got := (User{ID: 4}).Handle(); got != "(none)" {
		t.Fatalf("expected (none) handle, got %q", got)
	}
}

func TestMembershipStatusAllows(t *testing.T) {
	if !MembershipMember.Allows() {
		t.Fatalf("member should be allowed")
	}
	if MembershipNotMember.Allows() || MembershipUnknown.Allows() {
		t.Fatalf("only member should be allowed")
	}
}
