package discord

import "testing"

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestAccepts(t *testing.T) {
	b, err := New(Config{Token: "x", GuildID: "g1", AllowedUsers: []string{"alice"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		guild, user string
		want        bool
	}{
		{"g1", "alice", true},
		{"", "alice", true},
		{"g2", "alice", false},
		{"g1", "bob", false},
	}
	for _, tt := range tests {
		if got := b.accepts(tt.guild, tt.user); got != tt.want {
			t.Errorf("accepts(%q, %q) = %v, want %v", tt.guild, tt.user, got, tt.want)
		}
	}

	open, _ := New(Config{Token: "x"}, nil)
	if !open.accepts("any", "anyone") {
		t.Error("unrestricted bot should accept everything")
	}
}

func TestSessionID(t *testing.T) {
	if got := SessionID("123"); got != "discord:123" {
		t.Errorf("SessionID = %q", got)
	}
}
