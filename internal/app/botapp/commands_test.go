package botapp

import (
	"testing"

	tginfra "github.com/joinua/JR-Foxy/internal/infra/telegram"
)

func TestCommandTarget(t *testing.T) {
	reply := &tginfra.ReplyRef{UserID: 7, FirstName: "Іван"}

	tests := []struct {
		name     string
		update   tginfra.CommandUpdate
		wantID   int64
		wantName string
		wantOK   bool
	}{
		{"reply wins", tginfra.CommandUpdate{ReplyTo: reply, Args: "99"}, 7, "Іван", true},
		{"numeric arg", tginfra.CommandUpdate{Args: "42"}, 42, "", true},
		{"no target", tginfra.CommandUpdate{}, 0, "", false},
		{"garbage arg", tginfra.CommandUpdate{Args: "@someone"}, 0, "", false},
		{"zero id", tginfra.CommandUpdate{Args: "0"}, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, name, ok := commandTarget(tt.update)
			if id != tt.wantID || name != tt.wantName || ok != tt.wantOK {
				t.Fatalf("commandTarget() = (%d, %q, %v), want (%d, %q, %v)",
					id, name, ok, tt.wantID, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestHasCommandPrefix(t *testing.T) {
	tests := []struct {
		text   string
		prefix string
		want   bool
	}{
		{"!warn spam", warnPrefix, true},
		{"!warn", warnPrefix, true},
		{"!warning everyone", warnPrefix, false},
		{"!warned", warnPrefix, false},
		{"!unwarn", unwarnPrefix, true},
		{"!unwarn mistake", unwarnPrefix, true},
		{"!unwarnall", unwarnPrefix, false},
		{"warn spam", warnPrefix, false},
		{"", warnPrefix, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := hasCommandPrefix(tt.text, tt.prefix); got != tt.want {
				t.Fatalf("hasCommandPrefix(%q, %q) = %v, want %v", tt.text, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestParseLevelArgs(t *testing.T) {
	reply := &tginfra.ReplyRef{UserID: 7}

	tests := []struct {
		name      string
		update    tginfra.CommandUpdate
		wantID    int64
		wantLevel int
		wantErr   bool
	}{
		{"reply with level", tginfra.CommandUpdate{ReplyTo: reply, Args: "3"}, 7, 3, false},
		{"id and level", tginfra.CommandUpdate{Args: "42 2"}, 42, 2, false},
		{"reply with extra args", tginfra.CommandUpdate{ReplyTo: reply, Args: "3 4"}, 0, 0, true},
		{"missing level", tginfra.CommandUpdate{Args: "42"}, 0, 0, true},
		{"non-numeric level", tginfra.CommandUpdate{Args: "42 owner"}, 0, 0, true},
		{"empty", tginfra.CommandUpdate{}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, level, err := parseLevelArgs(tt.update)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevelArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if id != tt.wantID || level != tt.wantLevel {
				t.Fatalf("parseLevelArgs() = (%d, %d), want (%d, %d)", id, level, tt.wantID, tt.wantLevel)
			}
		})
	}
}
