package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/joinua/JR-Foxy/internal/domain/model"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"march", time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), "8 березня 2026 року"},
		{"december", time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC), "31 грудня 2025 року"},
		{"non-utc input", time.Date(2026, 1, 1, 1, 0, 0, 0, time.FixedZone("EET", 2*3600)), "31 грудня 2025 року"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.in); got != tt.want {
				t.Fatalf("FormatDate(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMentionEscapesName(t *testing.T) {
	got := Mention(42, `Bob <&> "Joker"`)
	want := `<a href="tg://user?id=42">Bob &lt;&amp;&gt; &#34;Joker&#34;</a>`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMentionFallsBackToID(t *testing.T) {
	if got := Mention(42, "  "); got != `<a href="tg://user?id=42">42</a>` {
		t.Fatalf("got %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		first, last string
		id          int64
		want        string
	}{
		{"Іван", "Кудзін", 1, "Іван Кудзін"},
		{"Іван", "", 1, "Іван"},
		{"", "", 99, "99"},
	}

	for _, tt := range tests {
		if got := DisplayName(tt.first, tt.last, tt.id); got != tt.want {
			t.Fatalf("DisplayName(%q, %q, %d) = %q, want %q", tt.first, tt.last, tt.id, got, tt.want)
		}
	}
}

func TestWarningsReportLabels(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Hour)
	active := []model.WarningRecord{
		{Reason: "спам", IssuedAt: now.Add(-24 * time.Hour), ExpiresAt: now.Add(24 * time.Hour)},
	}
	history := []model.WarningRecord{
		active[0],
		{Reason: "флуд", IssuedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{Reason: "образи", IssuedAt: now.Add(-72 * time.Hour), ExpiresAt: now.Add(24 * time.Hour), IsRevoked: true, RevokedAt: &revokedAt},
	}

	report := WarningsReport("@someone", active, history, now)

	if !strings.Contains(report, "Активні попередження: 1") {
		t.Fatalf("missing active count:\n%s", report)
	}
	if !strings.Contains(report, "(прострочено)") {
		t.Fatalf("expired record not labelled:\n%s", report)
	}
	if !strings.Contains(report, "(скасовано)") {
		t.Fatalf("revoked record not labelled:\n%s", report)
	}
	if !strings.Contains(report, "(активне)") {
		t.Fatalf("active record not labelled:\n%s", report)
	}
}

func TestWarningsReportEmpty(t *testing.T) {
	report := WarningsReport("@someone", nil, nil, time.Now())
	if !strings.Contains(report, "Активних попереджень немає.") {
		t.Fatalf("missing empty active marker:\n%s", report)
	}
	if !strings.Contains(report, "Історія попереджень порожня.") {
		t.Fatalf("missing empty history marker:\n%s", report)
	}
}

func TestMyWarnsPicksLatestExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	active := []model.WarningRecord{
		{ExpiresAt: now.Add(24 * time.Hour)},
		{ExpiresAt: now.Add(72 * time.Hour)},
		{ExpiresAt: now.Add(48 * time.Hour)},
	}

	got := MyWarns(active)
	if !strings.Contains(got, "Активних попереджень: 3") {
		t.Fatalf("missing count:\n%s", got)
	}
	if !strings.Contains(got, FormatDate(now.Add(72*time.Hour))) {
		t.Fatalf("must report the latest expiry:\n%s", got)
	}

	if MyWarns(nil) != MyWarnsEmptyText {
		t.Fatalf("empty ledger must use the canned reply")
	}
}

func TestWarningIssuedEscapesReason(t *testing.T) {
	msg := WarningIssued("@a", "@b", "<script>", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if strings.Contains(msg, "<script>") {
		t.Fatalf("reason must be HTML-escaped:\n%s", msg)
	}
	if !strings.Contains(msg, "&lt;script&gt;") {
		t.Fatalf("escaped reason missing:\n%s", msg)
	}
}
