package middleware

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateMessageContent(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"ok", "hello there", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 100001), true},
		{"at limit", strings.Repeat("a", 100000), false},
		{"invalid utf8", string([]byte{0xff, 0xfe}), true},
		{"unicode", "héllo wörld 你好", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMessageContent(tc.content)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateMessageContent() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateChatID(t *testing.T) {
	if err := ValidateChatID(uuid.New().String()); err != nil {
		t.Errorf("valid UUID rejected: %v", err)
	}
	for _, id := range []string{"", "not-a-uuid", "12345", "../../etc/passwd"} {
		if err := ValidateChatID(id); err == nil {
			t.Errorf("ValidateChatID(%q) accepted", id)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	for _, email := range []string{"alice@example.com", "a@b.co", "user+tag@host.org"} {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) rejected: %v", email, err)
		}
	}
	for _, email := range []string{"", "no-at-sign", "@starts-with-at", "ends-with-at@", strings.Repeat("a", 250) + "@b.com"} {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("ValidateEmail(%q) accepted", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("eight-ch"); err != nil {
		t.Errorf("8-char password rejected: %v", err)
	}
	if err := ValidatePassword("seven-c"); err == nil {
		t.Error("7-char password accepted")
	}
	if err := ValidatePassword(strings.Repeat("a", 73)); err == nil {
		t.Error("73-char password accepted")
	}
}

func TestValidateFullName(t *testing.T) {
	if err := ValidateFullName("Alice Liddell"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	for _, name := range []string{"", "   ", strings.Repeat("x", 257)} {
		if err := ValidateFullName(name); err == nil {
			t.Errorf("ValidateFullName(%q) accepted", name)
		}
	}
}
