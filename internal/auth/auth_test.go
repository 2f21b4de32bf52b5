package auth

import (
	"errors"
	"testing"

	"github.com/hubgate/hubgate/internal/testutil/testlog"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFuncValidator(t *testing.T) {
	testlog.Start(t)

	validator := FuncValidator(func(token string) error {
		if token != "ok" {
			return ErrUnauthorized
		}
		return nil
	})

	if err := validator.Validate("bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}
	if err := validator.Validate("ok"); err != nil {
		t.Fatalf("expected success for ok token, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	testlog.Start(t)

	if token, ok := BearerToken("Bearer secret"); !ok || token != "secret" {
		t.Fatalf("bearer parse: token=%q ok=%v", token, ok)
	}
	if token, ok := BearerToken("bearer secret"); !ok || token != "secret" {
		t.Fatalf("scheme should be case-insensitive: token=%q ok=%v", token, ok)
	}
	for _, raw := range []string{"", "Bearer", "Bearer   ", "Basic abc", "secret"} {
		if _, ok := BearerToken(raw); ok {
			t.Fatalf("header %q should not parse", raw)
		}
	}
}
