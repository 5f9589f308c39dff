package auth

import (
	"errors"
	"testing"

	"github.com/philbudne/rss-fetcher/internal/testutil/testlog"
)

func TestStaticKeyValidate(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty key denies everything", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched key denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching key accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticKey{Key: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFuncValidator(t *testing.T) {
	testlog.Start(t)

	validator := FuncValidator(func(key string) error {
		if key != "ok" {
			return ErrUnauthorized
		}
		return nil
	})

	if err := validator.Validate("bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for bad key, got %v", err)
	}
	if err := validator.Validate("ok"); err != nil {
		t.Fatalf("expected success for ok key, got %v", err)
	}
}
