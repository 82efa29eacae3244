package main

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pesawallet/pesa/internal/common"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"whole number", "500", "500", false},
		{"decimal", "99.50", "99.5", false},
		{"with spaces", " 250 ", "250", false},
		{"zero", "0", "", true},
		{"negative", "-10", "", true},
		{"garbage", "lots", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				var userErr *common.UserError
				if !errors.As(err, &userErr) {
					t.Errorf("error %v is not a UserError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmount(%q) failed: %v", tt.input, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("parseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
