package payment

import (
	"testing"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "deep link",
			raw:  "pesawallet://payment/verify?reference=ref-123",
			want: "ref-123",
		},
		{
			name: "http callback",
			raw:  "http://127.0.0.1:4280/payment/verify?reference=ref-456",
			want: "ref-456",
		},
		{
			name: "https callback",
			raw:  "https://localhost/payment/verify?reference=ref-789",
			want: "ref-789",
		},
		{
			name: "surrounding whitespace",
			raw:  "  pesawallet://payment/verify?reference=ref-123\n",
			want: "ref-123",
		},
		{name: "missing reference", raw: "pesawallet://payment/verify", wantErr: true},
		{name: "wrong deep link path", raw: "pesawallet://payment/cancel?reference=x", wantErr: true},
		{name: "wrong http path", raw: "http://localhost/other?reference=x", wantErr: true},
		{name: "wrong scheme", raw: "ftp://payment/verify?reference=x", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallback(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCallback(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCallback(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
