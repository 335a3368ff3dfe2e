package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", New(Validation, "field %s harus diisi", "asset_id"), Validation},
		{"not found wrapped", fmt.Errorf("workorder: get: %w", New(NotFound, "WO tidak ditemukan")), NotFound},
		{"plain error", errors.New("boom"), Internal},
		{"wrap keeps kind", Wrap(Conflict, errors.New("rows=0"), "status tidak sesuai"), Conflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Forbidden, http.StatusForbidden},
		{Unauthenticated, http.StatusUnauthorized},
		{Conflict, http.StatusConflict},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Status(tt.kind); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestMessage(t *testing.T) {
	err := Wrap(NotFound, errors.New("record not found"), "Aset %q tidak ditemukan.", "Mixer")
	if got := Message(err, "x"); got != `Aset "Mixer" tidak ditemukan.` {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errors.New("driver: bad conn"), "internal server error"); got != "internal server error" {
		t.Errorf("Message() fallback = %q", got)
	}
	if !errors.Is(err, err.(*Error).Err) {
		t.Error("Wrap should unwrap to the cause")
	}
}

func TestIs(t *testing.T) {
	if Is(nil, Internal) {
		t.Error("nil error should not match any kind")
	}
	if !Is(New(Forbidden, "no"), Forbidden) {
		t.Error("Is(Forbidden) = false")
	}
}
