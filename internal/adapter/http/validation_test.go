package http

import (
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "loan-engine/internal/domain/loan"

	"github.com/rs/zerolog"
)

// ---- helpers ----

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestAddressValidation(t *testing.T) {
	type P struct {
		Holder string `validate:"address"`
	}
	cv := NewValidator()

	for _, s := range []string{
		"0x00000000000000000000000000000000000000b1",
		"0xAbCdEf0123456789aBcDeF0123456789AbCdEf01",
		"00000000000000000000000000000000000000b1", // prefix optional
	} {
		if err := cv.Validate(P{Holder: s}); err != nil {
			t.Fatalf("expected valid address %q, got err: %v", s, err)
		}
	}

	// invalid samples
	for _, s := range []string{
		"",           // empty
		"0xdeadbeef", // too short
		"0x" + strings.Repeat("g", 40),
		"0x" + strings.Repeat("a", 41),
	} {
		err := cv.Validate(P{Holder: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "Holder", "20-byte hex address") {
			t.Fatalf("expected address message for %q, got: %+v", s, fe)
		}
	}
}

func TestAmountValidation(t *testing.T) {
	type P struct {
		Amount string `validate:"amount"`
		Pos    string `validate:"posamount"`
	}
	cv := NewValidator()

	for _, v := range []string{"0", "1", "1000000000000000000000000000"} {
		if err := cv.Validate(P{Amount: v, Pos: "1"}); err != nil {
			t.Fatalf("expected amount OK for %q, got %v", v, err)
		}
	}
	for _, v := range []string{"-1", "1.5", "abc", "1e-3"} {
		err := cv.Validate(P{Amount: v, Pos: "1"})
		if err == nil {
			t.Fatalf("expected amount error for %q", v)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "Amount", "non-negative integer") {
			t.Fatalf("expected 'non-negative integer' for %q, got %+v", v, fe)
		}
	}

	err := cv.Validate(P{Amount: "0", Pos: "0"})
	if err == nil {
		t.Fatalf("expected posamount error for zero")
	}
	if fe := ToFieldErrors(err); !containsFieldMsg(fe, "Pos", "positive integer") {
		t.Fatalf("expected 'positive integer', got %+v", fe)
	}
}

func TestRequiredAndBoundsMapping(t *testing.T) {
	type P struct {
		Name    string   `validate:"required"`
		Min     int      `validate:"gte=10"`
		Max     int      `validate:"lte=5"`
		Holders []string `validate:"min=1"`
		ID      uint64   `validate:"gt=0"`
	}
	cv := NewValidator()

	// Intentionally violate all
	err := cv.Validate(P{Name: "", Min: 9, Max: 6, Holders: []string{}, ID: 0})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe := ToFieldErrors(err)

	if !containsFieldMsg(fe, "Name", "is required") {
		t.Fatalf("missing 'is required' for Name: %+v", fe)
	}
	if !containsFieldMsg(fe, "Min", "greater than or equal to 10") {
		t.Fatalf("missing gte message for Min: %+v", fe)
	}
	if !containsFieldMsg(fe, "Max", "less than or equal to 5") {
		t.Fatalf("missing lte message for Max: %+v", fe)
	}
	if !containsFieldMsg(fe, "Holders", "at least 1 item") {
		t.Fatalf("missing min message for Holders: %+v", fe)
	}
	if !containsFieldMsg(fe, "ID", "greater than 0") {
		t.Fatalf("missing gt message for ID: %+v", fe)
	}
}

func TestToFieldErrors_NonValidation(t *testing.T) {
	err := errors.New("boom")
	fe := ToFieldErrors(err)
	if len(fe) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(fe))
	}
	if fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected mapping: %+v", fe[0])
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound, stdhttp.StatusNotFound, "NotFound"},
		{domain.ErrAssetMismatch, stdhttp.StatusBadRequest, "InvalidInput"},
		{domain.ErrForeclosureWindowOpen, stdhttp.StatusConflict, "InvalidStatus"},
		{domain.ErrAlreadyAdmin, stdhttp.StatusConflict, "AlreadyAdmin"},
		{domain.ErrInsufficientAllowance, stdhttp.StatusUnprocessableEntity, "InsufficientAllowance"},
		{domain.ErrStaleData, stdhttp.StatusServiceUnavailable, "StaleData"},
		{domain.ErrNotBorrower, stdhttp.StatusForbidden, "AdminGuard"},
		{errors.New("disk full"), stdhttp.StatusInternalServerError, "Internal"},
	}
	e := newEchoWithValidator()
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(stdhttp.MethodGet, "/", nil), rec)
		if err := writeError(c, zerolog.Nop(), tc.err); err != nil {
			t.Fatalf("writeError: %v", err)
		}
		if rec.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		if !strings.Contains(rec.Body.String(), `"code":"`+tc.code+`"`) {
			t.Errorf("%v: body %s lacks code %s", tc.err, rec.Body.String(), tc.code)
		}
	}
	// internal details are not leaked
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(stdhttp.MethodGet, "/", nil), rec)
	_ = writeError(c, zerolog.Nop(), errors.New("disk full"))
	if strings.Contains(rec.Body.String(), "disk full") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}
