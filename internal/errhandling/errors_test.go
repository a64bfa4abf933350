package errhandling

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestDecodeErrorFormat(t *testing.T) {
	err := NewFieldDecodeError(42, "Age", "2011ALxx", "cannot parse \"xx\" as integer", strconv.ErrSyntax)

	msg := err.Error()
	if !strings.Contains(msg, "line 42") {
		t.Errorf("Error() = %q, want line number", msg)
	}
	if !strings.Contains(msg, "Age") {
		t.Errorf("Error() = %q, want field name", msg)
	}
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Error("errors.Is(err, ErrSyntax) = false, want true")
	}
}

func TestDecodeErrorTruncatesRaw(t *testing.T) {
	raw := strings.Repeat("x", 500)
	err := NewDecodeError(1, raw, "too long")
	if len(err.Error()) >= 500 {
		t.Errorf("Error() includes full raw record, len = %d", len(err.Error()))
	}
}

func TestSchemaMismatchErrorFormat(t *testing.T) {
	err := &SchemaMismatchError{Line: 3, Missing: []string{"Population"}, Extra: []string{"Bogus"}}
	msg := err.Error()
	for _, want := range []string{"row 3", "Population", "Bogus"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestInvalidPredicateErrorFormat(t *testing.T) {
	err := NewInvalidPredicateError("Not_A_Field", "field not present in table schema")
	if err.Field != "Not_A_Field" {
		t.Errorf("Field = %q, want Not_A_Field", err.Field)
	}
	if !strings.Contains(err.Error(), "Not_A_Field") {
		t.Errorf("Error() = %q, want field name", err.Error())
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status        int
		wantCategory  ErrorCategory
		wantRetryable bool
	}{
		{404, CategoryNotFound, false},
		{429, CategoryRateLimit, true},
		{500, CategoryServer, true},
		{503, CategoryServer, true},
		{400, CategoryClient, false},
		{403, CategoryClient, false},
		{302, CategoryUnknown, false},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			got := ClassifyHTTPStatus(tt.status)
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %s, want %s", got.Category, tt.wantCategory)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if got.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.status)
			}
		})
	}
}

func TestClassifyErrorDataErrorsNeverRetryable(t *testing.T) {
	errs := []error{
		NewDecodeError(1, "raw", "bad record"),
		&SchemaMismatchError{Line: 1, Missing: []string{"Age"}},
		NewInvalidPredicateError("Age", "bad"),
	}
	for _, err := range errs {
		got := ClassifyError(err)
		if got.Category != CategoryData {
			t.Errorf("ClassifyError(%T).Category = %s, want %s", err, got.Category, CategoryData)
		}
		if got.Retryable {
			t.Errorf("ClassifyError(%T).Retryable = true, want false", err)
		}
	}
}

func TestClassifyErrorPassthrough(t *testing.T) {
	orig := ClassifyHTTPStatus(429)
	got := ClassifyError(orig)
	if got != orig {
		t.Error("already-classified error should pass through unchanged")
	}

	wrapped := ClassifyError(errors.New("wrapped: " + orig.Error()))
	if wrapped.Category != CategoryUnknown {
		t.Errorf("Category = %s, want %s for plain error", wrapped.Category, CategoryUnknown)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("IsRetryable(nil) = true")
	}
	if !IsRetryable(ClassifyHTTPStatus(500)) {
		t.Error("IsRetryable(500) = false")
	}
	if IsRetryable(NewDecodeError(1, "", "bad")) {
		t.Error("IsRetryable(decode error) = true")
	}
}
