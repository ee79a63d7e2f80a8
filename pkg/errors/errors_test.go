package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", meta.HTTPStatus)
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	base := New(CodeStateConflict, "stage mismatch")
	wrapped := fmt.Errorf("outer: %w", base)

	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", typed)
	}
	if !IsCode(wrapped, CodeStateConflict) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(wrapped, CodeValidation) {
		t.Fatal("expected IsCode to reject other codes")
	}
}

type fakeUpstream struct{}

func (fakeUpstream) Error() string           { return "upstream" }
func (fakeUpstream) UpstreamStatus() int     { return 422 }
func (fakeUpstream) CategoryName() string    { return "validation" }
func (fakeUpstream) UpstreamMessage() string { return "quantity exceeds stock" }

func TestDumpCapturesUpstreamDetail(t *testing.T) {
	err := Wrap(CodeValidation, fakeUpstream{}, "update cart line")

	dump := Dump(err)
	if dump.Code != CodeValidation {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if dump.UpstreamStatus != 422 || dump.UpstreamCategory != "validation" {
		t.Fatalf("unexpected upstream detail %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("expected empty dump for nil")
	}
	if !stdErrors.Is(err, fakeUpstream{}) {
		t.Fatal("expected cause to be retained")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "cart service unavailable")
	if got := err.Error(); got != "DEPENDENCY_ERROR: cart service unavailable: dial tcp: refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := New(CodeNotFound, "").Error(); got != "NOT_FOUND" {
		t.Fatalf("unexpected error string %q", got)
	}
	var nilErr *Error
	if nilErr.Code() != CodeInternal || nilErr.WithDetails("x") != nil {
		t.Fatal("nil error should read as internal and ignore details")
	}
}

func TestDependencyIsRetryable(t *testing.T) {
	if !MetadataFor(CodeDependency).Retryable {
		t.Fatal("dependency failures should be retryable")
	}
	if MetadataFor(CodeUpstream).Retryable {
		t.Fatal("upstream failures should not be retryable")
	}
	if !MetadataFor(CodeStateConflict).DetailsAllowed {
		t.Fatal("state conflicts should carry details")
	}
}
