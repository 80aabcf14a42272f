package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "loading cut")

	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Error() != "DEPENDENCY_ERROR: loading cut" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeStateConflict, "payment cancelled")
	outer := fmt.Errorf("mark paid: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if !IsCode(outer, CodeStateConflict) {
		t.Fatal("IsCode should see through wrapping")
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to internal, got %d", meta.HTTPStatus)
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(New(CodeConfig, "missing cut")) {
		t.Fatal("configuration errors are recoverable")
	}
	if IsRecoverable(New(CodeStateConflict, "locked")) {
		t.Fatal("state conflicts are not recoverable")
	}
	if IsRecoverable(stdErrors.New("plain")) {
		t.Fatal("untyped errors are not recoverable")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("db down"), "materialize")
	dump := Dump(err)
	if dump.Code != CodeInternal {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected full chain, got %v", dump.Chain)
	}
}
