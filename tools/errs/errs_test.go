package errs

import (
	"errors"
	"testing"
)

func TestCodeErrorIsMatchesByCode(t *testing.T) {
	wrapped := ErrTransientStore.WrapMsg("redis timed out")
	if !ErrTransientStore.Is(wrapped) {
		t.Fatal("wrapped error lost its code")
	}
	if ErrPersistenceFailed.Is(wrapped) {
		t.Fatal("different code matched")
	}
	if ErrTransientStore.Is(errors.New("plain")) {
		t.Fatal("plain error matched a code error")
	}
}

func TestWithDetailDoesNotMutateBase(t *testing.T) {
	d := ErrMalformedEnvelope.WithDetail("missing field")
	if ErrMalformedEnvelope.Detail != "" {
		t.Fatalf("base mutated: %q", ErrMalformedEnvelope.Detail)
	}
	if d.Detail != "missing field" {
		t.Fatalf("detail = %q", d.Detail)
	}
	if d.Code != ErrMalformedEnvelope.Code {
		t.Fatal("code changed by WithDetail")
	}
}

func TestWrapNilStaysNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
	if WrapMsg(nil, "context") != nil {
		t.Fatal("WrapMsg(nil) must be nil")
	}
}
