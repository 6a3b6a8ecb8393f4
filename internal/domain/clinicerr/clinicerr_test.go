package clinicerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(Conflict, "already exists")
	kind, ok := KindOf(err)
	if !ok || kind != Conflict {
		t.Errorf("KindOf = %v, %v; want Conflict, true", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("plain errors must not carry a kind")
	}
	if _, ok := KindOf(nil); ok {
		t.Error("nil must not carry a kind")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(NotFound, "record not found")
	wrapped := fmt.Errorf("loading visit: %w", inner)

	if !IsKind(wrapped, NotFound) {
		t.Error("kind should be reachable through fmt.Errorf wrapping")
	}
	if IsKind(wrapped, Conflict) {
		t.Error("wrong kind matched")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Wrap(Conflict, "sequence contended", cause)
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusUnprocessableEntity},
		{Overpayment, http.StatusUnprocessableEntity},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{InvalidTransition, http.StatusConflict},
		{Forbidden, http.StatusForbidden},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.kind); got != c.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}
