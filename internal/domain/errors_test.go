package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "nil error",
			err:  nil,
			want: KindNone,
		},
		{
			name: "validation errors",
			err:  ValidationErrors{"customerName": {MsgCustomerNameRequired}},
			want: KindValidation,
		},
		{
			name: "wrapped validation errors",
			err:  fmt.Errorf("create: %w", ValidationErrors{"items": {MsgItemsEmpty}}),
			want: KindValidation,
		},
		{
			name: "not found",
			err:  ErrOrderNotFound,
			want: KindNotFound,
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("find order 7: %w", ErrOrderNotFound),
			want: KindNotFound,
		},
		{
			name: "persistence error",
			err:  &PersistenceError{Op: "create order", Err: errors.New("connection refused")},
			want: KindPersistence,
		},
		{
			name: "unknown error",
			err:  errors.New("boom"),
			want: KindPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPersistenceError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&PersistenceError{Op: "delete order", Err: cause})

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to match the cause")
	}
	if err.Error() != "delete order: disk full" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Cause() != "disk full" {
		t.Fatalf("unexpected cause: %+v", perr)
	}
}
