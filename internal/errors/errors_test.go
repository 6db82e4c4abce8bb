package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := stderrors.New("connection refused")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: base, want: ""},
		{name: "direct", err: Wrap(ConnectFailed, "ping database", base), want: ConnectFailed},
		{name: "wrapped with fmt", err: fmt.Errorf("run: %w", New(EmptyQuery, "model declined")), want: EmptyQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEUnwrap(t *testing.T) {
	base := stderrors.New("syntax error at or near \"SELEC\"")
	err := Wrap(ExecFailed, "execute query", base)
	if !stderrors.Is(err, base) {
		t.Fatal("expected errors.Is to reach the wrapped error")
	}
	if got := err.Error(); got != `exec_failed: execute query: syntax error at or near "SELEC"` {
		t.Errorf("Error() = %q", got)
	}
	if !Is(err, ExecFailed) || Is(err, ConnectFailed) {
		t.Error("Is() returned the wrong kind match")
	}
}
