package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEvaluateEmptySource(t *testing.T) {
	eng := NewEngine()

	for _, src := range []string{"", "   \n\t  \n  "} {
		objs, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if objs == nil {
			t.Fatal("expected non-nil object list")
		}
		if len(objs) != 0 {
			t.Errorf("expected no objects, got %d", len(objs))
		}
	}
}

func TestEvaluatePlainArithmetic(t *testing.T) {
	eng := NewEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	objs, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if len(objs) != 0 {
		t.Errorf("expected no objects, got %d", len(objs))
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	objs, evalErrs, err := eng.Evaluate("(box 1 1 1")
	if err != nil {
		t.Fatalf("expected eval errors, not fatal error: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if objs != nil {
		t.Errorf("expected nil objects on error, got %d", len(objs))
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	_, evalErrs, err := eng.Evaluate("(dodecahedron 1)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error for undefined function")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	var err error = EvalError{Line: 5, Message: "something went wrong"}
	if got := err.Error(); got != "line 5: something went wrong" {
		t.Errorf("Error() = %q", got)
	}

	var target EvalError
	if !errors.As(err, &target) || target.Line != 5 {
		t.Errorf("errors.As failed: %+v", target)
	}

	if got := (EvalError{Message: "no location"}).Error(); strings.Contains(got, "line") {
		t.Errorf("Error() with no line should not mention a line, got %q", got)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()

	for i := 0; i < 3; i++ {
		objs, evalErrs, err := eng.Evaluate(`(box 2 1 1 :at (vec3 1 0 0))`)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("iteration %d: err=%v evalErrs=%v", i, err, evalErrs)
		}
		if len(objs) != 1 {
			t.Fatalf("iteration %d: expected 1 object, got %d", i, len(objs))
		}
		if objs[0].GeometryArgs[0] != 2 || objs[0].Position[0] != 1 {
			t.Errorf("iteration %d: unexpected object %+v", i, objs[0])
		}
	}
}

func TestAwaitTimesOut(t *testing.T) {
	eng := &Engine{Timeout: 20 * time.Millisecond, generation: 1}
	ch := make(chan evalResult) // never sends

	done := make(chan error, 1)
	go func() {
		_, _, err := eng.await(context.Background(), ch, 1)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("await did not return")
	}
}

func TestAwaitHonoursContext(t *testing.T) {
	eng := &Engine{generation: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := eng.await(ctx, make(chan evalResult), 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestAwaitDiscardsStale(t *testing.T) {
	eng := &Engine{generation: 2}
	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := eng.await(context.Background(), ch, 1)
	if !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 3: bad", 3, "bad"},
		{"no line info", "some generic error", 0, "some generic error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d", len(errs))
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if errs[0].Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
