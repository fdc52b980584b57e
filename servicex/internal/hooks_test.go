package internal

import (
	"context"
	"errors"
	"testing"
)

func TestHooksRunInReverse(t *testing.T) {
	var h Hooks
	var order []string
	boom := errors.New("boom")

	h.Add("first", func(context.Context) error { order = append(order, "first"); return nil })
	h.Add("second", func(context.Context) error { order = append(order, "second"); return boom })
	h.Add("third", func(context.Context) error { order = append(order, "third"); return nil })

	if h.Len() != 3 {
		t.Fatalf("Len() = %d", h.Len())
	}
	err := h.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want boom", err)
	}
	want := []string{"third", "second", "first"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if h.Len() != 0 {
		t.Error("Run() should clear the hooks")
	}
	if err := h.Run(context.Background()); err != nil {
		t.Errorf("second Run() error = %v", err)
	}
}
