package internal

import (
	"errors"
	"testing"

	"go.uber.org/dig"
)

type repo struct{ dsn string }

type service struct{ repo *repo }

type namer interface{ Name() string }

func (r *repo) Name() string { return r.dsn }

func TestContainerResolve(t *testing.T) {
	c := NewContainer()
	calls := 0
	if err := Supply(c, "postgres://db"); err != nil {
		t.Fatalf("Supply() error = %v", err)
	}
	if err := c.Provide(func(dsn string) *repo { calls++; return &repo{dsn: dsn} }); err != nil {
		t.Fatalf("Provide() error = %v", err)
	}
	if err := c.Provide(func(r *repo) (*service, error) { return &service{repo: r}, nil }); err != nil {
		t.Fatalf("Provide() error = %v", err)
	}

	var s *service
	if err := c.Resolve(&s); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.repo.dsn != "postgres://db" {
		t.Errorf("dsn = %q", s.repo.dsn)
	}

	r, err := ResolveTyped[*repo](c)
	if err != nil {
		t.Fatalf("ResolveTyped() error = %v", err)
	}
	if r != s.repo || calls != 1 {
		t.Errorf("constructor should run once, ran %d times", calls)
	}
}

func TestContainerInterfaceBinding(t *testing.T) {
	c := NewContainer()
	r := &repo{dsn: "catalog"}
	if err := Supply(c, r, dig.As(new(namer))); err != nil {
		t.Fatalf("Supply() error = %v", err)
	}
	if err := Supply(c, r); err != nil {
		t.Fatalf("Supply() concrete error = %v", err)
	}

	n, err := ResolveTyped[namer](c)
	if err != nil {
		t.Fatalf("ResolveTyped[namer]() error = %v", err)
	}
	if n.Name() != "catalog" {
		t.Errorf("Name() = %q", n.Name())
	}
	if got, _ := ResolveTyped[*repo](c); got != r {
		t.Error("concrete type should resolve to the same value")
	}
}

func TestContainerErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Container) error
	}{
		{name: "not a function", setup: func(c *Container) error { return c.Provide(42) }},
		{name: "no results", setup: func(c *Container) error { return c.Provide(func() {}) }},
		{
			name: "provided twice",
			setup: func(c *Container) error {
				_ = Supply(c, 3)
				return Supply(c, 4)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.setup(NewContainer()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestContainerResolveErrors(t *testing.T) {
	c := NewContainer()

	var missing *service
	if err := c.Resolve(&missing); err == nil {
		t.Error("Resolve() of an unregistered type should fail")
	}
	if err := c.Resolve(missing); err == nil {
		t.Error("Resolve() of a non-pointer target should fail")
	}
	if _, err := ResolveTyped[string](c); err == nil {
		t.Error("string was never registered")
	}

	boom := errors.New("boom")
	_ = c.Provide(func() (*repo, error) { return nil, boom })
	_, err := ResolveTyped[*repo](c)
	if err == nil {
		t.Fatal("ResolveTyped() should fail")
	}
	if !errors.Is(err, boom) && !errors.Is(dig.RootCause(err), boom) {
		t.Errorf("ResolveTyped() error = %v, want boom", err)
	}
}

func TestContainerCycle(t *testing.T) {
	type a struct{}
	type b struct{}
	c := NewContainer()
	_ = c.Provide(func(*b) *a { return &a{} })
	err := c.Provide(func(*a) *b { return &b{} })
	if err == nil {
		_, err = ResolveTyped[*a](c)
	}
	if err == nil {
		t.Fatal("a dependency cycle should fail")
	}
}
