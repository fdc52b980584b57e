// Package internal provides the dependency container and shutdown hooks
// behind servicex.
package internal

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"
)

// Container is a dig container with the typed helpers servicex exposes.
// Constructors run at most once; their results are shared.
type Container struct {
	dig *dig.Container
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{dig: dig.New()}
}

// Provide registers constructor. Its parameters are resolved from the
// container when one of its results is first requested. A type can be
// provided once.
func (c *Container) Provide(constructor any, opts ...dig.ProvideOption) error {
	if err := c.dig.Provide(constructor, opts...); err != nil {
		return fmt.Errorf("provide %T: %w", constructor, err)
	}
	return nil
}

// Supply registers value as the instance of T.
func Supply[T any](c *Container, value T, opts ...dig.ProvideOption) error {
	if err := c.dig.Provide(func() T { return value }, opts...); err != nil {
		return fmt.Errorf("supply %s: %w", reflect.TypeFor[T](), err)
	}
	return nil
}

// Resolve stores the instance of *target's type in target.
func (c *Container) Resolve(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer, got %T", target)
	}
	t := v.Elem().Type()
	fn := reflect.MakeFunc(reflect.FuncOf([]reflect.Type{t}, nil, false), func(args []reflect.Value) []reflect.Value {
		v.Elem().Set(args[0])
		return nil
	})
	if err := c.dig.Invoke(fn.Interface()); err != nil {
		return fmt.Errorf("resolve %s: %w", t, err)
	}
	return nil
}

// ResolveTyped returns the instance of T.
func ResolveTyped[T any](c *Container) (T, error) {
	var out T
	if err := c.dig.Invoke(func(v T) { out = v }); err != nil {
		return out, fmt.Errorf("resolve %s: %w", reflect.TypeFor[T](), err)
	}
	return out, nil
}
