package di

// Token is a typed key so resolution doesn't need type assertions at call sites.
type Token[T any] struct {
	key string
}

// NewToken creates a typed token.
func NewToken[T any](key string) Token[T] {
	return Token[T]{key: key}
}

// Key returns the underlying registry key.
func (t Token[T]) Key() string {
	return t.key
}

// RegisterToken registers a lazy factory for the token.
func RegisterToken[T any](c Container, t Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(t.key, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves the token with its static type.
func GetToken[T any](sr ServiceRegistry, t Token[T]) T {
	return sr.Get(t.key).(T)
}
