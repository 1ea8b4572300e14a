package di

import "testing"

type counter struct{ n int }

func TestContainer_FactoryIsLazyAndSingleton(t *testing.T) {
	c := NewContainer()
	builds := 0

	tok := NewToken[*counter]("test.counter")
	RegisterToken(c, tok, func(ServiceRegistry) *counter {
		builds++
		return &counter{n: 42}
	})

	if builds != 0 {
		t.Fatalf("factory ran before first Get")
	}

	a := GetToken(c, tok)
	b := GetToken(c, tok)
	if a != b {
		t.Error("expected the same instance on repeated resolution")
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
	if a.n != 42 {
		t.Errorf("n = %d, want 42", a.n)
	}
}

func TestContainer_FactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("config", "mainnet")

	tok := NewToken[string]("test.network")
	RegisterToken(c, tok, func(sr ServiceRegistry) string {
		return "net:" + sr.Get("config").(string)
	})

	if got := GetToken(c, tok); got != "net:mainnet" {
		t.Errorf("got %q", got)
	}
}

func TestContainer_UnknownKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unregistered key")
		}
	}()
	NewContainer().Get("missing")
}
