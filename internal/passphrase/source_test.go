package passphrase

import (
	"errors"
	"testing"
)

func fakeSource(env map[string]string, prompted string, promptErr error) (*Source, *int) {
	calls := 0
	s := &Source{
		envVar: "ACRE_PASS",
		lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
		prompt: func() (string, error) {
			calls++
			return prompted, promptErr
		},
	}
	return s, &calls
}

func TestSourcePrefersEnvironment(t *testing.T) {
	s, calls := fakeSource(map[string]string{"ACRE_PASS": "from-env"}, "typed", nil)
	got, err := s.Get()
	if err != nil || got != "from-env" {
		t.Fatalf("unexpected result %q %v", got, err)
	}
	if *calls != 0 {
		t.Fatalf("prompt should not run when env is set")
	}
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	s, _ := fakeSource(map[string]string{"ACRE_PASS": "  "}, "typed", nil)
	if _, err := s.Get(); err == nil {
		t.Fatalf("expected blank env to fail")
	}
}

func TestSourcePromptsAndCaches(t *testing.T) {
	s, calls := fakeSource(nil, "typed", nil)
	for i := 0; i < 2; i++ {
		got, err := s.Get()
		if err != nil || got != "typed" {
			t.Fatalf("unexpected result %q %v", got, err)
		}
	}
	if *calls != 1 {
		t.Fatalf("expected one prompt, got %d", *calls)
	}
}

func TestSourcePromptFailures(t *testing.T) {
	s, _ := fakeSource(nil, "", errNoTerminal)
	if _, err := s.Get(); !errors.Is(err, errNoTerminal) {
		t.Fatalf("expected no-terminal error, got %v", err)
	}
	s, _ = fakeSource(nil, "   ", nil)
	if _, err := s.Get(); err == nil {
		t.Fatalf("expected empty prompt to fail")
	}
}
