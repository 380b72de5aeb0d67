package credential

import (
	"errors"
	"strings"
	"testing"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestResolve(t *testing.T) {
	env := envMap(map[string]string{
		EnvUsername: "env@example.com",
		EnvPassword: "env-secret",
	})

	tests := []struct {
		name     string
		user     string
		pass     string
		lookup   LookupFunc
		wantUser string
		wantPass string
		wantErr  bool
	}{
		{"explicit wins", "me@example.com", "pw", env, "me@example.com", "pw", false},
		{"env fallback", "", "", env, "env@example.com", "env-secret", false},
		{"per field fallback", "me@example.com", "", env, "me@example.com", "env-secret", false},
		{"nothing set", "", "", envMap(nil), "", "", true},
		{"password missing", "me@example.com", "", envMap(nil), "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.user, tt.pass, tt.lookup)
			if tt.wantErr {
				if !errors.Is(err, ErrCredentialsMissing) {
					t.Fatalf("error = %v, want ErrCredentialsMissing", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.Username != tt.wantUser || got.Password != tt.wantPass {
				t.Errorf("Resolve() = %+v", got)
			}
		})
	}
}

func TestResolve_ErrorNamesField(t *testing.T) {
	_, err := Resolve("me@example.com", "", envMap(nil))
	if err == nil || !strings.Contains(err.Error(), "Password") {
		t.Errorf("error = %v, want mention of Password", err)
	}
}

func TestCredentials_String(t *testing.T) {
	c := Credentials{Username: "me@example.com", Password: "hunter2"}
	if s := c.String(); strings.Contains(s, "hunter2") {
		t.Errorf("String() leaks password: %q", s)
	}
}
