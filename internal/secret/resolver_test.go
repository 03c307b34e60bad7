package secret

import (
	"context"
	"testing"
)

func TestEnvVarForParam(t *testing.T) {
	tests := []struct {
		name  string
		param string
		want  string
	}{
		{"full path", "/fieldjournal/whiteboard-client-secret", "WHITEBOARD_CLIENT_SECRET"},
		{"single segment", "jwt-secret", "JWT_SECRET"},
		{"no hyphens", "/fieldjournal/apikey", "APIKEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := envVarForParam(tt.param); got != tt.want {
				t.Errorf("envVarForParam(%q) = %q, want %q", tt.param, got, tt.want)
			}
		})
	}
}

func TestEnvResolver(t *testing.T) {
	t.Setenv("JWT_SECRET", "hunter2")

	r := NewEnvResolver()
	got, err := r.GetSecret(context.Background(), "/fieldjournal/jwt-secret")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("secret = %q, want hunter2", got)
	}

	if _, err := r.GetSecret(context.Background(), "/fieldjournal/missing-secret"); err == nil {
		t.Error("expected error for unset variable")
	}
}
