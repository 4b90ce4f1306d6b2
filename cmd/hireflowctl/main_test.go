package main

import (
	"bytes"
	"strings"
	"testing"

	"hireflow/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(func() (*config.Config, error) {
		return &config.Config{JWTSecret: "test-secret"}, nil
	})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestMintThenInspect(t *testing.T) {
	token, err := run(t, "token", "mint", "--name", "Grace", "--caps", "applications.manage")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("unexpected token %q", token)
	}
	out, err := run(t, "token", "inspect", token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "Grace") || !strings.Contains(out, "applications.manage") {
		t.Fatalf("claims missing from output:\n%s", out)
	}
}

func TestMintRejectsUnknownCapabilities(t *testing.T) {
	if _, err := run(t, "token", "mint", "--caps", "root"); err == nil {
		t.Fatalf("expected capability error")
	}
	if _, err := run(t, "token", "mint", "--id", "not-a-uuid"); err == nil {
		t.Fatalf("expected id error")
	}
}

func TestInspectRejectsForeignToken(t *testing.T) {
	if _, err := run(t, "token", "inspect", "a.b.c"); err == nil {
		t.Fatalf("expected rejection")
	}
}
