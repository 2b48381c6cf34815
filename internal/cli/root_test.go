package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestCommandTree(t *testing.T) {
	want := []string{"migrate", "accounts create", "accounts import", "version"}
	for _, path := range want {
		cmd, _, err := Root().Find(strings.Fields(path))
		if err != nil || cmd.Name() != strings.Fields(path)[len(strings.Fields(path))-1] {
			t.Fatalf("command %q not registered: %v", path, err)
		}
	}
}

func TestVersionSkipsDatabase(t *testing.T) {
	SetVersion("1.2.3")
	var out bytes.Buffer
	root := Root()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "ticketctl 1.2.3") {
		t.Fatalf("output %q", out.String())
	}
}

func TestAccountsCreateRequiresFlags(t *testing.T) {
	if err := accountsCreateCmd.ParseFlags([]string{"--email", "a@b.c"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	err := accountsCreateCmd.ValidateRequiredFlags()
	if err == nil || !strings.Contains(err.Error(), "password") {
		t.Fatalf("expected missing password flag error, got %v", err)
	}
}
