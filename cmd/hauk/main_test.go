package main

import "testing"

func TestRootCommandName(t *testing.T) {
	if rootCmd.Use != "hauk" {
		t.Fatalf("expected root command name hauk, got %q", rootCmd.Use)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	for _, name := range []string{"share", "prefs"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		if cmd.Name() != name {
			t.Fatalf("expected %s command, got %q", name, cmd.Name())
		}
	}
}

func TestExitErrorCarriesCode(t *testing.T) {
	err := withExitCode(2, "server error: %s", "nope")

	exitErr, ok := err.(interface{ ExitCode() int })
	if !ok {
		t.Fatalf("expected exit code carrier, got %T", err)
	}
	if exitErr.ExitCode() != 2 {
		t.Fatalf("expected exit code 2, got %d", exitErr.ExitCode())
	}
	if err.Error() != "server error: nope" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
