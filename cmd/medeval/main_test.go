package main

import "testing"

func TestMainWiring(t *testing.T) {
	origSetVersion := setVersionInfo
	origExecute := executeCmd
	origExit := exit
	t.Cleanup(func() {
		setVersionInfo = origSetVersion
		executeCmd = origExecute
		exit = origExit
	})

	calls := struct {
		version bool
		exec    bool
		exit    bool
	}{}

	setVersionInfo = func(v, c, d string) {
		calls.version = true
		if v == "" || c == "" || d == "" {
			t.Fatalf("expected version info to be set")
		}
	}
	executeCmd = func() int {
		calls.exec = true
		return 3
	}
	exit = func(code int) {
		calls.exit = true
		if code != 3 {
			t.Fatalf("expected exit code 3 from executeCmd, got %d", code)
		}
	}

	main()

	if !calls.version || !calls.exec || !calls.exit {
		t.Fatalf("expected all wiring calls, got %+v", calls)
	}
}
