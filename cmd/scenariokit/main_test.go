package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/GoCodeAlone/scenariokit/cmd/scenariokit/cmd"
)

func TestMainVersionFlag(t *testing.T) {
	originalArgs := os.Args
	originalExit := cmd.OsExit
	defer func() {
		os.Args = originalArgs
		cmd.OsExit = originalExit
	}()

	exitCode := -1
	cmd.OsExit = func(code int) { exitCode = code }

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	os.Args = []string{"scenariokit", "--version"}
	main()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)

	if exitCode != -1 {
		t.Errorf("unexpected exit with code %d", exitCode)
	}
	if !bytes.Contains(buf.Bytes(), []byte(cmd.PrintVersion())) {
		t.Errorf("version output missing, got %q", buf.String())
	}
}

func TestMainExitsOnError(t *testing.T) {
	originalArgs := os.Args
	originalExit := cmd.OsExit
	oldStderr := os.Stderr
	defer func() {
		os.Args = originalArgs
		cmd.OsExit = originalExit
		os.Stderr = oldStderr
	}()

	exitCode := -1
	cmd.OsExit = func(code int) { exitCode = code }
	os.Stderr, _ = os.OpenFile(os.DevNull, os.O_WRONLY, 0)

	os.Args = []string{"scenariokit", "render"}
	main()

	if exitCode != 1 {
		t.Errorf("expected exit code 1, got %d", exitCode)
	}
}
