package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("no more input")
		}
		a := answers[i]
		i++
		return []byte(a), nil
	}
}

func TestRun_PrintsVerifiableHash(t *testing.T) {
	stubPasswords(t, "s3cret", "s3cret")

	var prompt, out bytes.Buffer
	if err := run([]string{"-cost", "4"}, &prompt, &out); err != nil {
		t.Fatalf("run error: %v", err)
	}

	hash := strings.TrimSpace(out.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
	if strings.Contains(prompt.String(), "s3cret") {
		t.Fatal("password echoed to prompt output")
	}
}

func TestRun_Mismatch(t *testing.T) {
	stubPasswords(t, "a", "b")

	var prompt, out bytes.Buffer
	err := run([]string{"-cost", "4"}, &prompt, &out)
	if err == nil || !strings.Contains(err.Error(), "do not match") {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be printed on mismatch, got %q", out.String())
	}
}

func TestRun_BadCost(t *testing.T) {
	var prompt, out bytes.Buffer
	if err := run([]string{"-cost", "99"}, &prompt, &out); err == nil {
		t.Fatal("expected error for cost 99")
	}
}

func TestRun_ReadError(t *testing.T) {
	stubPasswords(t)

	var prompt, out bytes.Buffer
	if err := run([]string{"-cost", "4"}, &prompt, &out); err == nil {
		t.Fatal("expected read error")
	}
}
