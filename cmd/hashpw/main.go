// Command hashpw reads a password from the terminal without echo and prints
// its bcrypt hash, for seeding users by hand.
//
// Usage:
//
//	hashpw [-cost 12]
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	if err := run(os.Args[1:], os.Stderr, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
}

func run(args []string, prompt, out io.Writer) error {
	fs := flag.NewFlagSet("hashpw", flag.ContinueOnError)
	fs.SetOutput(prompt)
	cost := fs.Int("cost", auth.DefaultBcryptCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hasher, err := auth.NewBcryptHasher(*cost)
	if err != nil {
		return err
	}

	pw, err := getPassword(prompt, "Enter password: ")
	if err != nil {
		return err
	}
	defer wipe(pw)

	confirm, err := getPassword(prompt, "Repeat password: ")
	if err != nil {
		return err
	}
	defer wipe(confirm)

	if !bytes.Equal(pw, confirm) {
		return errors.New("passwords do not match")
	}

	hash, err := hasher.Hash(string(pw))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, hash)
	return err
}

// getPassword prints label to w and reads a password from stdin without echo.
func getPassword(w io.Writer, label string) ([]byte, error) {
	if _, err := fmt.Fprint(w, label); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
