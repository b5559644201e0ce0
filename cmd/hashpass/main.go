// Command hashpass reads a password from the terminal without echo and prints
// its Argon2id PHC string, for seeding accounts directly in the database.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/lingokeeper/internal/cryptox"
	"github.com/dmitrijs2005/lingokeeper/internal/server/auth"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errMismatch = errors.New("passwords do not match")

func getPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func run(prompts, out io.Writer) error {
	pw, err := getPassword(prompts, "Enter password: ")
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(pw)

	confirm, err := getPassword(prompts, "Repeat password: ")
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(confirm)

	if len(pw) == 0 {
		return errors.New("empty password")
	}
	if !bytes.Equal(pw, confirm) {
		return errMismatch
	}

	hash, err := auth.HashPassword(string(pw))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

func main() {
	if err := run(os.Stderr, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "hashpass:", err)
		os.Exit(1)
	}
}
