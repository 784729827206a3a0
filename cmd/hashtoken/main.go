package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minTokenLength = 8

func main() {
	token, err := readToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		os.Exit(1)
	}

	if len(token) < minTokenLength {
		fmt.Fprintf(os.Stderr, "Error: token must be at least %d characters\n", minTokenLength)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword(token, bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Set this as ACCESS_TOKEN_HASH:")
	fmt.Println(string(hash))
}

// readToken prompts interactively on a terminal, with confirmation;
// when stdin is a pipe it reads a single line instead so the tool works
// in scripts.
func readToken() ([]byte, error) {
	if !term.IsTerminal(syscall.Stdin) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	fmt.Print("Access token: ")
	token, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return nil, err
	}

	fmt.Print("Confirm token: ")
	confirm, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(token, confirm) {
		return nil, fmt.Errorf("tokens do not match")
	}
	return token, nil
}
