package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errPasswordMismatch = errors.New("passwords do not match")

// passwordPrompt reads secrets from in. When in is a terminal echo is
// disabled; otherwise lines are read as-is, which is what piped input and
// tests rely on.
type passwordPrompt struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

func newPasswordPrompt(in io.Reader, out io.Writer) *passwordPrompt {
	return &passwordPrompt{in: in, out: out}
}

func (p *passwordPrompt) readSecret(label string) (string, error) {
	fmt.Fprint(p.out, label)

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.in)
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimRight(p.scanner.Text(), "\r"), nil
}

// readNewPassword asks twice and requires both entries to match.
func (p *passwordPrompt) readNewPassword() (string, error) {
	first, err := p.readSecret("Password: ")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(first) == "" {
		return "", errors.New("password cannot be blank")
	}
	second, err := p.readSecret("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}
