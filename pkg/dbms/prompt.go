package dbms

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mikeqfu/datakit/pkg/errors"
)

// ConfirmFunc is asked before destructive operations. Returning false
// cancels the operation without error.
type ConfirmFunc func(prompt string) bool

// PasswordFunc supplies a password when the connection profile carries
// none.
type PasswordFunc func(prompt string) (string, error)

// ConfirmAll approves every confirmation prompt. Useful for scripted
// runs.
func ConfirmAll(string) bool { return true }

// DenyAll declines every confirmation prompt.
func DenyAll(string) bool { return false }

// StaticPassword returns the given password without prompting.
func StaticPassword(password string) PasswordFunc {
	return func(string) (string, error) { return password, nil }
}

// TerminalConfirm prompts on stdout and reads a yes/no answer from
// stdin. Anything other than "y" or "yes" declines.
func TerminalConfirm() ConfirmFunc {
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string) bool {
		fmt.Printf("%s [y/N]: ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

// TerminalPassword reads a password from the terminal without echo.
func TerminalPassword() PasswordFunc {
	return func(prompt string) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", errors.New(errors.ErrorTypeConfig,
				"password required but stdin is not a terminal")
		}

		fmt.Fprint(os.Stderr, prompt)
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to read password")
		}
		return string(password), nil
	}
}
