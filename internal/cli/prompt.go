package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptProxyPassword reads the proxy password from the terminal without
// echo. Fails when stdin is not a terminal; non-interactive runs must supply
// the password via flag or environment.
func promptProxyPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("proxy password required for user %s but stdin is not a terminal", user)
	}

	fmt.Fprintf(os.Stderr, "Proxy password for %s: ", user)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read proxy password: %w", err)
	}
	return string(password), nil
}
