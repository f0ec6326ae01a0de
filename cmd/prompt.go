package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers from the command's input. One reader is shared by all
// prompts so that buffered input is not lost between them.
type prompter struct {
	cmd    *cobra.Command
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd, reader: bufio.NewReader(cmd.InOrStdin())}
}

// input prompts the user for input and returns the trimmed string.
func (p *prompter) input(prompt string) (string, error) {
	p.cmd.Print(prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// password prompts for a secret without echoing it when input is a terminal.
func (p *prompter) password(prompt string) (string, error) {
	f, ok := p.cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.input(prompt)
	}
	p.cmd.Print(prompt)
	secret, err := term.ReadPassword(int(f.Fd()))
	p.cmd.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// validateCredentials checks that the email and password are not empty.
func validateCredentials(email, password string) bool {
	return email != "" && password != ""
}
