package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"chimestock/config"
)

// promptMissingCredentials fills in the SMTP sender and password
// interactively when the config file omits them.
//
// The sender is read as a plain line; the password with hidden input.
// An empty sender after prompting is an error - there is no sensible
// default for the account the mail is sent from.
func promptMissingCredentials(smtp *config.SMTPConfig) error {
	reader := bufio.NewReader(os.Stdin)

	if smtp.Sender == "" {
		fmt.Print("Enter sender email address: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read sender address: %w", err)
		}
		smtp.Sender = strings.TrimSpace(line)
		if smtp.Sender == "" {
			return errors.New("sender address cannot be empty")
		}
	}

	if smtp.Password == "" {
		fmt.Print("Enter email account password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // newline after hidden input
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		smtp.Password = string(passwordBytes)
	}

	return nil
}
