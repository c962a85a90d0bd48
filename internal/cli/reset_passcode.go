package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terraincognita07/shrine/internal/models"
	"github.com/terraincognita07/shrine/internal/security"
)

const (
	defaultPasscodeLength = 8
	minPasscodeLength     = 6
)

type PasscodeSetter interface {
	SetUserPasscode(ctx context.Context, passcode string) (models.AppConfig, error)
}

type ResetPasscodeOptions struct {
	Length int
	// Prompt reads the new passcode from Stdin instead of generating one.
	Prompt bool
	Stdin  *os.File
	Out    io.Writer
}

// RunResetPasscodeCommand stores a new shared villager passcode and prints it.
func RunResetPasscodeCommand(ctx context.Context, admin PasscodeSetter, options ResetPasscodeOptions) error {
	out := options.Out
	if out == nil {
		out = os.Stdout
	}

	passcode, err := nextPasscode(options, out)
	if err != nil {
		return err
	}

	if _, err := admin.SetUserPasscode(ctx, passcode); err != nil {
		return fmt.Errorf("store passcode: %w", err)
	}

	fmt.Fprintln(out, "✅ Shared passcode rotated")
	if !options.Prompt {
		fmt.Fprintf(out, "New passcode: %s\n", passcode)
	}
	fmt.Fprintln(out, "Villagers need the new passcode from their next visit.")
	return nil
}

func nextPasscode(options ResetPasscodeOptions, out io.Writer) (string, error) {
	if !options.Prompt {
		passcode, err := generatePasscode(options.Length)
		if err != nil {
			return "", fmt.Errorf("generate passcode: %w", err)
		}
		return passcode, nil
	}

	stdin := options.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	fmt.Fprint(out, "New passcode: ")
	passcode, err := readPasscodeNoEcho(stdin)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read passcode: %w", err)
	}

	passcode = strings.TrimSpace(passcode)
	if passcode == "" {
		return "", errors.New("passcode is required")
	}
	return passcode, nil
}

func generatePasscode(length int) (string, error) {
	if length <= 0 {
		length = defaultPasscodeLength
	}
	if length < minPasscodeLength {
		length = minPasscodeLength
	}
	return security.RandomString(length, security.PasscodeAlphabet)
}
