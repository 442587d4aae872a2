package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// isInteractive reports whether stdin is a terminal. Tests replace it.
var isInteractive = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// promptSecret is replaced in tests.
var promptSecret = func(ctx context.Context, title, description string) (string, error) {
	var value string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(description).
				EchoMode(huh.EchoModePassword).
				Value(&value).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("value is required")
					}
					return nil
				}),
		),
	).RunWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return value, nil
}

// secretOrPrompt returns value when set, otherwise prompts on a terminal.
// Without a terminal it fails with hint.
func secretOrPrompt(ctx context.Context, value, title, description, hint string) (string, error) {
	if value != "" {
		return value, nil
	}
	if !isInteractive() {
		return "", errors.New(hint)
	}
	return promptSecret(ctx, title, description)
}
