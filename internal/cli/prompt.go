package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/procmod/internal/core"
)

var errNoSession = errors.New("session not initialized")

func requireSession() error {
	if Session == nil {
		return errNoSession
	}
	return nil
}

// confirmPrompt returns a core.Confirm that asks on the command's input.
// --yes skips the question.
func confirmPrompt(cmd *cobra.Command, question string) core.Confirm {
	return func() bool {
		if assumeYes {
			return true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

// commandContext returns a context cancelled on Ctrl-C.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

// parseNr converts a 1-based activity number to an editor index.
func parseNr(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid activity number %q", s)
	}
	return n - 1, nil
}

// cancelledHint turns a declined confirmation into a quiet message.
func cancelledHint(cmd *cobra.Command, err error) error {
	if errors.Is(err, core.ErrConfirmationRequired) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	return err
}
