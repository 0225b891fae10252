package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"branchpos/internal/adapters/cli"
	"branchpos/internal/app"
	"branchpos/internal/core"
)

var errExit = errors.New("exit")

// Run starts the interactive operator shell for session. Every slash command except
// /checkout and /exit is handed to the one-shot CLI dispatcher; /checkout runs the
// POS checkout wizard. Run returns when the reader is exhausted or on /exit.
func Run(ctx context.Context, svc app.ApplicationService, session *app.UserSession, reader *bufio.Reader, out io.Writer) {
	p := session.Principal()

	fmt.Fprintln(out, "Branch POS operator shell")
	fmt.Fprintf(out, "Signed in as %s (%s)\n", session.Name, session.Role)
	fmt.Fprintln(out, "Type /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	dispatch := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}

		switch strings.ToLower(tokens[0]) {
		case "help", "h":
			fmt.Fprintln(out, cli.Usage())
			fmt.Fprintln(out, "  checkout [branch-id]             POS checkout wizard")
			fmt.Fprintln(out, "  exit                             leave the shell")
			return nil
		case "exit", "quit", "q":
			return errExit
		case "checkout", "pos":
			return handleCheckout(ctx, reader, out, svc, p, tokens[1:])
		}
		return cli.Run(ctx, svc, p, tokens, out)
	}

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if !strings.HasPrefix(input, "/") {
				fmt.Fprintln(out, "Commands start with '/'. Type /help for the list.")
			} else if dErr := dispatch(input); dErr != nil {
				if errors.Is(dErr, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return
				}
				printError(out, dErr)
			}
		}
		if err != nil {
			return
		}
	}
}

func printError(out io.Writer, err error) {
	var stockErr *core.InsufficientStockError
	var valErr *core.ValidationError
	switch {
	case errors.As(err, &stockErr):
		fmt.Fprintf(out, "Insufficient stock for %s: available %s, requested %s (short %s).\n",
			stockErr.ProductName, stockErr.Available, stockErr.Requested, stockErr.Shortage)
	case errors.As(err, &valErr):
		fmt.Fprintln(out, "Validation error:")
		for field, msgs := range valErr.Errors {
			for _, m := range msgs {
				fmt.Fprintf(out, "  %s: %s\n", field, m)
			}
		}
	case errors.Is(err, core.ErrForbidden):
		fmt.Fprintln(out, "Not permitted for your role or branch.")
	default:
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}
