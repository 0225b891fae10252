// app is the operator console. With arguments it runs one command and exits;
// without, it starts the interactive shell.
//
// Credentials come from BRANCHPOS_EMAIL and BRANCHPOS_PASSWORD; every command runs
// with that user's role and branch scope.
//
// Usage: go run ./cmd/app low-stock 2
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"branchpos/internal/adapters/cli"
	"branchpos/internal/adapters/repl"
	"branchpos/internal/app"
	"branchpos/internal/core"
	"branchpos/internal/db"
	"branchpos/internal/logging"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	log, err := logging.New("warn", os.Getenv("LOG_FORMAT"), os.Stderr)
	if err != nil {
		log = logging.Discard()
		log.SetOutput(os.Stderr)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	services := app.NewCoreServices(pool, core.PostingOptions{
		LockTimeout: 5 * time.Second,
		Business:    core.BusinessInfo{Name: os.Getenv("BUSINESS_NAME")},
		Now:         time.Now,
	})
	svc := app.NewAppService(services, nil, log)

	session, err := svc.AuthenticateUser(ctx, app.LoginRequest{
		Email:    os.Getenv("BRANCHPOS_EMAIL"),
		Password: os.Getenv("BRANCHPOS_PASSWORD"),
	})
	if err != nil {
		log.Fatalf("Sign-in failed (set BRANCHPOS_EMAIL and BRANCHPOS_PASSWORD): %v", err)
	}

	if len(os.Args) > 1 {
		if err := cli.Run(ctx, svc, session.Principal(), os.Args[1:], os.Stdout); err != nil {
			if errors.Is(err, cli.ErrUsage) {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			log.Fatalf("%v", err)
		}
		return
	}

	repl.Run(ctx, svc, session, bufio.NewReader(os.Stdin), os.Stdout)
}
