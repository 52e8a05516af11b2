// Command admincli manages admin accounts directly against the database,
// bypassing the HTTP API. Intended for operators: creating the first admin
// of a fresh deployment, or promoting/demoting existing accounts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dstepanov2008/shopauth/internal/logging"
	"github.com/dstepanov2008/shopauth/internal/server/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  admincli create-admin -email <email> -name <name>
  admincli set-role -email <email> -admin=<true|false>

The password for create-admin is read from the terminal without echo.
Database connection comes from the usual configuration (DATABASE_DSN or
-config).
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := flags.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file (optional)")
	email := flags.String("email", "", "account email")
	name := flags.String("name", "", "account display name")
	admin := flags.Bool("admin", true, "admin flag for set-role")
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	cli, err := newAdminCLI(cfg, logging.Setup(cfg.Env, os.Stderr))
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer cli.Close()

	ctx := context.Background()

	switch command {
	case "create-admin":
		if *email == "" || *name == "" {
			usage()
		}
		err = cli.CreateAdmin(ctx, *email, *name)
	case "set-role":
		if *email == "" {
			usage()
		}
		err = cli.SetRole(ctx, *email, *admin)
	default:
		usage()
	}

	if err != nil {
		log.Fatalf("%v", err)
	}
}
