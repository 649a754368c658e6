package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/jacentio/tally/kv"
	"github.com/jacentio/tally/ledger"
	"github.com/jacentio/tally/schema"
)

type userAddCmd struct {
	firstName string
	lastName  string
	email     string
}

func (*userAddCmd) Name() string     { return "useradd" }
func (*userAddCmd) Synopsis() string { return "create a user" }
func (*userAddCmd) Usage() string {
	return `tally useradd -first <name> -last <name> -email <addr>

  Creates a user and prints the assigned record.
`
}

func (c *userAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.firstName, "first", "", "First name.")
	f.StringVar(&c.lastName, "last", "", "Last name.")
	f.StringVar(&c.email, "email", "", "Email address (unique).")
}

func (c *userAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	user, err := store.Users.Create(ctx, schema.UserCreate{
		FirstName: c.firstName,
		LastName:  c.lastName,
		Email:     c.email,
	})
	return emit(user, "", err)
}

type userGetCmd struct {
	id    string
	email string
}

func (*userGetCmd) Name() string     { return "userget" }
func (*userGetCmd) Synopsis() string { return "look a user up by id or email" }
func (*userGetCmd) Usage() string {
	return `tally userget [-id <ulid> | -email <addr>]

  Prints the user record, or an empty success when absent.
`
}

func (c *userGetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "User id.")
	f.StringVar(&c.email, "email", "", "Email address.")
}

func (c *userGetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.id == "") == (c.email == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -id or -email is required")
		return subcommands.ExitUsageError
	}
	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	var (
		user    *schema.User
		version kv.Version
	)
	if c.id != "" {
		user, version, err = store.Users.GetByID(ctx, c.id)
	} else {
		user, version, err = store.Users.GetByEmail(ctx, c.email)
	}
	return emit(user, version, err)
}

type userDelCmd struct {
	id      string
	protect bool
}

func (*userDelCmd) Name() string     { return "userdel" }
func (*userDelCmd) Synopsis() string { return "delete a user and cascade to its transactions" }
func (*userDelCmd) Usage() string {
	return `tally userdel -id <ulid> [-protect]

  Deletes the user and its email index, then sweeps the user's
  transactions. With -protect, refuses while transactions exist.
`
}

func (c *userDelCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "User id.")
	f.BoolVar(&c.protect, "protect", false, "Refuse deletion while transactions exist.")
}

func (c *userDelCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	err = store.Users.Delete(ctx, c.id, ledger.DeleteOptions{OrphanProtect: c.protect})
	return emit(nil, "", err)
}
