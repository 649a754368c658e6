package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/jacentio/tally/schema"
)

type txAddCmd struct {
	userID   string
	date     string
	amount   string
	currency string
	comment  string
}

func (*txAddCmd) Name() string     { return "txadd" }
func (*txAddCmd) Synopsis() string { return "create a transaction under a user" }
func (*txAddCmd) Usage() string {
	return `tally txadd -user <ulid> -date <YYYY-MM-DD> -amount <decimal> -currency <code> [-comment <text>]

  Creates a transaction and prints the assigned record. Negative amounts
  are outflows.
`
}

func (c *txAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "Owning user id.")
	f.StringVar(&c.date, "date", "", "Calendar date.")
	f.StringVar(&c.amount, "amount", "0", "Signed decimal amount.")
	f.StringVar(&c.currency, "currency", "", "ISO-4217 currency code.")
	f.StringVar(&c.comment, "comment", "", "Optional comment.")
}

func (c *txAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -amount: %v\n", err)
		return subcommands.ExitUsageError
	}
	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	txn, err := store.Transactions.Create(ctx, c.userID, schema.TransactionCreate{
		Date:     c.date,
		Amount:   amount,
		Currency: c.currency,
		Comment:  c.comment,
	})
	return emit(txn, "", err)
}

type txGetCmd struct {
	userID string
	id     string
}

func (*txGetCmd) Name() string     { return "txget" }
func (*txGetCmd) Synopsis() string { return "look a transaction up by id" }
func (*txGetCmd) Usage() string {
	return `tally txget -user <ulid> -id <ulid>

  Prints the transaction record, or an empty success when absent.
`
}

func (c *txGetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "Owning user id.")
	f.StringVar(&c.id, "id", "", "Transaction id.")
}

func (c *txGetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	txn, version, err := store.Transactions.GetByID(ctx, c.userID, c.id)
	return emit(txn, version, err)
}

type txListCmd struct {
	userID string
	date   string
	start  string
	end    string
}

func (*txListCmd) Name() string     { return "txls" }
func (*txListCmd) Synopsis() string { return "list a user's transactions" }
func (*txListCmd) Usage() string {
	return `tally txls -user <ulid> [-date <YYYY-MM-DD> | -start <YYYY-MM-DD> -end <YYYY-MM-DD>]

  Lists transactions: all of them, one date, or a [start, end) range.
`
}

func (c *txListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "Owning user id.")
	f.StringVar(&c.date, "date", "", "Single calendar date.")
	f.StringVar(&c.start, "start", "", "Range start (inclusive).")
	f.StringVar(&c.end, "end", "", "Range end (exclusive).")
}

func (c *txListCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.date != "" && (c.start != "" || c.end != "") {
		fmt.Fprintln(os.Stderr, "-date and -start/-end cannot be combined")
		return subcommands.ExitUsageError
	}
	if (c.start == "") != (c.end == "") {
		fmt.Fprintln(os.Stderr, "-start and -end must be given together")
		return subcommands.ExitUsageError
	}
	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	var txns []schema.Transaction
	switch {
	case c.date != "":
		txns, err = store.Transactions.GetByDate(ctx, c.userID, c.date)
	case c.start != "":
		txns, err = store.Transactions.GetByDateRange(ctx, c.userID, c.start, c.end)
	default:
		txns, err = store.Transactions.GetAll(ctx, c.userID)
	}
	return emit(txns, "", err)
}

type txDelCmd struct {
	userID string
	id     string
}

func (*txDelCmd) Name() string     { return "txrm" }
func (*txDelCmd) Synopsis() string { return "delete a transaction" }
func (*txDelCmd) Usage() string {
	return `tally txrm -user <ulid> -id <ulid>

  Deletes the transaction and its date-index copy. Deleting an absent
  transaction is a no-op.
`
}

func (c *txDelCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "Owning user id.")
	f.StringVar(&c.id, "id", "", "Transaction id.")
}

func (c *txDelCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := openStore(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	err = store.Transactions.Delete(ctx, c.userID, c.id)
	return emit(nil, "", err)
}
