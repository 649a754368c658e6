// Command tally is a maintenance CLI for the record store. It owns the
// engine lifecycle: the DynamoDB client is built once at startup and
// injected into the stores each command uses.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"github.com/jacentio/tally/kv"
	"github.com/jacentio/tally/ledger"
)

var (
	tableName = flag.String("table", envOr("TALLY_TABLE", "tally_records"), "DynamoDB table holding the records")
	endpoint  = flag.String("endpoint", os.Getenv("TALLY_DYNAMO_ENDPOINT"), "DynamoDB endpoint override (e.g. a local instance)")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openStore builds the engine and the record stores. Called once per
// command execution, after flags are parsed.
func openStore(ctx context.Context) (*ledger.Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if *endpoint != "" {
			o.BaseEndpoint = aws.String(*endpoint)
		}
	})
	engine := kv.NewDynamo(client, *tableName)
	return ledger.New(engine, ledger.DefaultConfig()), nil
}

// emit prints the operation outcome as the uniform result envelope.
func emit(value any, version kv.Version, err error) subcommands.ExitStatus {
	res := ledger.Capture(value, version, err)
	out, merr := json.MarshalIndent(res, "", "  ")
	if merr != nil {
		fmt.Fprintln(os.Stderr, merr)
		return subcommands.ExitFailure
	}
	fmt.Println(string(out))
	if !res.OK {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func main() {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")

	subcommands.Register(&userAddCmd{}, "users")
	subcommands.Register(&userGetCmd{}, "users")
	subcommands.Register(&userDelCmd{}, "users")

	subcommands.Register(&txAddCmd{}, "transactions")
	subcommands.Register(&txGetCmd{}, "transactions")
	subcommands.Register(&txListCmd{}, "transactions")
	subcommands.Register(&txDelCmd{}, "transactions")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
