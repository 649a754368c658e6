// Package stream provides a DynamoDB Streams handler that finishes
// cascade deletes.
package stream

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/tally/internal/keyspace"
	"github.com/jacentio/tally/kv"
	"github.com/jacentio/tally/ledger"
)

// Handler sweeps the transactions of removed users. Users.Delete cascades
// synchronously; this handler is the safety net for a process that died
// between committing the user delete and finishing the sweep.
type Handler struct {
	transactions *ledger.Transactions
	logger       *slog.Logger
}

// NewHandler creates a stream handler over the given transaction store.
func NewHandler(transactions *ledger.Transactions, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		transactions: transactions,
		logger:       logger,
	}
}

// HandleUserRemoved processes stream events, sweeping the owner's
// transactions whenever a user primary record is removed. Designed to be
// used as an AWS Lambda handler; sweeps are idempotent, so retries and
// replays are safe.
func (h *Handler) HandleUserRemoved(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // will retry, eventually DLQ
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}

	key := kv.Key{
		PK: getStringAttr(record.Change.Keys, "pk"),
		SK: getStringAttr(record.Change.Keys, "sk"),
	}
	kind, args, ok := keyspace.Classify(key)
	if !ok || kind != keyspace.UserPrimary {
		return nil
	}

	removed, err := h.transactions.Sweep(ctx, args.UserID)
	if err != nil {
		return err
	}
	if removed > 0 {
		h.logger.Info("swept orphaned transactions",
			"userID", args.UserID,
			"removed", removed,
		)
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
