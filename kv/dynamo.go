package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Dynamo is the DynamoDB implementation of Engine. Records live in a
// single table keyed by (pk, sk), with the record body in a binary doc
// attribute and a numeric version attribute acting as the CAS token.
type Dynamo struct {
	client *dynamodb.Client
	table  string
}

// NewDynamo creates an engine over the given table.
func NewDynamo(client *dynamodb.Client, table string) *Dynamo {
	return &Dynamo{client: client, table: table}
}

// item is the wire shape of a stored record.
type item struct {
	PK      string `dynamodbav:"pk"`
	SK      string `dynamodbav:"sk"`
	Version int64  `dynamodbav:"version"`
	Doc     []byte `dynamodbav:"doc"`
}

func keyAttrs(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key.PK},
		"sk": &types.AttributeValueMemberS{Value: key.SK},
	}
}

// newVersion mints a version value for a write. Tokens only need to
// differ from every earlier token of the same record; wall-clock
// nanoseconds satisfy that.
func newVersion() int64 {
	return time.Now().UnixNano()
}

func (d *Dynamo) Get(ctx context.Context, key Key) (*Entry, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            keyAttrs(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("kv: unmarshal %s: %w", key, err)
	}
	return &Entry{
		Key:     key,
		Version: Version(strconv.FormatInt(it.Version, 10)),
		Doc:     it.Doc,
	}, nil
}

func (d *Dynamo) List(ctx context.Context, rng Range) ([]Entry, error) {
	keyCond := "pk = :pk"
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: rng.PK},
	}
	switch {
	case rng.Prefix != "":
		keyCond = "pk = :pk AND begins_with(sk, :prefix)"
		values[":prefix"] = &types.AttributeValueMemberS{Value: rng.Prefix}
	case rng.Lo != "" || rng.Hi != "":
		// BETWEEN is inclusive of :hi, but Range.Hi is a boundary no
		// stored sort key may equal, so the scan stays half-open.
		keyCond = "pk = :pk AND sk BETWEEN :lo AND :hi"
		values[":lo"] = &types.AttributeValueMemberS{Value: rng.Lo}
		values[":hi"] = &types.AttributeValueMemberS{Value: rng.Hi}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.table),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
	}
	if rng.Limit > 0 {
		input.Limit = aws.Int32(int32(rng.Limit))
	}

	var entries []Entry
	paginator := dynamodb.NewQueryPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("kv: list %s: %w", rng.PK, err)
		}
		for _, raw := range page.Items {
			var it item
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, fmt.Errorf("kv: unmarshal scan item: %w", err)
			}
			entries = append(entries, Entry{
				Key:     Key{PK: it.PK, SK: it.SK},
				Version: Version(strconv.FormatInt(it.Version, 10)),
				Doc:     it.Doc,
			})
			if rng.Limit > 0 && len(entries) >= rng.Limit {
				return entries, nil
			}
		}
	}
	return entries, nil
}

// Commit translates the batch into one TransactWriteItems call. A check
// whose key is also written folds into that write's condition expression
// (DynamoDB rejects two transact items on the same key); remaining checks
// become standalone ConditionCheck items.
func (d *Dynamo) Commit(ctx context.Context, b *Batch) error {
	if b.err != nil {
		return b.err
	}

	type condition struct {
		expr   string
		names  map[string]string
		values map[string]types.AttributeValue
	}
	conditionFor := func(c batchCheck) condition {
		if c.absent {
			return condition{expr: "attribute_not_exists(pk)"}
		}
		v, _ := strconv.ParseInt(string(c.version), 10, 64)
		return condition{
			expr:  "#version = :expected_version",
			names: map[string]string{"#version": "version"},
			values: map[string]types.AttributeValue{
				":expected_version": &types.AttributeValueMemberN{
					Value: strconv.FormatInt(v, 10),
				},
			},
		}
	}

	consumed := make([]bool, len(b.checks))
	checkFor := func(key Key) int {
		for i, c := range b.checks {
			if !consumed[i] && c.key == key {
				consumed[i] = true
				return i
			}
		}
		return -1
	}

	var items []types.TransactWriteItem
	var checkIndex []int // per transact item, index of its check or -1

	for _, op := range b.ops {
		ci := checkFor(op.key)
		var cond *condition
		if ci >= 0 {
			c := conditionFor(b.checks[ci])
			cond = &c
		}

		if op.delete {
			del := &types.Delete{
				TableName: aws.String(d.table),
				Key:       keyAttrs(op.key),
			}
			if cond != nil {
				del.ConditionExpression = aws.String(cond.expr)
				del.ExpressionAttributeNames = cond.names
				del.ExpressionAttributeValues = cond.values
			}
			items = append(items, types.TransactWriteItem{Delete: del})
		} else {
			raw, err := attributevalue.MarshalMap(item{
				PK:      op.key.PK,
				SK:      op.key.SK,
				Version: newVersion(),
				Doc:     op.doc,
			})
			if err != nil {
				return fmt.Errorf("kv: marshal item for %s: %w", op.key, err)
			}
			put := &types.Put{
				TableName: aws.String(d.table),
				Item:      raw,
			}
			if cond != nil {
				put.ConditionExpression = aws.String(cond.expr)
				put.ExpressionAttributeNames = cond.names
				put.ExpressionAttributeValues = cond.values
			}
			items = append(items, types.TransactWriteItem{Put: put})
		}
		checkIndex = append(checkIndex, ci)
	}

	for i, c := range b.checks {
		if consumed[i] {
			continue
		}
		cond := conditionFor(c)
		check := &types.ConditionCheck{
			TableName:                 aws.String(d.table),
			Key:                       keyAttrs(c.key),
			ConditionExpression:       aws.String(cond.expr),
			ExpressionAttributeNames:  cond.names,
			ExpressionAttributeValues: cond.values,
		}
		items = append(items, types.TransactWriteItem{ConditionCheck: check})
		checkIndex = append(checkIndex, i)
	}

	_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapTransactionError(err, checkIndex)
}

// mapTransactionError maps a DynamoDB transaction cancellation onto the
// batch check that caused it. TransactionConflict reasons (a concurrent
// transaction touched the same key) are reported the same way so callers
// retry them like any other lost race.
func mapTransactionError(err error, checkIndex []int) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed", "TransactionConflict":
				idx := -1
				if i < len(checkIndex) {
					idx = checkIndex[i]
				}
				return &CheckError{Index: idx}
			}
		}
	}

	return fmt.Errorf("kv: commit: %w", err)
}
