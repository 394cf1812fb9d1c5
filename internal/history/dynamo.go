package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"gemini-relay/internal/domain"
)

const (
	skHistory  = "HISTORY#"
	defaultTTL = 30 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Dynamo.
// *dynamodb.Client satisfies it.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Dynamo keeps each chat's history in a single item of a PK/SK table.
// Items expire through the table's "ttl" attribute.
type Dynamo struct {
	api       dynamodbAPI
	tableName string
	maxTurns  int
	ttl       time.Duration
	now       func() time.Time
}

func NewDynamo(api dynamodbAPI, tableName string, maxTurns int) (*Dynamo, error) {
	if api == nil {
		return nil, errors.New("history: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("history: table name must not be empty")
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Dynamo{api: api, tableName: tableName, maxTurns: maxTurns, ttl: defaultTTL, now: time.Now}, nil
}

func chatPK(chatID int64) string {
	return "CHAT#" + strconv.FormatInt(chatID, 10)
}

func (d *Dynamo) key(chatID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: chatPK(chatID)},
		"SK": &types.AttributeValueMemberS{Value: skHistory},
	}
}

func (d *Dynamo) Load(ctx context.Context, chatID int64) ([]domain.Turn, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.key(chatID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("history: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	turns, err := turnsAttr(out.Item, "turns")
	if err != nil {
		return nil, fmt.Errorf("history: Load decode turns: %w", err)
	}
	return turns, nil
}

func (d *Dynamo) Save(ctx context.Context, chatID int64, turns []domain.Turn) error {
	turns = Trim(turns, d.maxTurns)
	now := d.now().UTC()

	list := make([]types.AttributeValue, 0, len(turns))
	for _, t := range turns {
		list = append(list, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"role":    &types.AttributeValueMemberS{Value: t.Role},
			"content": &types.AttributeValueMemberS{Value: t.Content},
		}})
	}
	item := d.key(chatID)
	item["chatId"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(chatID, 10)}
	item["turns"] = &types.AttributeValueMemberL{Value: list}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(d.ttl).Unix(), 10)}

	if _, err := d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("history: Save: %w", err)
	}
	return nil
}

func (d *Dynamo) Delete(ctx context.Context, chatID int64) error {
	if _, err := d.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.key(chatID),
	}); err != nil {
		return fmt.Errorf("history: Delete: %w", err)
	}
	return nil
}

func turnsAttr(item map[string]types.AttributeValue, key string) ([]domain.Turn, error) {
	v, ok := item[key]
	if !ok {
		return nil, nil
	}
	l, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("history: attribute %q is not a list", key)
	}
	turns := make([]domain.Turn, 0, len(l.Value))
	for i, el := range l.Value {
		m, ok := el.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("history: turn %d is not a map", i)
		}
		role, err := strAttr(m.Value, "role")
		if err != nil {
			return nil, fmt.Errorf("history: turn %d: %w", i, err)
		}
		content, err := strAttr(m.Value, "content")
		if err != nil {
			return nil, fmt.Errorf("history: turn %d: %w", i, err)
		}
		turns = append(turns, domain.Turn{Role: role, Content: content})
	}
	return turns, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}
