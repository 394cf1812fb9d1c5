package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"gemini-relay/internal/domain"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	deleteErr    error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	lastDelInput *dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDelInput = in
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func turnItem(role, content string) types.AttributeValue {
	return &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"role":    &types.AttributeValueMemberS{Value: role},
		"content": &types.AttributeValueMemberS{Value: content},
	}}
}

func mustNewDynamo(t *testing.T, db *fakeDynamo, maxTurns int) *Dynamo {
	t.Helper()
	d, err := NewDynamo(db, "test-table", maxTurns)
	require.NoError(t, err)
	d.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestNewDynamo_Validates(t *testing.T) {
	_, err := NewDynamo(nil, "t", 10)
	require.ErrorContains(t, err, "must not be nil")

	_, err = NewDynamo(&fakeDynamo{}, " ", 10)
	require.ErrorContains(t, err, "must not be empty")
}

func TestDynamoLoad_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "CHAT#42"},
		"SK": &types.AttributeValueMemberS{Value: skHistory},
		"turns": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			turnItem("user", "hi"),
			turnItem("assistant", "hello"),
		}},
	}}}
	d := mustNewDynamo(t, db, 10)

	turns, err := d.Load(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, []domain.Turn{user("hi"), assistant("hello")}, turns)
	require.Equal(t, "CHAT#42", db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestDynamoLoad_MissingItem(t *testing.T) {
	d := mustNewDynamo(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}, 10)
	turns, err := d.Load(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, turns)
}

func TestDynamoLoad_Errors(t *testing.T) {
	d := mustNewDynamo(t, &fakeDynamo{getErr: errors.New("ResourceNotFoundException")}, 10)
	_, err := d.Load(context.Background(), 42)
	require.ErrorContains(t, err, "Load get item")

	d = mustNewDynamo(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"turns": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"role": &types.AttributeValueMemberS{Value: "user"},
			}},
		}},
	}}}, 10)
	_, err = d.Load(context.Background(), 42)
	require.ErrorContains(t, err, "content")

	d = mustNewDynamo(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"turns": &types.AttributeValueMemberS{Value: "oops"},
	}}}, 10)
	_, err = d.Load(context.Background(), 42)
	require.ErrorContains(t, err, "not a list")
}

func TestDynamoSave_WritesTrimmedTurnsWithTTL(t *testing.T) {
	db := &fakeDynamo{}
	d := mustNewDynamo(t, db, 2)

	err := d.Save(context.Background(), 42, []domain.Turn{user("1"), assistant("1"), user("2"), assistant("2")})
	require.NoError(t, err)

	item := db.lastPutInput.Item
	require.Equal(t, "test-table", *db.lastPutInput.TableName)
	require.Equal(t, "CHAT#42", item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "42", item["chatId"].(*types.AttributeValueMemberN).Value)
	list := item["turns"].(*types.AttributeValueMemberL).Value
	require.Len(t, list, 2)
	first := list[0].(*types.AttributeValueMemberM).Value
	require.Equal(t, "2", first["content"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "2026-10-01T12:00:00Z", item["updatedAt"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "1793448000", item["ttl"].(*types.AttributeValueMemberN).Value)
}

func TestDynamoSave_Error(t *testing.T) {
	d := mustNewDynamo(t, &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}, 10)
	err := d.Save(context.Background(), 42, []domain.Turn{user("hi")})
	require.ErrorContains(t, err, "Save")
}

func TestDynamoDelete(t *testing.T) {
	db := &fakeDynamo{}
	d := mustNewDynamo(t, db, 10)
	require.NoError(t, d.Delete(context.Background(), 42))
	require.Equal(t, skHistory, db.lastDelInput.Key["SK"].(*types.AttributeValueMemberS).Value)

	d = mustNewDynamo(t, &fakeDynamo{deleteErr: errors.New("boom")}, 10)
	require.ErrorContains(t, d.Delete(context.Background(), 42), "Delete")
}

func TestChatPK(t *testing.T) {
	require.Equal(t, "CHAT#-1001234", chatPK(-1001234))
}
