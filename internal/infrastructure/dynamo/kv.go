package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-push-relay/internal/domain"
)

// kvAPI is the subset of *dynamodb.Client the KV repo uses.
type kvAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// kvItem is one row of the push table.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type kvItem struct {
	Key       string `dynamodbav:"kv_key"`
	Value     string `dynamodbav:"kv_value"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

// KVRepo stores opaque values by key in a single DynamoDB table.
type KVRepo struct {
	client    kvAPI
	tableName string
	now       func() time.Time
}

func NewKVRepo(client kvAPI, tableName string) *KVRepo {
	return &KVRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *KVRepo) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	it := kvItem{Key: key, Value: string(value)}
	if ttl > 0 {
		it.ExpiresAt = r.now().Add(ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("marshal kv item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Get returns the value under key. Items past their TTL are reported as
// missing even before DynamoDB's background sweep removes them.
func (r *KVRepo) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	var it kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	if it.ExpiresAt != 0 && it.ExpiresAt <= r.now().Unix() {
		return nil, fmt.Errorf("key %q expired: %w", key, domain.ErrNotFound)
	}
	return []byte(it.Value), nil
}

func (r *KVRepo) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldKey, key),
	})
	return err
}

func (r *KVRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	return err
}
