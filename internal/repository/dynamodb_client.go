package repository

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

	"exchange-agent/internal/domain"
)

const skSession = "SESSION"

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps a DynamoDB table holding one session item per user.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// userPK returns the partition key for a user's session item.
func userPK(userID int64) string {
	return "USER#" + strconv.FormatInt(userID, 10)
}

// Get reads the session for a user. An item missing the city attribute or
// carrying an unknown schema version reads as absent, so the user re-enters
// the start flow instead of tripping over a stale record shape.
func (c *Client) Get(ctx context.Context, userID int64) (domain.Session, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skSession},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("repository: Get session: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Session{}, false, nil
	}

	version, err := intAttr(out.Item, "schemaVersion")
	if err != nil || version != domain.SessionSchemaVersion {
		return domain.Session{}, false, nil
	}
	city, err := strAttr(out.Item, "city")
	if err != nil || city == "" {
		return domain.Session{}, false, nil
	}

	sess := domain.Session{UserID: userID, City: city}
	if raw, err := strAttr(out.Item, "updatedAt"); err == nil {
		if ts, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			sess.UpdatedAt = ts
		}
	}
	return sess, true, nil
}

// Put writes or replaces the user's session item.
func (c *Client) Put(ctx context.Context, s domain.Session) error {
	if s.UserID == 0 {
		return errors.New("repository: Put: user id is required")
	}
	if strings.TrimSpace(s.City) == "" {
		return errors.New("repository: Put: city is required")
	}
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":            &types.AttributeValueMemberS{Value: userPK(s.UserID)},
			"SK":            &types.AttributeValueMemberS{Value: skSession},
			"userId":        &types.AttributeValueMemberN{Value: strconv.FormatInt(s.UserID, 10)},
			"city":          &types.AttributeValueMemberS{Value: s.City},
			"schemaVersion": &types.AttributeValueMemberN{Value: strconv.Itoa(domain.SessionSchemaVersion)},
			"updatedAt":     &types.AttributeValueMemberS{Value: updatedAt.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Put session: %w", err)
	}
	return nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
