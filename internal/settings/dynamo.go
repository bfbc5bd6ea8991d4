package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key layout.
const (
	pkPrefix        = "USER#"
	skGlobal        = "GLOBAL"
	skAdAccountPref = "ADACCOUNT#"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore implements Store on a single DynamoDB table keyed by PK/SK.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

// Compile-time interface check.
var _ Store = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func userPK(userID string) string { return pkPrefix + userID }

func accountSK(adAccountID string) string { return skAdAccountPref + adAccountID }

// AccountSettings returns the user's global settings overlaid with the
// account-specific record.
func (s *DynamoStore) AccountSettings(ctx context.Context, userID, adAccountID string) (AccountSettings, error) {
	if userID == "" {
		return AccountSettings{}, nil
	}

	var global, account AccountSettings
	if _, err := s.getItem(ctx, userPK(userID), skGlobal, &global); err != nil {
		return AccountSettings{}, err
	}
	if adAccountID != "" {
		if _, err := s.getItem(ctx, userPK(userID), accountSK(adAccountID), &account); err != nil {
			return AccountSettings{}, err
		}
	}

	merged := Merge(global, account)
	log.Debug().
		Str("userId", userID).
		Str("adAccountId", adAccountID).
		Int("enhancements", len(merged.Enhancements)).
		Int("defaultUtms", len(merged.DefaultUTMs)).
		Msg("Loaded account settings")
	return merged, nil
}

// PutGlobal replaces the user's global settings.
func (s *DynamoStore) PutGlobal(ctx context.Context, userID string, settings AccountSettings) error {
	settings.UpdatedAt = time.Now().UnixMilli()
	return s.putItem(ctx, userPK(userID), skGlobal, settings)
}

// PutAccount replaces the user's settings for one ad account.
func (s *DynamoStore) PutAccount(ctx context.Context, userID, adAccountID string, settings AccountSettings) error {
	settings.UpdatedAt = time.Now().UnixMilli()
	return s.putItem(ctx, userPK(userID), accountSK(adAccountID), settings)
}

func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data any) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem returns false when the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out any) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}
