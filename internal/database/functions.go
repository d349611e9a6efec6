package database

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func (c *DynamoDBClient) PutItem(
	ctx context.Context,
	tableName string,
	item interface{},
) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}

	_, err = c.svc.PutItem(ctx, input)
	if err != nil {
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

func (c *DynamoDBClient) GetItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	out interface{},
) error {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	}

	res, err := c.svc.GetItem(ctx, input)
	if err != nil {
		return fmt.Errorf("get item %s: %w", tableName, err)
	}
	if res.Item == nil {
		return fmt.Errorf("item not found in %s", tableName)
	}

	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

func (c *DynamoDBClient) DeleteItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	}

	_, err := c.svc.DeleteItem(ctx, input)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", tableName, err)
	}
	return nil
}

func (c *DynamoDBClient) QueryItems(
	ctx context.Context,
	tableName string,
	indexName *string,
	keyCondition string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	limit *int32,
) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(tableName),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeValues: exprAttrValues,
	}
	if indexName != nil {
		input.IndexName = indexName
	}
	if exprAttrNames != nil {
		input.ExpressionAttributeNames = exprAttrNames
	}
	if limit != nil {
		input.Limit = limit
	}

	res, err := c.svc.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", tableName, err)
	}
	return res.Items, nil
}

// CountItems runs a Select COUNT query, following pagination so the count is
// exact even past the 1MB evaluation limit.
func (c *DynamoDBClient) CountItems(
	ctx context.Context,
	tableName string,
	indexName *string,
	keyCondition string,
	exprAttrValues map[string]types.AttributeValue,
) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(tableName),
			KeyConditionExpression:    aws.String(keyCondition),
			ExpressionAttributeValues: exprAttrValues,
			Select:                    types.SelectCount,
			ExclusiveStartKey:         startKey,
		}
		if indexName != nil {
			input.IndexName = indexName
		}

		res, err := c.svc.Query(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", tableName, err)
		}

		total += int(res.Count)
		if res.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = res.LastEvaluatedKey
	}
}
