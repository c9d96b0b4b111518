// Package dynamodb is the production backend for store.Gateway: it talks
// to a real DynamoDB table using the AWS SDK v2, with an optional
// endpoint override for local development against DynamoDB Local.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

// Config carries the environment-tunable pieces of connecting to DynamoDB.
// Endpoint is set for local development against DynamoDB Local; it is left
// empty in production so the SDK resolves the real regional endpoint.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Gateway implements store.Gateway against a single DynamoDB account. Table
// names are passed per-call (TOKEN_REGISTRY, TOKEN_REGISTRY_ARCHIVE) so one
// Gateway instance serves both the live table and, if ever pointed at it,
// an archive table of the same item shape.
type Gateway struct {
	client *dynamodb.Client
}

// New connects to DynamoDB using cfg. Endpoint, when set, overrides the
// SDK's regional endpoint resolution for local development.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *dynamodb.Client
	if cfg.Endpoint != "" {
		client = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	} else {
		client = dynamodb.NewFromConfig(awsCfg)
	}

	return &Gateway{client: client}, nil
}

// item is the DynamoDB attribute-value shape of domain.Transaction. State is
// stored as a plain string attribute (absent entirely on non-hold rows) so
// the refId-state index stays sparse, covering only HOLD rows.
type item struct {
	ID                      string `dynamodbav:"id"`
	UserID                  string `dynamodbav:"userId"`
	BeneficiaryID           string `dynamodbav:"beneficiaryId"`
	TransactionType         string `dynamodbav:"transactionType"`
	Amount                  int64  `dynamodbav:"amount"`
	Purpose                 string `dynamodbav:"purpose"`
	RefID                   string `dynamodbav:"refId"`
	ExpiresAt               string `dynamodbav:"expiresAt"`
	CreatedAt               string `dynamodbav:"createdAt"`
	Metadata                string `dynamodbav:"metadata"`
	Version                 int64  `dynamodbav:"version"`
	State                   string `dynamodbav:"state,omitempty"`
	FreeBeneficiaryConsumed int64  `dynamodbav:"freeBeneficiaryConsumed"`
	FreeSystemConsumed      int64  `dynamodbav:"freeSystemConsumed"`
	// ExpiryShard is set only on HOLD rows, projecting a constant partition
	// key so the expiry sweeper can query every open hold ordered by
	// expiresAt without iterating per user. Its absence on every other row
	// keeps IndexByExpiryShard sparse.
	ExpiryShard string `dynamodbav:"expiryShard,omitempty"`
}

func toItem(t *domain.Transaction) item {
	it := item{
		ID:                      t.ID,
		UserID:                  t.UserID,
		BeneficiaryID:           t.BeneficiaryID,
		TransactionType:         string(t.TransactionType),
		Amount:                  t.Amount,
		Purpose:                 t.Purpose,
		RefID:                   t.RefID,
		ExpiresAt:               t.ExpiresAt.UTC().Format(rfc3339Milli),
		CreatedAt:               t.CreatedAt.UTC().Format(rfc3339Milli),
		Metadata:                t.Metadata,
		Version:                 t.Version,
		FreeBeneficiaryConsumed: t.FreeBeneficiaryConsumed,
		FreeSystemConsumed:      t.FreeSystemConsumed,
	}
	if t.State != nil {
		it.State = string(*t.State)
	}
	if t.TransactionType == domain.TransactionTypeHold {
		it.ExpiryShard = domain.ExpiryShardHold
	}
	return it
}

func (g *Gateway) Put(ctx context.Context, table string, t *domain.Transaction) error {
	av, err := attributevalue.MarshalMap(toItem(t))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = g.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      av,
	})
	return err
}

func (g *Gateway) Get(ctx context.Context, table, id string) (*domain.Transaction, error) {
	out, err := g.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, store.ErrNotFound
	}
	return fromAttributeMap(out.Item)
}

func (g *Gateway) Query(ctx context.Context, table, keyCondExpr string, values map[string]any, opts store.QueryOptions) ([]*domain.Transaction, error) {
	keyCond, err := buildKeyCondition(keyCondExpr, values)
	if err != nil {
		return nil, err
	}
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if opts.FilterExpr != "" {
		filter, err := buildFilterCondition(opts.FilterExpr, opts.FilterValues)
		if err != nil {
			return nil, err
		}
		builder = builder.WithFilter(filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(opts.ScanForward),
	}
	if opts.Index != "" {
		input.IndexName = aws.String(opts.Index)
	}
	if opts.Limit > 0 {
		input.Limit = aws.Int32(int32(opts.Limit))
	}

	out, err := g.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}

	results := make([]*domain.Transaction, 0, len(out.Items))
	for _, raw := range out.Items {
		tx, err := fromAttributeMap(raw)
		if err != nil {
			return nil, err
		}
		results = append(results, tx)
	}
	return results, nil
}

func (g *Gateway) UpdateConditional(ctx context.Context, table, id string, updates map[string]any, conditionExpr string, values map[string]any) error {
	update := expression.UpdateBuilder{}
	for k, v := range updates {
		update = update.Set(expression.Name(k), expression.Value(formatUpdateValue(k, v)))
	}
	cond, err := buildFilterCondition(conditionExpr, values)
	if err != nil {
		return err
	}
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build update expression: %w", err)
	}

	_, err = g.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return store.ErrConditionalCheckFailed
		}
		return err
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, table, id string) error {
	_, err := g.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	return err
}

func (g *Gateway) Scan(ctx context.Context, table string, opts store.ScanOptions) (store.ScanPage, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(table)}
	if opts.Limit > 0 {
		input.Limit = aws.Int32(int32(opts.Limit))
	}
	if opts.LastKey != "" {
		input.ExclusiveStartKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: opts.LastKey}}
	}

	out, err := g.client.Scan(ctx, input)
	if err != nil {
		return store.ScanPage{}, err
	}

	var page store.ScanPage
	for _, raw := range out.Items {
		tx, err := fromAttributeMap(raw)
		if err != nil {
			return store.ScanPage{}, err
		}
		page.Items = append(page.Items, tx)
	}
	if out.LastEvaluatedKey != nil {
		if idAttr, ok := out.LastEvaluatedKey["id"].(*types.AttributeValueMemberS); ok {
			page.LastKey = idAttr.Value
		}
	}
	return page, nil
}

var _ store.Gateway = (*Gateway)(nil)
