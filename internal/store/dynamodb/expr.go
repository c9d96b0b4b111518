package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dafibh/fortuna/tokenledger/internal/domain"
	"github.com/dafibh/fortuna/tokenledger/internal/store"
)

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

func fromAttributeMap(av map[string]types.AttributeValue) (*domain.Transaction, error) {
	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}

	expiresAt, err := time.Parse(rfc3339Milli, it.ExpiresAt)
	if err != nil {
		//.2: an unparseable expiresAt must never be dropped.
		expiresAt = time.Time{}
	}
	createdAt, err := time.Parse(rfc3339Milli, it.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}

	tx := &domain.Transaction{
		ID:                      it.ID,
		UserID:                  it.UserID,
		BeneficiaryID:           it.BeneficiaryID,
		TransactionType:         domain.TransactionType(it.TransactionType),
		Amount:                  it.Amount,
		Purpose:                 it.Purpose,
		RefID:                   it.RefID,
		ExpiresAt:               expiresAt,
		CreatedAt:               createdAt,
		Metadata:                it.Metadata,
		Version:                 it.Version,
		FreeBeneficiaryConsumed: it.FreeBeneficiaryConsumed,
		FreeSystemConsumed:      it.FreeSystemConsumed,
	}
	if it.State != "" {
		s := domain.HoldState(it.State)
		tx.State = &s
	}
	return tx, nil
}

// formatUpdateValue converts the ledger engine's native Go values (time.Time,
// domain.HoldState, ...) to the plain strings/ints the item schema stores.
func formatUpdateValue(field string, v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(rfc3339Milli)
	case domain.HoldState:
		return string(val)
	case *domain.HoldState:
		if val == nil {
			return nil
		}
		return string(*val)
	default:
		return v
	}
}

func buildKeyCondition(expr string, values map[string]any) (expression.KeyConditionBuilder, error) {
	clauses, err := store.ParseExpression(expr)
	if err != nil {
		return expression.KeyConditionBuilder{}, err
	}
	if len(clauses) == 0 {
		return expression.KeyConditionBuilder{}, fmt.Errorf("store/dynamodb: empty key condition")
	}

	first := clauses[0]
	kc := expression.Key(first.Field).Equal(expression.Value(formatUpdateValue(first.Field, values[first.ValuePlaceholder])))
	for _, c := range clauses[1:] {
		v := expression.Value(formatUpdateValue(c.Field, values[c.ValuePlaceholder]))
		switch c.Op {
		case store.OpEQ:
			kc = kc.And(expression.Key(c.Field).Equal(v))
		case store.OpLE:
			kc = kc.And(expression.Key(c.Field).LessThanEqual(v))
		case store.OpGE:
			kc = kc.And(expression.Key(c.Field).GreaterThanEqual(v))
		case store.OpLT:
			kc = kc.And(expression.Key(c.Field).LessThan(v))
		case store.OpGT:
			kc = kc.And(expression.Key(c.Field).GreaterThan(v))
		}
	}
	return kc, nil
}

func buildFilterCondition(expr string, values map[string]any) (expression.ConditionBuilder, error) {
	clauses, err := store.ParseExpression(expr)
	if err != nil {
		return expression.ConditionBuilder{}, err
	}
	if len(clauses) == 0 {
		return expression.ConditionBuilder{}, fmt.Errorf("store/dynamodb: empty condition")
	}

	build := func(c store.Clause) expression.ConditionBuilder {
		v := expression.Value(formatUpdateValue(c.Field, values[c.ValuePlaceholder]))
		switch c.Op {
		case store.OpLE:
			return expression.Name(c.Field).LessThanEqual(v)
		case store.OpGE:
			return expression.Name(c.Field).GreaterThanEqual(v)
		case store.OpLT:
			return expression.Name(c.Field).LessThan(v)
		case store.OpGT:
			return expression.Name(c.Field).GreaterThan(v)
		default:
			return expression.Name(c.Field).Equal(v)
		}
	}

	cond := build(clauses[0])
	for _, c := range clauses[1:] {
		cond = cond.And(build(c))
	}
	return cond, nil
}
