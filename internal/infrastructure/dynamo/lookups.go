package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/yoma-opportunity/internal/domain"
)

// LookupRepo provides typed DynamoDB operations for the lookups table,
// keyed by kind (hash) and id (range).
type LookupRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewLookupRepo(client *dynamodb.Client, tableName string) *LookupRepo {
	return &LookupRepo{client: client, tableName: tableName}
}

// ListByKind returns every row of one kind, following pagination.
func (r *LookupRepo) ListByKind(ctx context.Context, kind domain.LookupKind) ([]domain.Lookup, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("#k = :kind"),
		ExpressionAttributeNames:  map[string]string{"#k": fieldKind},
		ExpressionAttributeValues: strKey(":kind", string(kind)),
	})
	var out []domain.Lookup
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query lookups %s: %w", kind, err)
		}
		var items []domain.Lookup
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal lookups %s: %w", kind, err)
		}
		for i := range items {
			items[i].Kind = kind
		}
		out = append(out, items...)
	}
	return out, nil
}

// Upsert writes the non-empty attributes of l, creating the row if needed.
func (r *LookupRepo) Upsert(ctx context.Context, l domain.Lookup) error {
	updates := map[string]interface{}{fieldName: l.Name}
	for field, v := range map[string]string{
		fieldCode:        l.Code,
		fieldDisplayName: l.DisplayName,
		fieldDescription: l.Description,
		fieldImageURL:    l.ImageURL,
		fieldInfoURL:     l.InfoURL,
	} {
		if v != "" {
			updates[field] = v
		}
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey(fieldKind, string(l.Kind), fieldID, l.ID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("upsert lookup %s/%s: %w", l.Kind, l.ID, err)
	}
	return nil
}
