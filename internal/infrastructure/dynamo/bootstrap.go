package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/yoma-opportunity/internal/config"
)

// Bootstrap creates the lookups table if it doesn't already exist and
// upserts the reference data. Safe to call on every startup.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables, log *logrus.Entry) error {
	created := createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Lookups),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldKind), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldKind), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(fieldID), KeyType: types.KeyTypeRange},
		},
	}, log)
	if created {
		waiter := dynamodb.NewTableExistsWaiter(client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tables.Lookups)}, tableWaitTimeout); err != nil {
			return err
		}
	}

	repo := NewLookupRepo(client, tables.Lookups)
	for _, l := range seedLookups() {
		if err := repo.Upsert(ctx, l); err != nil {
			return err
		}
	}
	log.WithField("rows", len(seedLookups())).Info("lookups seeded")
	return nil
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput, log *logrus.Entry) bool {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			log.WithError(err).WithField("table", *input.TableName).Warn("could not create table")
		}
		return false
	}
	log.WithField("table", *input.TableName).Info("created table")
	return true
}
