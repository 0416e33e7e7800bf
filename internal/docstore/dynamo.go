package docstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
)

// OwnerIndex is the GSI used for per-owner listings.
const OwnerIndex = "owner-index"

// DynamoAPI is the subset of the DynamoDB client used by this store.
// *dynamodb.DynamoDB satisfies this interface.
type DynamoAPI interface {
	PutItemWithContext(ctx aws.Context, input *dynamodb.PutItemInput, opts ...request.Option) (*dynamodb.PutItemOutput, error)
	GetItemWithContext(ctx aws.Context, input *dynamodb.GetItemInput, opts ...request.Option) (*dynamodb.GetItemOutput, error)
	DeleteItemWithContext(ctx aws.Context, input *dynamodb.DeleteItemInput, opts ...request.Option) (*dynamodb.DeleteItemOutput, error)
	QueryWithContext(ctx aws.Context, input *dynamodb.QueryInput, opts ...request.Option) (*dynamodb.QueryOutput, error)
	ScanPagesWithContext(ctx aws.Context, input *dynamodb.ScanInput, fn func(*dynamodb.ScanOutput, bool) bool, opts ...request.Option) error
}

// Dynamo stores document metadata in a DynamoDB table keyed by document_id.
type Dynamo struct {
	client DynamoAPI
	table  string
}

// NewDynamo creates a DynamoDB-backed metadata store.
func NewDynamo(client DynamoAPI, table string) *Dynamo {
	return &Dynamo{client: client, table: table}
}

// Put implements Store.
func (d *Dynamo) Put(ctx context.Context, doc *Document) error {
	item, err := dynamodbattribute.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.DocumentID, err)
	}
	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put document %s: %w", doc.DocumentID, err)
	}
	return nil
}

// Get implements Store.
func (d *Dynamo) Get(ctx context.Context, id string) (*Document, error) {
	output, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]*dynamodb.AttributeValue{
			"document_id": {S: aws.String(id)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if len(output.Item) == 0 {
		return nil, ErrNotFound
	}
	var doc Document
	if err := dynamodbattribute.UnmarshalMap(output.Item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	return &doc, nil
}

// Delete implements Store.
func (d *Dynamo) Delete(ctx context.Context, id string) error {
	output, err := d.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key: map[string]*dynamodb.AttributeValue{
			"document_id": {S: aws.String(id)},
		},
		ReturnValues: aws.String(dynamodb.ReturnValueAllOld),
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if len(output.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwner implements Store via the owner GSI.
func (d *Dynamo) ListByOwner(ctx context.Context, owner string) ([]*Document, error) {
	output, err := d.client.QueryWithContext(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		IndexName:              aws.String(OwnerIndex),
		KeyConditionExpression: aws.String("#o = :owner"),
		ExpressionAttributeNames: map[string]*string{
			"#o": aws.String("owner"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":owner": {S: aws.String(owner)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query documents for %s: %w", owner, err)
	}
	docs := make([]*Document, 0, len(output.Items))
	for _, item := range output.Items {
		var doc Document
		if err := dynamodbattribute.UnmarshalMap(item, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal query item: %w", err)
		}
		docs = append(docs, &doc)
	}
	sortByID(docs)
	return docs, nil
}

// List implements Store with a paginated full-table scan. It runs once at
// startup to seed the tree, so the scan cost is acceptable.
func (d *Dynamo) List(ctx context.Context) ([]*Document, error) {
	var docs []*Document
	var unmarshalErr error
	err := d.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.table),
	}, func(page *dynamodb.ScanOutput, _ bool) bool {
		for _, item := range page.Items {
			var doc Document
			if unmarshalErr = dynamodbattribute.UnmarshalMap(item, &doc); unmarshalErr != nil {
				return false
			}
			docs = append(docs, &doc)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal scan item: %w", unmarshalErr)
	}
	sortByID(docs)
	return docs, nil
}
