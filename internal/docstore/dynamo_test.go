package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo backs DynamoAPI with a map so the marshal/query plumbing can be
// exercised without a live endpoint.
type fakeDynamo struct {
	items map[string]map[string]*dynamodb.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]*dynamodb.AttributeValue)}
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, input *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	id := aws.StringValue(input.Item["document_id"].S)
	f.items[id] = input.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, input *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	id := aws.StringValue(input.Key["document_id"].S)
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeDynamo) DeleteItemWithContext(_ aws.Context, input *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	id := aws.StringValue(input.Key["document_id"].S)
	old := f.items[id]
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (f *fakeDynamo) QueryWithContext(_ aws.Context, input *dynamodb.QueryInput, _ ...request.Option) (*dynamodb.QueryOutput, error) {
	owner := aws.StringValue(input.ExpressionAttributeValues[":owner"].S)
	out := &dynamodb.QueryOutput{}
	for _, item := range f.items {
		if item["owner"] != nil && aws.StringValue(item["owner"].S) == owner {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (f *fakeDynamo) ScanPagesWithContext(_ aws.Context, _ *dynamodb.ScanInput, fn func(*dynamodb.ScanOutput, bool) bool, _ ...request.Option) error {
	page := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		page.Items = append(page.Items, item)
	}
	fn(page, true)
	return nil
}

func TestDynamo_PutGetRoundTrip(t *testing.T) {
	store := NewDynamo(newFakeDynamo(), "documents")
	ctx := context.Background()

	doc := sampleDoc("doc-1", "alice@example.com")
	doc.ContentHash = "deadbeef"
	doc.Anchored = true
	doc.LedgerPosition = 7
	require.NoError(t, store.Put(ctx, doc))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Name, got.Name)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, doc.LedgerPosition, got.LedgerPosition)
	assert.True(t, got.Anchored)
	assert.True(t, doc.UploadDate.Equal(got.UploadDate), "upload date should survive the attribute round trip")
}

func TestDynamo_GetMissing(t *testing.T) {
	store := NewDynamo(newFakeDynamo(), "documents")

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamo_DeleteMissing(t *testing.T) {
	store := NewDynamo(newFakeDynamo(), "documents")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleDoc("doc-1", "alice@example.com")))
	require.NoError(t, store.Delete(ctx, "doc-1"))
	assert.ErrorIs(t, store.Delete(ctx, "doc-1"), ErrNotFound)
}

func TestDynamo_ListByOwnerAndScan(t *testing.T) {
	store := NewDynamo(newFakeDynamo(), "documents")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleDoc("doc-b", "alice@example.com")))
	require.NoError(t, store.Put(ctx, sampleDoc("doc-a", "alice@example.com")))
	require.NoError(t, store.Put(ctx, sampleDoc("doc-c", "bob@example.com")))

	byOwner, err := store.ListByOwner(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, byOwner, 2)
	assert.Equal(t, "doc-a", byOwner[0].DocumentID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "doc-c", all[2].DocumentID)
}

func TestDynamo_UploadDateVaries(t *testing.T) {
	store := NewDynamo(newFakeDynamo(), "documents")
	ctx := context.Background()

	doc := sampleDoc("doc-1", "alice@example.com")
	doc.UploadDate = time.Unix(1750000000, 0).UTC()
	require.NoError(t, store.Put(ctx, doc))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1750000000), got.UploadDate.Unix())
}
