package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/store"
	"github.com/dropDatabas3/hellopair/internal/store/storetest"
)

// fakeAPI guarda items por (tenant_id, participant_id).
type fakeAPI struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	fail  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(m map[string]types.AttributeValue) string {
	t := m["tenant_id"].(*types.AttributeValueMemberS).Value
	p := m["participant_id"].(*types.AttributeValueMemberS).Value
	return t + "/" + p
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestAdapterRegistration(t *testing.T) {
	a, ok := store.GetAdapter("dynamodb")
	require.True(t, ok, "dynamodb adapter should be registered")
	require.Equal(t, "dynamodb", a.Name())
}

func TestProfilesConformance(t *testing.T) {
	conn := New(newFakeAPI(), "ParticipantProfiles")
	require.NoError(t, conn.Ping(context.Background()))
	require.Nil(t, conn.OptIns())
	require.Nil(t, conn.History())

	storetest.RunProfiles(t, conn.Profiles())
}

func TestGet_UnavailableOnTransportError(t *testing.T) {
	api := newFakeAPI()
	api.fail = true
	_, err := New(api, "t").Profiles().Get(context.Background(), "T1", "U1")
	require.ErrorIs(t, err, pairing.ErrStoreUnavailable)
}
