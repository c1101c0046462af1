// Package dynamodb implementa el Profile Store sobre DynamoDB.
// Solo soporta perfiles: el registry y la historia necesitan el lock
// y las consultas de conjunto de un backend SQL o Redis.
//
// Tabla: tenant_id (HASH) + participant_id (RANGE).
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/store"
)

func init() {
	store.RegisterAdapter(&dynamoAdapter{})
}

// API es el subconjunto del cliente DynamoDB que usa el adapter.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type dynamoAdapter struct{}

func (a *dynamoAdapter) Name() string { return "dynamodb" }

func (a *dynamoAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.DynamoDB.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.DynamoDB.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDB.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
		}
	})

	conn := New(client, cfg.DynamoDB.Table)
	if err := conn.Ping(ctx); err != nil {
		return nil, pairing.Unavailable(err)
	}
	return conn, nil
}

// Connection envuelve un cliente DynamoDB y una tabla.
type Connection struct {
	api   API
	table string
}

// New crea la conexión sobre un cliente existente.
func New(api API, table string) *Connection {
	return &Connection{api: api, table: table}
}

func (c *Connection) Name() string { return "dynamodb" }

func (c *Connection) Ping(ctx context.Context) error {
	_, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.table)})
	if err != nil {
		return fmt.Errorf("dynamodb: describe table %s: %w", c.table, err)
	}
	return nil
}

func (c *Connection) Close() error { return nil }

// ─── Repositorios ───

func (c *Connection) OptIns() pairing.OptInRepository     { return nil }
func (c *Connection) History() pairing.HistoryRepository  { return nil }
func (c *Connection) Profiles() pairing.ProfileRepository { return &profileRepo{c} }

// profileItem es la forma persistida del perfil.
type profileItem struct {
	TenantID      string            `dynamodbav:"tenant_id"`
	ParticipantID string            `dynamodbav:"participant_id"`
	Attributes    map[string]string `dynamodbav:"attributes"`
	UpdatedAt     int64             `dynamodbav:"updated_at"`
}

func itemKey(tenant pairing.TenantID, p pairing.ParticipantID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"tenant_id":      &types.AttributeValueMemberS{Value: string(tenant)},
		"participant_id": &types.AttributeValueMemberS{Value: string(p)},
	}
}

// ─── ProfileRepository ───

type profileRepo struct{ c *Connection }

func (r *profileRepo) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.Profile, error) {
	out, err := r.c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.c.table),
		Key:       itemKey(tenant, p),
	})
	if err != nil {
		return nil, pairing.Unavailable(fmt.Errorf("dynamodb: get profile: %w", err))
	}
	if len(out.Item) == 0 {
		return nil, pairing.ErrNotFound
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dynamodb: decode profile: %w", err)
	}
	attrs := item.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &pairing.Profile{
		Tenant:      tenant,
		Participant: p,
		Attributes:  attrs,
		UpdatedAt:   time.UnixMilli(item.UpdatedAt).UTC(),
	}, nil
}

func (r *profileRepo) Upsert(ctx context.Context, prof pairing.Profile) error {
	if err := pairing.ValidateIDs(prof.Tenant, prof.Participant); err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(profileItem{
		TenantID:      string(prof.Tenant),
		ParticipantID: string(prof.Participant),
		Attributes:    prof.Attributes,
		UpdatedAt:     time.Now().UTC().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: encode profile: %w", err)
	}
	_, err = r.c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.c.table),
		Item:      av,
	})
	if err != nil {
		return pairing.Unavailable(fmt.Errorf("dynamodb: put profile: %w", err))
	}
	return nil
}

func (r *profileRepo) Delete(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	_, err := r.c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.c.table),
		Key:       itemKey(tenant, p),
	})
	if err != nil {
		return pairing.Unavailable(fmt.Errorf("dynamodb: delete profile: %w", err))
	}
	return nil
}
