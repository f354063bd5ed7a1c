package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bluecheck/inquiries/internal/apperr"
	"github.com/bluecheck/inquiries/internal/models"
)

//go:generate mockgen -source=dynamodb.go -destination=mock_dynamodb_test.go -package=store

// dynamoAPI is the subset of *dynamodb.Client the store calls.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

const (
	kindIndex   = "KindCreatedAtIndex"
	statusIndex = "StatusCreatedAtIndex"

	kindInquiry     = "inquiry"
	kindStatusCheck = "status_check"

	// Fixed width so lexical order on the range key is time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

	tableWaitTimeout = 2 * time.Minute
)

// DynamoOptions configures the DynamoDB backend.
type DynamoOptions struct {
	Region       string
	Endpoint     string
	TablePrefix  string
	CreateTables bool
}

// DynamoDB stores inquiries in DynamoDB. Every inquiry item carries a
// constant kind attribute so the kind index can serve newest-first listing
// and counting without a table scan.
type DynamoDB struct {
	client       dynamoAPI
	inquiryTable string
	checksTable  string
	logger       *slog.Logger
}

// NewDynamoDB loads AWS configuration and connects. With an endpoint set it
// targets DynamoDB Local using static dummy credentials.
func NewDynamoDB(ctx context.Context, opts DynamoOptions, logger *slog.Logger) (*DynamoDB, error) {
	var loadOpts []func(*config.LoadOptions) error
	region := opts.Region
	if opts.Endpoint != "" {
		if region == "" {
			region = "local"
		}
		loadOpts = append(loadOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))
	}
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	d := newDynamoDB(client, opts.TablePrefix, logger)
	if opts.CreateTables {
		if err := d.EnsureTables(ctx); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func newDynamoDB(client dynamoAPI, prefix string, logger *slog.Logger) *DynamoDB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DynamoDB{
		client:       client,
		inquiryTable: prefix + "_inquiries",
		checksTable:  prefix + "_status_checks",
		logger:       logger,
	}
}

// EnsureTables creates missing tables and waits for them to become active.
func (d *DynamoDB) EnsureTables(ctx context.Context) error {
	for _, in := range []*dynamodb.CreateTableInput{d.inquiryTableInput(), d.checksTableInput()} {
		if err := d.ensureTable(ctx, in); err != nil {
			return fmt.Errorf("failed to ensure table %s: %w", aws.ToString(in.TableName), err)
		}
	}
	return nil
}

func (d *DynamoDB) ensureTable(ctx context.Context, in *dynamodb.CreateTableInput) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return err
	}

	d.logger.Info("creating dynamodb table", slog.String("table", aws.ToString(in.TableName)))
	if _, err := d.client.CreateTable(ctx, in); err != nil {
		return err
	}
	waiter := dynamodb.NewTableExistsWaiter(d.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName}, tableWaitTimeout)
}

func (d *DynamoDB) inquiryTableInput() *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(d.inquiryTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("kind"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("status"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("created_at"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(kindIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("kind"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("created_at"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName: aws.String(statusIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("status"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("created_at"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
}

func (d *DynamoDB) checksTableInput() *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(d.checksTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("kind"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("created_at"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(kindIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("kind"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("created_at"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
}

func (d *DynamoDB) SaveInquiry(ctx context.Context, inq *models.Inquiry) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.inquiryTable),
		Item:                inquiryItem(inq),
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("inquiry %s: %w", inq.ID, apperr.ErrConflict)
		}
		return fmt.Errorf("put inquiry: %w", err)
	}
	return nil
}

func (d *DynamoDB) GetInquiry(ctx context.Context, id string) (*models.Inquiry, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.inquiryTable),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get inquiry: %w", err)
	}
	if out.Item == nil {
		return nil, apperr.ErrNotFound
	}
	inq, err := inquiryFromItem(out.Item)
	if err != nil {
		return nil, err
	}
	return &inq, nil
}

func (d *DynamoDB) ListInquiries(ctx context.Context, f ListFilter) ([]models.Inquiry, error) {
	in := d.inquiryQuery(f.Status, nil)
	in.ScanIndexForward = aws.Bool(false)

	var out []models.Inquiry
	for {
		if f.Limit > 0 {
			in.Limit = aws.Int32(int32(f.Limit - len(out)))
		}
		page, err := d.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("query inquiries: %w", err)
		}
		for _, item := range page.Items {
			inq, err := inquiryFromItem(item)
			if err != nil {
				return nil, err
			}
			out = append(out, inq)
		}
		if len(page.LastEvaluatedKey) == 0 || (f.Limit > 0 && len(out) >= f.Limit) {
			break
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
	return out, nil
}

func (d *DynamoDB) UpdateInquiryStatus(ctx context.Context, id string, status models.Status, at time.Time) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.inquiryTable),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression:    aws.String("SET #status = :status, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: string(status)},
			":updated_at": &types.AttributeValueMemberS{Value: formatTime(at)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("update inquiry status: %w", err)
	}
	return nil
}

func (d *DynamoDB) CountInquiries(ctx context.Context, f CountFilter) (int64, error) {
	in := d.inquiryQuery(f.Status, f.CreatedSince)
	in.Select = types.SelectCount
	if f.InspectionType != nil {
		in.FilterExpression = aws.String("inspection_type = :inspection_type")
		in.ExpressionAttributeValues[":inspection_type"] = &types.AttributeValueMemberS{Value: string(*f.InspectionType)}
	}

	var total int64
	for {
		page, err := d.client.Query(ctx, in)
		if err != nil {
			return 0, fmt.Errorf("count inquiries: %w", err)
		}
		total += int64(page.Count)
		if len(page.LastEvaluatedKey) == 0 {
			return total, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

// inquiryQuery picks the status index when a status is given, otherwise
// the kind index, with an optional lower bound on created_at.
func (d *DynamoDB) inquiryQuery(status *models.Status, since *time.Time) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(d.inquiryTable),
		ExpressionAttributeNames:  map[string]string{},
		ExpressionAttributeValues: map[string]types.AttributeValue{},
	}
	var cond string
	if status != nil {
		in.IndexName = aws.String(statusIndex)
		cond = "#status = :status"
		in.ExpressionAttributeNames["#status"] = "status"
		in.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: string(*status)}
	} else {
		in.IndexName = aws.String(kindIndex)
		cond = "#kind = :kind"
		in.ExpressionAttributeNames["#kind"] = "kind"
		in.ExpressionAttributeValues[":kind"] = &types.AttributeValueMemberS{Value: kindInquiry}
	}
	if since != nil {
		cond += " AND created_at >= :since"
		in.ExpressionAttributeValues[":since"] = &types.AttributeValueMemberS{Value: formatTime(*since)}
	}
	in.KeyConditionExpression = aws.String(cond)
	return in
}

func (d *DynamoDB) SaveStatusCheck(ctx context.Context, sc *models.StatusCheck) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.checksTable),
		Item: map[string]types.AttributeValue{
			"id":          &types.AttributeValueMemberS{Value: sc.ID},
			"kind":        &types.AttributeValueMemberS{Value: kindStatusCheck},
			"client_name": &types.AttributeValueMemberS{Value: sc.ClientName},
			"created_at":  &types.AttributeValueMemberS{Value: formatTime(sc.Timestamp)},
		},
	})
	if err != nil {
		return fmt.Errorf("put status check: %w", err)
	}
	return nil
}

func (d *DynamoDB) ListStatusChecks(ctx context.Context, limit int) ([]models.StatusCheck, error) {
	in := &dynamodb.QueryInput{
		TableName:                aws.String(d.checksTable),
		IndexName:                aws.String(kindIndex),
		KeyConditionExpression:   aws.String("#kind = :kind"),
		ExpressionAttributeNames: map[string]string{"#kind": "kind"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kind": &types.AttributeValueMemberS{Value: kindStatusCheck},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var out []models.StatusCheck
	for {
		if limit > 0 {
			in.Limit = aws.Int32(int32(limit - len(out)))
		}
		page, err := d.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("query status checks: %w", err)
		}
		for _, item := range page.Items {
			ts, err := parseTime(getStringValue(item, "created_at"))
			if err != nil {
				return nil, err
			}
			out = append(out, models.StatusCheck{
				ID:         getStringValue(item, "id"),
				ClientName: getStringValue(item, "client_name"),
				Timestamp:  ts,
			})
		}
		if len(page.LastEvaluatedKey) == 0 || (limit > 0 && len(out) >= limit) {
			break
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
	return out, nil
}

func (d *DynamoDB) Ping(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.inquiryTable)})
	return err
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (d *DynamoDB) Close() error { return nil }

func inquiryItem(inq *models.Inquiry) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"id":               &types.AttributeValueMemberS{Value: inq.ID},
		"kind":             &types.AttributeValueMemberS{Value: kindInquiry},
		"name":             &types.AttributeValueMemberS{Value: inq.Name},
		"email":            &types.AttributeValueMemberS{Value: inq.Email},
		"phone":            &types.AttributeValueMemberS{Value: inq.Phone},
		"property_address": &types.AttributeValueMemberS{Value: inq.PropertyAddress},
		"inspection_type":  &types.AttributeValueMemberS{Value: string(inq.InspectionType)},
		"status":           &types.AttributeValueMemberS{Value: string(inq.Status)},
		"created_at":       &types.AttributeValueMemberS{Value: formatTime(inq.CreatedAt)},
		"updated_at":       &types.AttributeValueMemberS{Value: formatTime(inq.UpdatedAt)},
	}
	if inq.PreferredDate != nil {
		item["preferred_date"] = &types.AttributeValueMemberS{Value: *inq.PreferredDate}
	}
	if inq.Message != nil {
		item["message"] = &types.AttributeValueMemberS{Value: *inq.Message}
	}
	return item
}

func inquiryFromItem(item map[string]types.AttributeValue) (models.Inquiry, error) {
	createdAt, err := parseTime(getStringValue(item, "created_at"))
	if err != nil {
		return models.Inquiry{}, err
	}
	updatedAt, err := parseTime(getStringValue(item, "updated_at"))
	if err != nil {
		return models.Inquiry{}, err
	}
	return models.Inquiry{
		ID:              getStringValue(item, "id"),
		Name:            getStringValue(item, "name"),
		Email:           getStringValue(item, "email"),
		Phone:           getStringValue(item, "phone"),
		PropertyAddress: getStringValue(item, "property_address"),
		InspectionType:  models.InspectionType(getStringValue(item, "inspection_type")),
		PreferredDate:   getOptionalString(item, "preferred_date"),
		Message:         getOptionalString(item, "message"),
		Status:          models.Status(getStringValue(item, "status")),
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp (%s): %w", s, err)
	}
	return t.UTC(), nil
}

func getStringValue(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func getOptionalString(item map[string]types.AttributeValue, key string) *string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		s := v.Value
		return &s
	}
	return nil
}
