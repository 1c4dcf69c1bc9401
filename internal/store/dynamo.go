package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

// Sort key constants for the single-table layout.
const (
	skMeta     = "META"
	skResearch = "RESEARCH"
	skScript   = "SCRIPT"

	skSegmentPrefix = "SEGMENT#"
	skAssetPrefix   = "ASSET#"
)

func projectPK(projectID string) string {
	return "PROJECT#" + projectID
}

func segmentSK(index int) string {
	// Zero-padded so lexical key order matches segment order.
	return fmt.Sprintf("%s%04d", skSegmentPrefix, index)
}

func assetSK(kind string, segment int) string {
	return fmt.Sprintf("%s%s#%04d", skAssetPrefix, kind, segment)
}

// DynamoStore implements ProjectStore against a single DynamoDB table.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

var _ ProjectStore = (*DynamoStore)(nil)

// NewDynamoStore creates a store backed by the given table.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		ttl:       ProjectTTL,
		now:       time.Now,
	}
}

// putItem marshals v, stamps the key and TTL attributes, and writes it.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal item %s/%s: %w", pk, sk, err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["expiresAt"] = &types.AttributeValueMemberN{
		Value: strconv.FormatInt(s.now().Add(s.ttl).Unix(), 10),
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item %s/%s: %w", pk, sk, err)
	}
	return nil
}

// getItem loads one record into out. Returns false when the item does not
// exist.
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out any) (bool, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, fmt.Errorf("get item %s/%s: %w", pk, sk, err)
	}
	if resp.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(resp.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal item %s/%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoStore) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return fmt.Errorf("delete item %s/%s: %w", pk, sk, err)
	}
	return nil
}

// queryPrefix returns all items under pk whose SK begins with prefix.
func (s *DynamoStore) queryPrefix(ctx context.Context, pk, prefix string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: pk},
				":prefix": &types.AttributeValueMemberS{Value: prefix},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query %s %s*: %w", pk, prefix, err)
		}
		items = append(items, resp.Items...)
		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}
	return items, nil
}

// PutProject writes the metadata record, bumping its version.
func (s *DynamoStore) PutProject(ctx context.Context, project *Project) error {
	project.Version++
	project.UpdatedAt = s.now()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = project.UpdatedAt
	}
	return s.putItem(ctx, projectPK(project.ProjectID), skMeta, project)
}

// GetProject returns the metadata record, or (nil, nil) when missing.
func (s *DynamoStore) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	found, err := s.getItem(ctx, projectPK(projectID), skMeta, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// UpdateProjectStatus updates the status field in place so concurrent edits
// to other fields are preserved.
func (s *DynamoStore) UpdateProjectStatus(ctx context.Context, projectID, status string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("SET #status = :status, updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
			":now":    &types.AttributeValueMemberS{Value: s.now().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("update project status %s: %w", projectID, err)
	}
	return nil
}

// DeleteProject removes the metadata record and every child record.
func (s *DynamoStore) DeleteProject(ctx context.Context, projectID string) error {
	pk := projectPK(projectID)
	items, err := s.queryPrefix(ctx, pk, "")
	if err != nil {
		return err
	}
	for _, item := range items {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if err := s.deleteItem(ctx, pk, sk.Value); err != nil {
			return err
		}
	}
	log.Debug().Str("projectId", projectID).Int("records", len(items)).Msg("project deleted")
	return nil
}

func (s *DynamoStore) PutResearch(ctx context.Context, projectID string, rec *ResearchRecord) error {
	rec.Version++
	rec.UpdatedAt = s.now()
	return s.putItem(ctx, projectPK(projectID), skResearch, rec)
}

func (s *DynamoStore) GetResearch(ctx context.Context, projectID string) (*ResearchRecord, error) {
	var rec ResearchRecord
	found, err := s.getItem(ctx, projectPK(projectID), skResearch, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

func (s *DynamoStore) PutScript(ctx context.Context, projectID string, rec *ScriptRecord) error {
	rec.Version++
	rec.UpdatedAt = s.now()
	return s.putItem(ctx, projectPK(projectID), skScript, rec)
}

func (s *DynamoStore) GetScript(ctx context.Context, projectID string) (*ScriptRecord, error) {
	var rec ScriptRecord
	found, err := s.getItem(ctx, projectPK(projectID), skScript, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// PutSegments replaces the segment list. Stale segments beyond the new
// count are removed so a re-chunked script never leaves orphans.
func (s *DynamoStore) PutSegments(ctx context.Context, projectID string, segments []pipeline.ScriptSegment) error {
	pk := projectPK(projectID)
	existing, err := s.queryPrefix(ctx, pk, skSegmentPrefix)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		if err := s.putItem(ctx, pk, segmentSK(seg.Index), seg); err != nil {
			return err
		}
	}
	for _, item := range existing {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(sk.Value[len(skSegmentPrefix):])
		if err != nil || idx <= len(segments) {
			continue
		}
		if err := s.deleteItem(ctx, pk, sk.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *DynamoStore) ListSegments(ctx context.Context, projectID string) ([]pipeline.ScriptSegment, error) {
	items, err := s.queryPrefix(ctx, projectPK(projectID), skSegmentPrefix)
	if err != nil {
		return nil, err
	}
	segments := make([]pipeline.ScriptSegment, 0, len(items))
	for _, item := range items {
		var seg pipeline.ScriptSegment
		if err := attributevalue.UnmarshalMap(item, &seg); err != nil {
			return nil, fmt.Errorf("unmarshal segment: %w", err)
		}
		segments = append(segments, seg)
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })
	return segments, nil
}

func (s *DynamoStore) PutAsset(ctx context.Context, projectID string, rec *AssetRecord) error {
	rec.Version++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	return s.putItem(ctx, projectPK(projectID), assetSK(rec.Kind, rec.Segment), rec)
}

func (s *DynamoStore) GetAsset(ctx context.Context, projectID, kind string, segment int) (*AssetRecord, error) {
	var rec AssetRecord
	found, err := s.getItem(ctx, projectPK(projectID), assetSK(kind, segment), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// ListAssets returns assets of one kind, or all assets when kind is empty.
func (s *DynamoStore) ListAssets(ctx context.Context, projectID, kind string) ([]AssetRecord, error) {
	prefix := skAssetPrefix
	if kind != "" {
		prefix += kind + "#"
	}
	items, err := s.queryPrefix(ctx, projectPK(projectID), prefix)
	if err != nil {
		return nil, err
	}
	assets := make([]AssetRecord, 0, len(items))
	for _, item := range items {
		var rec AssetRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal asset: %w", err)
		}
		assets = append(assets, rec)
	}
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].Kind != assets[j].Kind {
			return assets[i].Kind < assets[j].Kind
		}
		return assets[i].Segment < assets[j].Segment
	})
	return assets, nil
}
