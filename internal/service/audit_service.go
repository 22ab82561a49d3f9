package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bandhan-service/internal/bucketing"
	"bandhan-service/internal/client"
	"bandhan-service/internal/models"
	"bandhan-service/internal/repository/clickhouse"
	"bandhan-service/internal/util"
)

const auditIndexName = "bandhan-audit-events"

// AuditService writes compliance events to ClickHouse and mirrors them
// into Elasticsearch for the search surface. Events are append-only.
type AuditService struct {
	auditRepo    *clickhouse.AuditRepository
	esClient     *client.ESClient
	producer     *client.KafkaProducer
	bucketingMgr *bucketing.Manager
}

func NewAuditService(
	auditRepo *clickhouse.AuditRepository,
	esClient *client.ESClient,
	producer *client.KafkaProducer,
	bucketingMgr *bucketing.Manager,
) *AuditService {
	return &AuditService{
		auditRepo:    auditRepo,
		esClient:     esClient,
		producer:     producer,
		bucketingMgr: bucketingMgr,
	}
}

// Record persists an audit event to both stores. The event keeps its
// caller-supplied fields; bucket and timestamps are filled here.
func (s *AuditService) Record(ctx context.Context, eventType, userID, entityType, entityID string, metadata map[string]interface{}, ip net.IP, userAgent string) error {
	now := time.Now().UTC()

	metadataJSON := ""
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadataJSON = string(encoded)
	}

	event := &models.AuditEvent{
		EventBucket: s.bucketingMgr.GetEventBucket(userID),
		EventDate:   s.bucketingMgr.GetDateBucket(),
		EventTime:   now,
		EventType:   eventType,
		UserID:      userID,
		EntityType:  entityType,
		EntityID:    entityID,
		Metadata:    metadataJSON,
		IPAddress:   ip,
		UserAgent:   userAgent,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Either sink may be absent outside production
	if s.auditRepo != nil {
		g.Go(func() error {
			return s.auditRepo.Insert(gCtx, event)
		})
	}

	if s.esClient != nil {
		g.Go(func() error {
			docID := fmt.Sprintf("%s-%s-%d", event.UserID, event.EventType, now.UnixNano())
			res, err := s.esClient.IndexDocument(auditIndexName, docID, event)
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("failed to index audit event: %s", res.String())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		util.Error("Failed to record audit event",
			zap.String("event_type", eventType),
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}

	util.Debug("Audit event recorded",
		zap.String("event_type", eventType),
		zap.String("user_id", userID))

	return nil
}

// Publish emits a domain event to Kafka. Failures are logged but never
// fail the caller's request.
func (s *AuditService) Publish(ctx context.Context, topic, key string, payload interface{}) {
	if s.producer == nil {
		util.Debug("Kafka producer unavailable, dropping domain event",
			zap.String("topic", topic))
		return
	}

	value, err := json.Marshal(payload)
	if err != nil {
		util.Error("Failed to encode domain event",
			zap.String("topic", topic),
			zap.Error(err))
		return
	}

	headers := map[string]string{
		"content-type": "application/json",
		"produced_at":  time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.producer.ProduceMessage(ctx, topic, []byte(key), value, headers); err != nil {
		util.Error("Failed to publish domain event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
	}
}

// EventsForUser reads a user's audit trail from ClickHouse.
func (s *AuditService) EventsForUser(ctx context.Context, userID, fromDate, toDate string, limit int) ([]*models.AuditEvent, error) {
	if fromDate == "" {
		fromDate = time.Now().UTC().AddDate(0, -1, 0).Format("2006-01-02")
	}
	if toDate == "" {
		toDate = time.Now().UTC().Format("2006-01-02")
	}

	return s.auditRepo.EventsForUser(ctx, userID, fromDate, toDate, limit)
}

// Search queries the Elasticsearch mirror by user and event type.
func (s *AuditService) Search(ctx context.Context, userID, eventType string, limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	must := []map[string]interface{}{
		{"term": map[string]interface{}{"user_id": userID}},
	}
	if eventType != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"event_type": eventType},
		})
	}

	query := map[string]interface{}{
		"size": limit,
		"sort": []map[string]interface{}{
			{"event_time": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}

	res, err := s.esClient.Search(ctx, auditIndexName, query)
	if err != nil {
		return nil, fmt.Errorf("audit search failed: %w", err)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.AuditEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := s.esClient.ParseResponse(res, &parsed); err != nil {
		return nil, fmt.Errorf("audit search failed: %w", err)
	}

	events := make([]*models.AuditEvent, 0, len(parsed.Hits.Hits))
	for i := range parsed.Hits.Hits {
		events = append(events, &parsed.Hits.Hits[i].Source)
	}

	return events, nil
}
