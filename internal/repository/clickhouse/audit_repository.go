package clickhouse

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/client"
	"bandhan-service/internal/models"
	"bandhan-service/internal/util"
)

const insertAuditEventQuery = `
	INSERT INTO audit_events (
		event_bucket, event_date, event_time, event_type, user_id,
		entity_type, entity_id, metadata, ip_address, user_agent
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectUserEventsQuery = `
	SELECT event_bucket, event_date, event_time, event_type, user_id,
		entity_type, entity_id, metadata, ip_address, user_agent
	FROM audit_events
	WHERE user_id = ? AND event_date >= ? AND event_date <= ?
	ORDER BY event_time DESC
	LIMIT ?`

// AuditRepository is the append-only store for compliance events.
// There is no update or delete path.
type AuditRepository struct {
	client *client.ClickHouseClient
}

func NewAuditRepository(client *client.ClickHouseClient, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		client: client,
	}
}

func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ipStr := ""
	if event.IPAddress != nil {
		ipStr = event.IPAddress.String()
	}

	err := r.client.Exec(opCtx, insertAuditEventQuery,
		uint16(event.EventBucket), event.EventDate, event.EventTime,
		event.EventType, event.UserID, event.EntityType, event.EntityID,
		event.Metadata, ipStr, event.UserAgent)
	if err != nil {
		util.Error("Failed to insert audit event",
			zap.String("event_type", event.EventType),
			zap.String("user_id", event.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// EventsForUser returns a user's audit trail inside a date range.
func (r *AuditRepository) EventsForUser(ctx context.Context, userID, fromDate, toDate string, limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	rows, err := r.client.QueryRows(opCtx, selectUserEventsQuery, userID, fromDate, toDate, limit)
	if err != nil {
		util.Error("Failed to query audit events",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event := &models.AuditEvent{}
		var bucket uint16
		var ipStr string

		if err := rows.Scan(
			&bucket, &event.EventDate, &event.EventTime, &event.EventType,
			&event.UserID, &event.EntityType, &event.EntityID,
			&event.Metadata, &ipStr, &event.UserAgent); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		event.EventBucket = int(bucket)
		if ipStr != "" {
			event.IPAddress = net.ParseIP(ipStr)
		}
		events = append(events, event)
	}

	return events, nil
}
