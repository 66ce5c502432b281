package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

const (
	insertTimelineEventSQL = `
		INSERT INTO timeline_events (order_id, type, reason, actor, occurred)
		VALUES ($1, $2, $3, $4, $5)`

	// id разрывает равенство occurred, сохраняя порядок вставки.
	selectTimelineSQL = `
		SELECT type, reason, actor, occurred
		FROM timeline_events
		WHERE order_id = $1
		ORDER BY occurred, id`
)

var errTimelineEventIncomplete = errors.New("timeline event requires order id and type")

// timelineRepository — журнал жизненного цикла заказа в таблице timeline_events.
type timelineRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{
		db:  store.DB(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Append записывает событие. Время округляется до микросекунд, как его хранит TIMESTAMPTZ.
func (r *timelineRepository) Append(event domain.TimelineEvent) error {
	if event.OrderID == "" || event.Type == "" {
		return fmt.Errorf("append timeline event: %w", errTimelineEventIncomplete)
	}
	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = r.now()
	}
	occurred = occurred.UTC().Truncate(time.Microsecond)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, insertTimelineEventSQL,
		event.OrderID, event.Type, event.Reason, string(event.Actor), occurred)
	if err != nil {
		return fmt.Errorf("append timeline event for %s: %w", event.OrderID, err)
	}
	return nil
}

// List возвращает хронологию заказа. Для неизвестного заказа — пустой срез.
func (r *timelineRepository) List(orderID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectTimelineSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("list timeline for %s: %w", orderID, err)
	}
	defer rows.Close()

	return collectTimeline(rows, orderID)
}

func collectTimeline(rows *sql.Rows, orderID string) ([]domain.TimelineEvent, error) {
	events := []domain.TimelineEvent{}
	for rows.Next() {
		event := domain.TimelineEvent{OrderID: orderID}
		var actor string
		if err := rows.Scan(&event.Type, &event.Reason, &actor, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		event.Actor = domain.Actor(actor)
		event.Occurred = event.Occurred.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline for %s: %w", orderID, err)
	}
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
