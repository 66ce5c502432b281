package domain

import "time"

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Actor    Actor
	Occurred time.Time
}

// Типы событий таймлайна.
const (
	TimelineOrderCreated     = "order.created"
	TimelineStatusChanged    = "order.status_changed"
	TimelineCreationRollback = "order.creation_rolled_back"
)
