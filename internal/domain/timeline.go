package domain

import "time"

// TimelineEvent описывает событие в истории заказа:
// создание, смену статуса исполнения или статуса оплаты.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
