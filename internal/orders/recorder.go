package orders

import (
	"context"

	"github.com/reparoja/reparoja-ai-platform/internal/conversation"
)

// Recorder adapts the Store to the conversation engine's BookingRecorder.
type Recorder struct {
	store *Store
}

func NewRecorder(store *Store) *Recorder {
	if store == nil {
		panic("orders: nil store")
	}
	return &Recorder{store: store}
}

var _ conversation.BookingRecorder = (*Recorder)(nil)

// Record turns a confirmed booking into a scheduled service order.
func (r *Recorder) Record(ctx context.Context, b conversation.Booking) error {
	_, err := r.store.Create(ctx, ServiceOrder{
		SessionKey:   b.SessionKey,
		CustomerName: b.CustomerName,
		Contact:      b.Contact,
		Address:      b.Address,
		ServiceType:  string(b.Service),
		Equipment:    b.Equipment,
		Brand:        b.Brand,
		Problem:      b.Problem,
		ScheduledAt:  b.Slot.StartsAt,
	})
	return err
}
