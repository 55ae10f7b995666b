package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealcourt/go-food-orders/internal/payments"
	"github.com/mealcourt/go-food-orders/internal/restaurants"
)

type fakeStore struct {
	created    []*Order
	paid       map[string]int64
	statuses   map[string]Status
	orders     map[string]*Order
	createErr  error
	markErr    error
	updateErr  error
	getByIDErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		paid:     map[string]int64{},
		statuses: map[string]Status{},
		orders:   map[string]*Order{},
	}
}

func (f *fakeStore) Create(_ context.Context, o *Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, o)
	f.orders[o.ID] = o
	return nil
}

func (f *fakeStore) MarkPaid(_ context.Context, orderID string, totalCents int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	f.paid[orderID] = totalCents
	o.Status = StatusPaid
	o.TotalCents = totalCents
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, orderID string, s Status) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.orders[orderID]; !ok {
		return ErrOrderNotFound
	}
	f.statuses[orderID] = s
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Order, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByRestaurant(_ context.Context, restaurantID string) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		if o.RestaurantID == restaurantID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeRestaurants struct {
	byID    map[string]*restaurants.Restaurant
	byOwner map[string]*restaurants.Restaurant
}

func (f *fakeRestaurants) GetByID(_ context.Context, id string) (*restaurants.Restaurant, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, restaurants.ErrNotFound
	}
	return r, nil
}

func (f *fakeRestaurants) GetByOwner(_ context.Context, userID string) (*restaurants.Restaurant, error) {
	r, ok := f.byOwner[userID]
	if !ok {
		return nil, restaurants.ErrNotFound
	}
	return r, nil
}

type fakePayments struct {
	createFn func(ctx context.Context, req payments.SessionRequest) (payments.Session, error)
	verifyFn func(payload []byte, sigHeader string) (payments.Event, error)
	sessions []payments.SessionRequest
}

func (f *fakePayments) CreateCheckoutSession(ctx context.Context, req payments.SessionRequest) (payments.Session, error) {
	f.sessions = append(f.sessions, req)
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return payments.Session{ID: "cs_test", URL: "https://pay.example/cs_test"}, nil
}

func (f *fakePayments) VerifyEvent(payload []byte, sigHeader string) (payments.Event, error) {
	if f.verifyFn != nil {
		return f.verifyFn(payload, sigHeader)
	}
	return payments.Event{}, payments.ErrSignatureInvalid
}

type fakePublisher struct {
	events []Envelope
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err == nil {
		f.events = append(f.events, env)
	}
}

type fakeCache struct {
	statuses map[string]Status
	marked   map[string]bool
	seen     map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		statuses: map[string]Status{},
		marked:   map[string]bool{},
		seen:     map[string]bool{},
	}
}

func (f *fakeCache) CacheStatus(_ context.Context, orderID string, s Status) { f.statuses[orderID] = s }
func (f *fakeCache) SeenEvent(_ context.Context, eventID string) bool       { return f.seen[eventID] }
func (f *fakeCache) MarkEvent(_ context.Context, eventID string)            { f.marked[eventID] = true }

func testRestaurant() *restaurants.Restaurant {
	return &restaurants.Restaurant{
		ID:                 "r1",
		UserID:             "owner1",
		Name:               "Napoli Express",
		DeliveryPriceCents: 200,
		MenuItems: []restaurants.MenuItem{
			{ID: "m1", Name: "Burger", PriceCents: 500},
		},
	}
}

func newTestService(store *fakeStore, pay *fakePayments) (*Service, *fakePublisher, *fakePublisher, *fakePublisher, *fakeCache) {
	placed := &fakePublisher{}
	paid := &fakePublisher{}
	changed := &fakePublisher{}
	cache := newFakeCache()
	svc := &Service{
		Orders: store,
		Restaurants: &fakeRestaurants{
			byID:    map[string]*restaurants.Restaurant{"r1": testRestaurant()},
			byOwner: map[string]*restaurants.Restaurant{"owner1": testRestaurant()},
		},
		Payments:    pay,
		Placed:      placed,
		Paid:        paid,
		Changed:     changed,
		Cache:       cache,
		ServiceName: "order-api-test",
	}
	return svc, placed, paid, changed, cache
}

func checkoutReq() CheckoutRequest {
	return CheckoutRequest{
		RestaurantID: "r1",
		CartItems:    []CartItem{{MenuItemID: "m1", Quantity: 2}},
		DeliveryDetails: DeliveryDetails{
			Email:        "jo@example.com",
			Name:         "Jo",
			AddressLine1: "1 High St",
			City:         "London",
		},
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Run("persists the order only after the session exists", func(t *testing.T) {
		store := newFakeStore()
		pay := &fakePayments{}
		svc, placed, _, _, cache := newTestService(store, pay)

		url, err := svc.CreateCheckoutSession(context.Background(), "u1", checkoutReq())
		require.NoError(t, err)
		assert.Equal(t, "https://pay.example/cs_test", url)

		require.Len(t, store.created, 1)
		order := store.created[0]
		assert.Equal(t, StatusPlaced, order.Status)
		assert.Equal(t, "u1", order.UserID)
		assert.Equal(t, "r1", order.RestaurantID)
		require.Len(t, order.Items, 1)
		assert.Equal(t, OrderItem{MenuItemID: "m1", Name: "Burger", Quantity: 2}, order.Items[0])

		// the session request carried the server-resolved prices
		require.Len(t, pay.sessions, 1)
		sess := pay.sessions[0]
		assert.Equal(t, order.ID, sess.OrderID)
		assert.Equal(t, int64(200), sess.DeliveryPriceCents)
		require.Len(t, sess.LineItems, 1)
		assert.Equal(t, int64(500), sess.LineItems[0].UnitAmountCents)
		assert.Equal(t, 2, sess.LineItems[0].Quantity)

		assert.Equal(t, StatusPlaced, cache.statuses[order.ID])
		require.Len(t, placed.events, 1)
		assert.Equal(t, EventOrderPlaced, placed.events[0].EventType)
		assert.Equal(t, order.ID, placed.events[0].CorrelationID)
	})

	t.Run("provider failure leaves nothing persisted", func(t *testing.T) {
		store := newFakeStore()
		pay := &fakePayments{
			createFn: func(context.Context, payments.SessionRequest) (payments.Session, error) {
				return payments.Session{}, &payments.ProviderError{StatusCode: 402, Message: "card declined"}
			},
		}
		svc, placed, _, _, _ := newTestService(store, pay)

		_, err := svc.CreateCheckoutSession(context.Background(), "u1", checkoutReq())
		var provErr *payments.ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Empty(t, store.created)
		assert.Empty(t, placed.events)
	})

	t.Run("unknown cart item aborts before the provider is called", func(t *testing.T) {
		store := newFakeStore()
		pay := &fakePayments{}
		svc, _, _, _, _ := newTestService(store, pay)

		req := checkoutReq()
		req.CartItems = []CartItem{{MenuItemID: "ghost", Quantity: 1}}
		_, err := svc.CreateCheckoutSession(context.Background(), "u1", req)

		var unknown UnknownMenuItemError
		require.True(t, errors.As(err, &unknown))
		assert.Empty(t, pay.sessions)
		assert.Empty(t, store.created)
	})

	t.Run("missing restaurant", func(t *testing.T) {
		store := newFakeStore()
		svc, _, _, _, _ := newTestService(store, &fakePayments{})

		req := checkoutReq()
		req.RestaurantID = "nope"
		_, err := svc.CreateCheckoutSession(context.Background(), "u1", req)
		assert.ErrorIs(t, err, restaurants.ErrNotFound)
	})
}

func completedEvent(eventID, orderID string, amount int64) payments.Event {
	ev := payments.Event{ID: eventID, Type: payments.EventCheckoutSessionCompleted}
	obj := map[string]any{
		"id":           "cs_test",
		"amount_total": amount,
		"metadata":     map[string]string{"orderId": orderID, "restaurantId": "r1"},
	}
	b, _ := json.Marshal(obj)
	ev.Data.Object = b
	return ev
}

func seedPlacedOrder(store *fakeStore, id string) {
	store.orders[id] = &Order{
		ID:           id,
		RestaurantID: "r1",
		UserID:       "u1",
		Status:       StatusPlaced,
		DeliveryDetails: DeliveryDetails{
			Email: "jo@example.com",
			Name:  "Jo",
		},
	}
}

func TestHandleWebhookEvent(t *testing.T) {
	t.Run("completed session marks the order paid", func(t *testing.T) {
		store := newFakeStore()
		seedPlacedOrder(store, "o1")
		pay := &fakePayments{
			verifyFn: func([]byte, string) (payments.Event, error) {
				return completedEvent("evt1", "o1", 1200), nil
			},
		}
		svc, _, paid, _, cache := newTestService(store, pay)

		err := svc.HandleWebhookEvent(context.Background(), []byte("{}"), "sig")
		require.NoError(t, err)

		assert.Equal(t, int64(1200), store.paid["o1"])
		assert.Equal(t, StatusPaid, store.orders["o1"].Status)
		assert.True(t, cache.marked["evt1"])
		assert.Equal(t, StatusPaid, cache.statuses["o1"])

		require.Len(t, paid.events, 1)
		assert.Equal(t, EventOrderPaid, paid.events[0].EventType)
		var p OrderPaidPayload
		require.NoError(t, json.Unmarshal(paid.events[0].Payload, &p))
		assert.Equal(t, int64(1200), p.TotalCents)
		assert.Equal(t, "jo@example.com", p.DeliveryEmail)
	})

	t.Run("replayed event id is skipped", func(t *testing.T) {
		store := newFakeStore()
		seedPlacedOrder(store, "o1")
		pay := &fakePayments{
			verifyFn: func([]byte, string) (payments.Event, error) {
				return completedEvent("evt1", "o1", 1200), nil
			},
		}
		svc, _, paid, _, cache := newTestService(store, pay)
		cache.seen["evt1"] = true

		err := svc.HandleWebhookEvent(context.Background(), []byte("{}"), "sig")
		require.NoError(t, err)
		assert.Empty(t, store.paid)
		assert.Empty(t, paid.events)
	})

	t.Run("invalid signature rejects without side effects", func(t *testing.T) {
		store := newFakeStore()
		seedPlacedOrder(store, "o1")
		svc, _, paid, _, cache := newTestService(store, &fakePayments{})

		err := svc.HandleWebhookEvent(context.Background(), []byte("{}"), "bad")
		assert.ErrorIs(t, err, payments.ErrSignatureInvalid)
		assert.Empty(t, store.paid)
		assert.Empty(t, paid.events)
		assert.Empty(t, cache.marked)
	})

	t.Run("other event types are acknowledged and ignored", func(t *testing.T) {
		store := newFakeStore()
		pay := &fakePayments{
			verifyFn: func([]byte, string) (payments.Event, error) {
				return payments.Event{ID: "evt2", Type: "payment_intent.created"}, nil
			},
		}
		svc, _, paid, _, _ := newTestService(store, pay)

		err := svc.HandleWebhookEvent(context.Background(), []byte("{}"), "sig")
		require.NoError(t, err)
		assert.Empty(t, store.paid)
		assert.Empty(t, paid.events)
	})

	t.Run("completed session without an order id", func(t *testing.T) {
		store := newFakeStore()
		pay := &fakePayments{
			verifyFn: func([]byte, string) (payments.Event, error) {
				return completedEvent("evt3", "", 1200), nil
			},
		}
		svc, _, _, _, _ := newTestService(store, pay)

		err := svc.HandleWebhookEvent(context.Background(), []byte("{}"), "sig")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("transient order load failure keeps redelivery effective", func(t *testing.T) {
		store := newFakeStore()
		seedPlacedOrder(store, "o1")
		store.getByIDErr = errors.New("connection timeout")
		pay := &fakePayments{
			verifyFn: func([]byte, string) (payments.Event, error) {
				return completedEvent("evt5", "o1", 1200), nil
			},
		}
		svc, _, paid, _, cache := newTestService(store, pay)

		err := svc.HandleWebhookEvent(context.Background(), []byte("{}"), "sig")
		require.Error(t, err)
		assert.False(t, cache.marked["evt5"])
		assert.Empty(t, store.paid)
		assert.Empty(t, paid.events)

		// the provider redelivers once the store recovers
		store.getByIDErr = nil
		err = svc.HandleWebhookEvent(context.Background(), []byte("{}"), "sig")
		require.NoError(t, err)
		assert.Equal(t, int64(1200), store.paid["o1"])
		assert.True(t, cache.marked["evt5"])
		require.Len(t, paid.events, 1)
	})

	t.Run("db failure leaves the event unmarked for redelivery", func(t *testing.T) {
		store := newFakeStore()
		seedPlacedOrder(store, "o1")
		store.markErr = errors.New("connection reset")
		pay := &fakePayments{
			verifyFn: func([]byte, string) (payments.Event, error) {
				return completedEvent("evt4", "o1", 1200), nil
			},
		}
		svc, _, _, _, cache := newTestService(store, pay)

		err := svc.HandleWebhookEvent(context.Background(), []byte("{}"), "sig")
		require.Error(t, err)
		assert.False(t, cache.marked["evt4"])
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("owner moves the order through fulfillment", func(t *testing.T) {
		store := newFakeStore()
		seedPlacedOrder(store, "o1")
		svc, _, _, changed, cache := newTestService(store, &fakePayments{})

		order, err := svc.UpdateStatus(context.Background(), "o1", StatusInProgress, "owner1")
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, order.Status)
		assert.Equal(t, StatusInProgress, store.statuses["o1"])
		assert.Equal(t, StatusInProgress, cache.statuses["o1"])

		require.Len(t, changed.events, 1)
		var p OrderStatusChangedPayload
		require.NoError(t, json.Unmarshal(changed.events[0].Payload, &p))
		assert.Equal(t, StatusInProgress, p.Status)
	})

	t.Run("placed and paid are not owner-settable", func(t *testing.T) {
		store := newFakeStore()
		seedPlacedOrder(store, "o1")
		svc, _, _, _, _ := newTestService(store, &fakePayments{})

		for _, s := range []Status{StatusPlaced, StatusPaid, "bogus"} {
			_, err := svc.UpdateStatus(context.Background(), "o1", s, "owner1")
			var invalid InvalidStatusError
			assert.True(t, errors.As(err, &invalid), "status %q", s)
		}
		assert.Empty(t, store.statuses)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		store := newFakeStore()
		seedPlacedOrder(store, "o1")
		svc, _, _, changed, _ := newTestService(store, &fakePayments{})

		_, err := svc.UpdateStatus(context.Background(), "o1", StatusDelivered, "intruder")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Empty(t, store.statuses)
		assert.Empty(t, changed.events)
	})

	t.Run("unknown order", func(t *testing.T) {
		store := newFakeStore()
		svc, _, _, _, _ := newTestService(store, &fakePayments{})

		_, err := svc.UpdateStatus(context.Background(), "missing", StatusDelivered, "owner1")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestListForRestaurantOwner(t *testing.T) {
	store := newFakeStore()
	seedPlacedOrder(store, "o1")
	svc, _, _, _, _ := newTestService(store, &fakePayments{})

	list, err := svc.ListForRestaurantOwner(context.Background(), "owner1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListForRestaurantOwner(context.Background(), "nobody")
	assert.ErrorIs(t, err, restaurants.ErrNotFound)
}
