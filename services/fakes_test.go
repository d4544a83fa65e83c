package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stayhub-backend/models"
	"stayhub-backend/repository"

	"go.uber.org/zap"
)

// In-memory stores for exercising the services without a database. All
// methods copy on read and write so mutations only become visible through
// Update/Create, like rows do. WithinTx serializes on one mutex, which is
// how row locks behave for the single-room, single-account cases the tests
// drive.

type memStores struct {
	mu sync.Mutex

	bookings  map[uint]models.Booking
	payments  map[uint]models.PaymentTransaction
	accounts  map[uint]models.LoyaltyAccount
	entries   []models.LoyaltyTransaction
	rooms     map[uint]models.Room
	customers map[uint]models.Customer
	events    map[string]models.WebhookEvent

	nextBookingID uint
	nextPaymentID uint
	nextAccountID uint
	nextEntryID   uint
}

type memUOW struct {
	*memStores
	txMu sync.Mutex
}

func newMemUOW() *memUOW {
	return &memUOW{memStores: &memStores{
		bookings:  map[uint]models.Booking{},
		payments:  map[uint]models.PaymentTransaction{},
		accounts:  map[uint]models.LoyaltyAccount{},
		rooms:     map[uint]models.Room{},
		customers: map[uint]models.Customer{},
		events:    map[string]models.WebhookEvent{},
	}}
}

func (u *memUOW) WithinTx(ctx context.Context, fn func(st repository.Stores) error) error {
	u.txMu.Lock()
	defer u.txMu.Unlock()
	return fn(u.memStores)
}

func (m *memStores) Bookings() repository.BookingStore         { return (*memBookings)(m) }
func (m *memStores) Payments() repository.PaymentStore         { return (*memPayments)(m) }
func (m *memStores) Loyalty() repository.LoyaltyStore          { return (*memLoyalty)(m) }
func (m *memStores) Rooms() repository.RoomStore               { return (*memRooms)(m) }
func (m *memStores) Customers() repository.CustomerStore       { return (*memCustomers)(m) }
func (m *memStores) WebhookEvents() repository.WebhookEventStore { return (*memEvents)(m) }

// --- seeding helpers ---

func (u *memUOW) seedRoom(id uint, priceCents int64, maxOccupancy int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	room := models.Room{
		RoomNumber:   fmt.Sprintf("R%d", id),
		PriceCents:   priceCents,
		MaxOccupancy: maxOccupancy,
	}
	room.ID = id
	u.rooms[id] = room
}

func (u *memUOW) seedCustomer(id uint) {
	u.mu.Lock()
	defer u.mu.Unlock()
	c := models.Customer{FullName: fmt.Sprintf("Customer %d", id)}
	c.ID = id
	u.customers[id] = c
}

func (u *memUOW) seedBooking(b models.Booking) uint {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nextBookingID++
	b.ID = u.nextBookingID
	if b.ReferenceCode == "" {
		b.ReferenceCode = fmt.Sprintf("BK-SEED%04d", b.ID)
	}
	u.bookings[b.ID] = b
	return b.ID
}

func (u *memUOW) seedPayment(t models.PaymentTransaction) uint {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nextPaymentID++
	t.ID = u.nextPaymentID
	u.payments[t.ID] = t
	return t.ID
}

func (u *memUOW) seedAccount(a models.LoyaltyAccount) uint {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nextAccountID++
	a.ID = u.nextAccountID
	u.accounts[a.ID] = a
	return a.ID
}

func (u *memUOW) getBooking(id uint) models.Booking {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bookings[id]
}

func (u *memUOW) getPayment(id uint) models.PaymentTransaction {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.payments[id]
}

func (u *memUOW) accountFor(customerID uint) (models.LoyaltyAccount, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, a := range u.accounts {
		if a.CustomerID == customerID {
			return a, true
		}
	}
	return models.LoyaltyAccount{}, false
}

func (u *memUOW) entriesFor(accountID uint) []models.LoyaltyTransaction {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []models.LoyaltyTransaction
	for _, e := range u.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// --- bookings ---

type memBookings memStores

func (m *memBookings) Create(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ReferenceCode == booking.ReferenceCode {
			return repository.ErrDuplicate
		}
	}
	m.nextBookingID++
	booking.ID = m.nextBookingID
	booking.CreatedAt = time.Now()
	m.bookings[booking.ID] = *booking
	return nil
}

func (m *memBookings) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m *memBookings) GetByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	return m.GetByID(ctx, id)
}

func (m *memBookings) Update(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[booking.ID]; !ok {
		return repository.ErrNotFound
	}
	m.bookings[booking.ID] = *booking
	return nil
}

func (m *memBookings) HasOverlap(ctx context.Context, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.RoomID != roomID || !b.OccupiesRoom() {
			continue
		}
		if b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn) {
			return true, nil
		}
	}
	return false, nil
}

// --- payments ---

type memPayments memStores

func (m *memPayments) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.payments {
		if t.ExternalIntentID == txn.ExternalIntentID {
			return repository.ErrDuplicate
		}
	}
	m.nextPaymentID++
	txn.ID = m.nextPaymentID
	txn.CreatedAt = time.Now()
	m.payments[txn.ID] = *txn
	return nil
}

func (m *memPayments) GetByID(ctx context.Context, id uint) (*models.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memPayments) GetByIDForUpdate(ctx context.Context, id uint) (*models.PaymentTransaction, error) {
	return m.GetByID(ctx, id)
}

func (m *memPayments) GetByIntentID(ctx context.Context, intentID string) (*models.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.payments {
		if t.ExternalIntentID == intentID {
			cp := t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPayments) GetByIntentIDForUpdate(ctx context.Context, intentID string) (*models.PaymentTransaction, error) {
	return m.GetByIntentID(ctx, intentID)
}

func (m *memPayments) FindActiveByBookingID(ctx context.Context, bookingID uint) (*models.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.payments {
		if t.BookingID == bookingID && t.Active() {
			cp := t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPayments) Update(ctx context.Context, txn *models.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[txn.ID]; !ok {
		return repository.ErrNotFound
	}
	m.payments[txn.ID] = *txn
	return nil
}

// --- loyalty ---

type memLoyalty memStores

func (m *memLoyalty) GetAccountByCustomerID(ctx context.Context, customerID uint) (*models.LoyaltyAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.CustomerID == customerID {
			cp := a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memLoyalty) GetAccountByCustomerIDForUpdate(ctx context.Context, customerID uint) (*models.LoyaltyAccount, error) {
	return m.GetAccountByCustomerID(ctx, customerID)
}

func (m *memLoyalty) CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.CustomerID == account.CustomerID {
			return repository.ErrDuplicate
		}
	}
	m.nextAccountID++
	account.ID = m.nextAccountID
	m.accounts[account.ID] = *account
	return nil
}

func (m *memLoyalty) UpdateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	m.accounts[account.ID] = *account
	return nil
}

func (m *memLoyalty) AppendEntry(ctx context.Context, entry *models.LoyaltyTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEntryID++
	entry.ID = m.nextEntryID
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memLoyalty) ListEntries(ctx context.Context, accountID uint, limit int) ([]models.LoyaltyTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LoyaltyTransaction
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].AccountID == accountID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memLoyalty) SumEntries(ctx context.Context, accountID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.AccountID == accountID {
			sum += e.Points
		}
	}
	return sum, nil
}

// --- rooms / customers ---

type memRooms memStores

func (m *memRooms) GetByID(ctx context.Context, id uint) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memRooms) GetByIDForUpdate(ctx context.Context, id uint) (*models.Room, error) {
	return m.GetByID(ctx, id)
}

type memCustomers memStores

func (m *memCustomers) GetByID(ctx context.Context, id uint) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// --- webhook events ---

type memEvents memStores

func (m *memEvents) Insert(ctx context.Context, event *models.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := event.IntentID + "|" + event.EventType
	if _, ok := m.events[key]; ok {
		return repository.ErrDuplicate
	}
	m.events[key] = *event
	return nil
}

// --- fake gateway ---

type refundCall struct {
	IntentID       string
	AmountCents    int64
	IdempotencyKey string
}

type fakeGateway struct {
	mu sync.Mutex

	createErr   error
	retrieveErr error
	refundErr   error

	intents     map[string]GatewayIntent
	createCalls int
	refunds     []refundCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]GatewayIntent{}}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*GatewayIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.createCalls++
	intent := GatewayIntent{
		ID:           fmt.Sprintf("pi_test_%d", g.createCalls),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", g.createCalls),
		Amount:       amountCents,
		Currency:     currency,
		Status:       "requires_payment_method",
	}
	g.intents[intent.ID] = intent
	return &intent, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (*GatewayIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, &ExternalGatewayError{Op: "retrieve intent", Err: fmt.Errorf("no such intent %s", intentID)}
	}
	return &intent, nil
}

func (g *fakeGateway) Refund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) (*GatewayRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, refundCall{IntentID: intentID, AmountCents: amountCents, IdempotencyKey: idempotencyKey})
	return &GatewayRefund{ID: fmt.Sprintf("re_test_%d", len(g.refunds)), Status: "succeeded", Amount: amountCents}, nil
}

func (g *fakeGateway) setStatus(intentID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent := g.intents[intentID]
	intent.Status = status
	g.intents[intentID] = intent
}

// --- fake notifier ---

type notifierCall struct {
	Type      string
	BookingID uint
	Amount    int64
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *fakeNotifier) BookingConfirmed(ctx context.Context, booking *models.Booking) {
	n.record(NotifyBookingConfirmed, booking.ID, 0)
}

func (n *fakeNotifier) PaymentReceipt(ctx context.Context, booking *models.Booking, amountCents int64) {
	n.record(NotifyPaymentReceipt, booking.ID, amountCents)
}

func (n *fakeNotifier) BookingCancelled(ctx context.Context, booking *models.Booking, refundCents int64) {
	n.record(NotifyBookingCancelled, booking.ID, refundCents)
}

func (n *fakeNotifier) record(typ string, bookingID uint, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{Type: typ, BookingID: bookingID, Amount: amount})
}

func (n *fakeNotifier) callsOf(typ string) []notifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifierCall
	for _, c := range n.calls {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func testLogger() *zap.Logger { return zap.NewNop() }
