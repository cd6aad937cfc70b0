package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/gateway/razorpay"
	"storefront/internal/logging"
	"storefront/internal/notify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test_secret"

type stubGateway struct {
	amount   int64
	currency string
	receipt  string
	err      error
}

func (g *stubGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (json.RawMessage, error) {
	g.amount, g.currency, g.receipt = amount, currency, receipt
	if g.err != nil {
		return nil, g.err
	}
	return json.RawMessage(`{"id":"order_X"}`), nil
}

func (g *stubGateway) VerifyPayment(orderID, paymentID, signature string) error {
	if !razorpay.VerifySignature(secret, orderID, paymentID, signature) {
		return domain.ErrVerification
	}
	return nil
}

type memoryOrders struct {
	mu        sync.Mutex
	byPayment map[string]domain.Order
	createErr error
	creates   int
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{byPayment: map[string]domain.Order{}}
}

func (m *memoryOrders) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.byPayment[o.PaymentID]; ok {
		return nil, domain.ErrAlreadyExists
	}
	m.byPayment[o.PaymentID] = o
	return &o, nil
}

func (m *memoryOrders) GetByPaymentID(_ context.Context, paymentID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byPayment[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

type memoryLocks struct {
	locked   map[string]bool
	results  map[string]string
	err      error
	released []string
}

func newMemoryLocks() *memoryLocks {
	return &memoryLocks{locked: map[string]bool{}, results: map[string]string{}}
}

func (l *memoryLocks) TryLock(_ context.Context, scope, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	k := scope + ":" + key
	if l.locked[k] {
		return false, nil
	}
	l.locked[k] = true
	return true, nil
}

func (l *memoryLocks) Release(_ context.Context, scope, key string) error {
	delete(l.locked, scope+":"+key)
	l.released = append(l.released, key)
	return nil
}

func (l *memoryLocks) Remember(_ context.Context, scope, key, value string) error {
	if l.err != nil {
		return l.err
	}
	l.results[scope+":"+key] = value
	return nil
}

func (l *memoryLocks) Recall(_ context.Context, scope, key string) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	v, ok := l.results[scope+":"+key]
	return v, ok, nil
}

type stubNotifier struct {
	calls  int
	failed bool
}

func (n *stubNotifier) OrderPlaced(_ context.Context, _ domain.Order) []notify.Outcome {
	n.calls++
	var err error
	if n.failed {
		err = errors.New("smtp: connection refused")
	}
	return []notify.Outcome{
		{Channel: notify.ChannelCustomerOrder, Err: err},
		{Channel: notify.ChannelCustomerPayment, Err: err},
		{Channel: notify.ChannelAdminOrder, Err: err},
	}
}

type stubCarts struct{ cleared []string }

func (c *stubCarts) Clear(_ context.Context, userID string) error {
	c.cleared = append(c.cleared, userID)
	return nil
}

type fixture struct {
	svc      *Service
	gateway  *stubGateway
	orders   *memoryOrders
	locks    *memoryLocks
	notifier *stubNotifier
	carts    *stubCarts
}

func newFixture() *fixture {
	f := &fixture{
		gateway:  &stubGateway{},
		orders:   newMemoryOrders(),
		locks:    newMemoryLocks(),
		notifier: &stubNotifier{},
		carts:    &stubCarts{},
	}
	f.svc = New(f.gateway, f.orders, f.locks, f.notifier, f.carts, logging.Discard())
	return f
}

func validInput(paymentID string) FinalizeInput {
	return FinalizeInput{
		GatewayOrderID: "order_abc",
		PaymentID:      paymentID,
		Signature:      razorpay.Sign(secret, "order_abc", paymentID),
		OrderData: OrderData{
			UserID: "u1",
			Items: []domain.OrderItem{
				{ProductID: "p1", Name: "Mug", Quantity: 1, Price: decimal.RequireFromString("499.99")},
			},
			Total:     decimal.RequireFromString("499.99"),
			Address:   domain.Address{Line1: "1 Main St", City: "Pune", State: "MH", Pincode: "411001"},
			UserEmail: "jane@example.com",
			UserName:  "Jane",
		},
	}
}

func TestMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"499.99": 49999,
		"0.29":   29,
		"1":      100,
		"10.005": 1001,
		"10.004": 1000,
		"19.999": 2000,
	}
	for in, want := range cases {
		got, err := MinorUnits(decimal.RequireFromString(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestMinorUnits_RejectsOverflow(t *testing.T) {
	got, err := MinorUnits(decimal.RequireFromString("999999999999.99"))
	require.NoError(t, err)
	assert.Equal(t, int64(99999999999999), got)

	for _, in := range []string{
		"1000000000000",
		"100000000000000000",
		"200000000000000000",
		"184467440737095516.17",
		"-100000000000000000",
	} {
		_, err := MinorUnits(decimal.RequireFromString(in))
		assert.True(t, domain.IsValidation(err), "%s -> %v", in, err)
	}
}

func TestCreateIntent_ConvertsToMinorUnits(t *testing.T) {
	f := newFixture()
	raw, err := f.svc.CreateIntent(context.Background(), IntentInput{
		Amount:  decimal.RequireFromString("499.99"),
		Receipt: "order_abc",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"order_X"}`, string(raw))
	assert.Equal(t, int64(49999), f.gateway.amount)
	assert.Equal(t, "INR", f.gateway.currency)
	assert.Equal(t, "order_abc", f.gateway.receipt)
}

func TestCreateIntent_Validation(t *testing.T) {
	f := newFixture()
	cases := []IntentInput{
		{Amount: decimal.Zero, Receipt: "r"},
		{Amount: decimal.RequireFromString("-1"), Receipt: "r"},
		{Amount: decimal.RequireFromString("1"), Receipt: " "},
		{Amount: decimal.RequireFromString("1"), Receipt: "r", Currency: "RUPEES"},
		{Amount: decimal.RequireFromString("0.001"), Receipt: "r"},
		{Amount: decimal.RequireFromString("184467440737095516.17"), Receipt: "r"},
	}
	for _, in := range cases {
		_, err := f.svc.CreateIntent(context.Background(), in)
		assert.True(t, domain.IsValidation(err), "%+v -> %v", in, err)
	}
	assert.Zero(t, f.gateway.amount, "gateway must not be called")
}

func TestCreateIntent_UpstreamError(t *testing.T) {
	f := newFixture()
	f.gateway.err = &domain.UpstreamError{Service: "razorpay", StatusCode: 502}
	_, err := f.svc.CreateIntent(context.Background(), IntentInput{Amount: decimal.NewFromInt(1), Receipt: "r"})
	assert.True(t, domain.IsUpstream(err))
}

func TestFinalize_CreatesOrderAndNotifies(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)
	require.NotEmpty(t, res.OrderID)
	assert.False(t, res.Duplicate)
	assert.Empty(t, res.Warnings)
	assert.Len(t, res.Notifications, 3)

	stored := f.orders.byPayment["pay_1"]
	assert.Equal(t, res.OrderID, stored.ID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, "order_abc", stored.GatewayOrderID)
	assert.Equal(t, 1, f.notifier.calls)
	assert.Equal(t, []string{"u1"}, f.carts.cleared)
	assert.Equal(t, res.OrderID, f.locks.results["payment:pay_1"])
}

func TestFinalize_StoresSuppliedTotal(t *testing.T) {
	f := newFixture()
	in := validInput("pay_total")
	in.OrderData.Total = decimal.RequireFromString("1.00")

	res, err := f.svc.Finalize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "1.00", f.orders.byPayment["pay_total"].Total.StringFixed(2))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "differs from item sum 499.99")
}

func TestFinalize_BadSignatureWritesNothing(t *testing.T) {
	f := newFixture()
	in := validInput("pay_1")
	in.Signature = razorpay.Sign("wrong", "order_abc", "pay_1")

	_, err := f.svc.Finalize(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrVerification)
	assert.Equal(t, 0, f.orders.creates)
	assert.Equal(t, 0, f.notifier.calls)
	assert.Empty(t, f.locks.locked)
}

func TestFinalize_ReplayReturnsSameOrder(t *testing.T) {
	f := newFixture()
	first, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)

	second, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, f.orders.creates)
	assert.Equal(t, 1, f.notifier.calls, "replay must not notify again")
}

func TestFinalize_ReplayAfterOrderDeleted(t *testing.T) {
	f := newFixture()
	first, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)
	require.Equal(t, first.OrderID, f.locks.results["payment:pay_1"])

	delete(f.orders.byPayment, "pay_1")

	second, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.OrderID, second.OrderID, "deleted order id must not be reported")
	assert.Equal(t, second.OrderID, f.orders.byPayment["pay_1"].ID)
	assert.Equal(t, second.OrderID, f.locks.results["payment:pay_1"])
}

func TestFinalize_ReplayWithoutRedisUsesDatabase(t *testing.T) {
	f := newFixture()
	f.svc = New(f.gateway, f.orders, nil, f.notifier, nil, logging.Discard())

	first, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)
	second, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, f.orders.byPayment, 1)
}

func TestFinalize_RedisOutageDegrades(t *testing.T) {
	f := newFixture()
	f.locks.err = errors.New("dial tcp: connection refused")

	res, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderID)
	assert.Equal(t, 1, f.orders.creates)
}

func TestFinalize_InFlightIsConflict(t *testing.T) {
	f := newFixture()
	f.locks.locked["payment:pay_1"] = true

	_, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 0, f.orders.creates)
}

func TestFinalize_NotificationFailuresDoNotFail(t *testing.T) {
	f := newFixture()
	f.notifier.failed = true

	res, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderID)
	assert.Len(t, res.Warnings, 3)
	assert.Len(t, notify.Failures(res.Notifications), 3)
}

func TestFinalize_PersistFailureReleasesLock(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.New("connection reset")

	_, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.Error(t, err)
	assert.Equal(t, []string{"pay_1"}, f.locks.released)
	assert.Equal(t, 0, f.notifier.calls)

	f.orders.createErr = nil
	res, err := f.svc.Finalize(context.Background(), validInput("pay_1"))
	require.NoError(t, err, "retry after release succeeds")
	assert.NotEmpty(t, res.OrderID)
}

func TestFinalize_Validation(t *testing.T) {
	f := newFixture()
	mutations := []func(*FinalizeInput){
		func(in *FinalizeInput) { in.GatewayOrderID = "" },
		func(in *FinalizeInput) { in.PaymentID = "" },
		func(in *FinalizeInput) { in.Signature = "" },
		func(in *FinalizeInput) { in.OrderData.UserID = "" },
		func(in *FinalizeInput) { in.OrderData.UserEmail = "" },
		func(in *FinalizeInput) { in.OrderData.Items = nil },
		func(in *FinalizeInput) { in.OrderData.Items[0].Quantity = 0 },
		func(in *FinalizeInput) { in.OrderData.Total = decimal.RequireFromString("100.005") },
		func(in *FinalizeInput) { in.OrderData.Total = decimal.RequireFromString("1000000000000") },
	}
	for i, mutate := range mutations {
		in := validInput("pay_v")
		mutate(&in)
		_, err := f.svc.Finalize(context.Background(), in)
		assert.True(t, domain.IsValidation(err), "case %d: %v", i, err)
	}
	assert.Equal(t, 0, f.orders.creates)
}

// Intent through a real gateway client, then finalize with a matching signature.
func TestCheckout_EndToEnd(t *testing.T) {
	var sent struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":49999,"currency":"INR","receipt":"order_abc"}`))
	}))
	defer srv.Close()

	gw := razorpay.NewClient(razorpay.Config{KeyID: "key", KeySecret: secret, BaseURL: srv.URL}, logging.Discard())
	orders := newMemoryOrders()
	notifier := &stubNotifier{}
	svc := New(gw, orders, newMemoryLocks(), notifier, nil, logging.Discard())

	_, err := svc.CreateIntent(context.Background(), IntentInput{
		Amount:   decimal.RequireFromString("499.99"),
		Currency: "INR",
		Receipt:  "order_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(49999), sent.Amount)
	assert.Equal(t, "INR", sent.Currency)
	assert.Equal(t, "order_abc", sent.Receipt)

	in := validInput("pay_e2e")
	in.OrderData.Total = decimal.RequireFromString("450.00")
	res, err := svc.Finalize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "450.00", orders.byPayment["pay_e2e"].Total.StringFixed(2))
	assert.Equal(t, 1, notifier.calls)
	assert.Len(t, res.Notifications, 3)
}
