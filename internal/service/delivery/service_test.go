package delivery

import (
	"context"
	"sync"
	"testing"

	domain "github.com/mugz-josh/Deliverieseasy/internal/domain/delivery"
	"github.com/mugz-josh/Deliverieseasy/internal/domain/user"
	"github.com/mugz-josh/Deliverieseasy/internal/repository"
	"github.com/mugz-josh/Deliverieseasy/internal/service/notification"
	"github.com/mugz-josh/Deliverieseasy/pkg/database"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	email     string
	name      string
	service   string
	bookingID int64
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeNotifier) SendBookingConfirmation(_ context.Context, email, name, service string, id int64) notification.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{email, name, service, id})
	if f.fail {
		return notification.Result{Success: false, Error: "smtp down"}
	}
	return notification.Result{Success: true, MessageID: "<id@test>"}
}

func (f *fakeNotifier) mails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakePublisher) PublishDeliveryEvent(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

type fakeRecorder struct {
	mu            sync.Mutex
	created       int
	changes       []string
	locations     int
	notifications []bool
}

func (f *fakeRecorder) RecordDeliveryCreated(int64, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
}

func (f *fakeRecorder) RecordStatusChange(_ int64, from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, from+"->"+to)
}

func (f *fakeRecorder) RecordLocationUpdate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations++
}

func (f *fakeRecorder) RecordNotification(success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, success)
}

type fixture struct {
	svc       *Service
	notifier  *fakeNotifier
	publisher *fakePublisher
	recorder  *fakeRecorder
	users     *repository.UserRepository
}

func setup(t *testing.T, strict bool) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx, nil))

	f := &fixture{
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		recorder:  &fakeRecorder{},
		users:     repository.NewUserRepository(db),
	}
	f.svc = NewService(f.users, repository.NewDeliveryRepository(db), f.notifier, nil, Config{StrictTransitions: strict})
	f.svc.SetPublisher(f.publisher)
	f.svc.SetRecorder(f.recorder)
	return f
}

func (f *fixture) customer(t *testing.T) int64 {
	t.Helper()
	id, err := f.svc.FindOrCreateCustomer(context.Background(), "Jane", "jane@example.com", nil)
	require.NoError(t, err)
	return id
}

func (f *fixture) rider(t *testing.T, email string) int64 {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), CreateUserInput{Name: "Rider " + email, Email: email, Role: "rider"})
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) delivery(t *testing.T) *domain.Delivery {
	t.Helper()
	d, err := f.svc.CreateDelivery(context.Background(), CreateDeliveryInput{
		CustomerID: f.customer(t), PickupAddress: "A", DeliveryAddress: "B", PackageDescription: "Box",
	})
	require.NoError(t, err)
	return d
}

func floatPtr(v float64) *float64 { return &v }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestCreateDelivery(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	customer := f.customer(t)

	t.Run("Should create pending cash delivery", func(t *testing.T) {
		d, err := f.svc.CreateDelivery(ctx, CreateDeliveryInput{
			CustomerID: customer, PickupAddress: "A", DeliveryAddress: "B", PackageDescription: "Box",
		})
		require.NoError(t, err)
		assert.NotZero(t, d.ID)
		assert.Equal(t, domain.StatusPending, d.Status)
		assert.Equal(t, domain.PaymentCash, d.PaymentMethod)
		assert.False(t, d.CreatedAt.IsZero())
		require.NotNil(t, d.CustomerName)
		assert.Equal(t, "Jane", *d.CustomerName)
	})

	t.Run("Should generate distinct ids", func(t *testing.T) {
		a, err := f.svc.CreateDelivery(ctx, CreateDeliveryInput{CustomerID: customer, PickupAddress: "A", DeliveryAddress: "B", PackageDescription: "Box"})
		require.NoError(t, err)
		b, err := f.svc.CreateDelivery(ctx, CreateDeliveryInput{CustomerID: customer, PickupAddress: "A", DeliveryAddress: "B", PackageDescription: "Box"})
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	tests := []struct {
		name string
		in   CreateDeliveryInput
	}{
		{"missing customer", CreateDeliveryInput{PickupAddress: "A", DeliveryAddress: "B", PackageDescription: "Box"}},
		{"missing pickup", CreateDeliveryInput{CustomerID: customer, DeliveryAddress: "B", PackageDescription: "Box"}},
		{"blank delivery address", CreateDeliveryInput{CustomerID: customer, PickupAddress: "A", DeliveryAddress: "  ", PackageDescription: "Box"}},
		{"missing description", CreateDeliveryInput{CustomerID: customer, PickupAddress: "A", DeliveryAddress: "B"}},
		{"bad payment method", CreateDeliveryInput{CustomerID: customer, PickupAddress: "A", DeliveryAddress: "B", PackageDescription: "Box", PaymentMethod: "cheque"}},
		{"negative weight", CreateDeliveryInput{CustomerID: customer, PickupAddress: "A", DeliveryAddress: "B", PackageDescription: "Box", PackageWeight: floatPtr(-1)}},
		{"unknown customer", CreateDeliveryInput{CustomerID: 9999, PickupAddress: "A", DeliveryAddress: "B", PackageDescription: "Box"}},
	}
	for _, tt := range tests {
		t.Run("Should reject "+tt.name, func(t *testing.T) {
			_, err := f.svc.CreateDelivery(ctx, tt.in)
			assertCode(t, err, "VALIDATION_ERROR")
		})
	}
}

func TestGetDelivery_NotFound(t *testing.T) {
	f := setup(t, true)
	_, err := f.svc.GetDelivery(context.Background(), 999)
	assertCode(t, err, "NOT_FOUND")
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Should reject unknown status without mutation", func(t *testing.T) {
		f := setup(t, true)
		d := f.delivery(t)

		_, err := f.svc.UpdateStatus(ctx, d.ID, "banana", nil)
		assertCode(t, err, "VALIDATION_ERROR")

		got, err := f.svc.GetDelivery(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Equal(t, d.UpdatedAt, got.UpdatedAt)
	})

	t.Run("Should return not found for missing delivery", func(t *testing.T) {
		f := setup(t, true)
		_, err := f.svc.UpdateStatus(ctx, 999, "delivered", nil)
		assertCode(t, err, "NOT_FOUND")
	})

	t.Run("Should assign rider together with status", func(t *testing.T) {
		f := setup(t, true)
		d := f.delivery(t)
		rider := f.rider(t, "rex@example.com")

		got, err := f.svc.UpdateStatus(ctx, d.ID, "assigned", &rider)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAssigned, got.Status)
		require.NotNil(t, got.RiderID)
		assert.Equal(t, rider, *got.RiderID)
		assert.True(t, got.UpdatedAt.After(d.UpdatedAt) || got.UpdatedAt.Equal(d.UpdatedAt))
	})

	t.Run("Should reject non rider assignment", func(t *testing.T) {
		f := setup(t, true)
		d := f.delivery(t)

		_, err := f.svc.UpdateStatus(ctx, d.ID, "assigned", &d.CustomerID)
		assertCode(t, err, "VALIDATION_ERROR")

		missing := int64(4242)
		_, err = f.svc.UpdateStatus(ctx, d.ID, "assigned", &missing)
		assertCode(t, err, "VALIDATION_ERROR")

		got, err := f.svc.GetDelivery(ctx, d.ID)
		require.NoError(t, err)
		assert.Nil(t, got.RiderID)
		assert.Equal(t, domain.StatusPending, got.Status)
	})

	t.Run("Should reject delivered to pending in strict mode", func(t *testing.T) {
		f := setup(t, true)
		d := f.delivery(t)

		_, err := f.svc.UpdateStatus(ctx, d.ID, "delivered", nil)
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, d.ID, "pending", nil)
		assertCode(t, err, "INVALID_TRANSITION")
		assert.Equal(t, 422, apperrors.GetAppError(err).Status)

		logs, err := f.svc.ListDeliveryLogs(ctx, d.ID)
		require.NoError(t, err)
		assert.Len(t, logs, 2)
	})

	t.Run("Should allow any change when not strict", func(t *testing.T) {
		f := setup(t, false)
		d := f.delivery(t)

		_, err := f.svc.UpdateStatus(ctx, d.ID, "delivered", nil)
		require.NoError(t, err)
		got, err := f.svc.UpdateStatus(ctx, d.ID, "pending", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
	})

	t.Run("Should write audit trail and events", func(t *testing.T) {
		f := setup(t, true)
		d := f.delivery(t)
		rider := f.rider(t, "rex@example.com")

		_, err := f.svc.UpdateStatus(ctx, d.ID, "assigned", &rider)
		require.NoError(t, err)
		delivered, err := f.svc.UpdateStatus(ctx, d.ID, "delivered", nil)
		require.NoError(t, err)
		assert.NotNil(t, delivered.ActualDeliveryTime)

		logs, err := f.svc.ListDeliveryLogs(ctx, d.ID)
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, domain.StatusAssigned, logs[1].NewStatus)
		assert.Equal(t, domain.StatusDelivered, logs[2].NewStatus)
		require.NotNil(t, logs[2].OldStatus)
		assert.Equal(t, domain.StatusAssigned, *logs[2].OldStatus)

		assert.Equal(t, []string{"pending->assigned", "assigned->delivered"}, f.recorder.changes)
		require.Len(t, f.publisher.events, 3)
		assert.Equal(t, EventDeliveryCreated, f.publisher.events[0].Type)
		assert.Equal(t, EventStatusUpdated, f.publisher.events[2].Type)
	})
}

func TestUpdateStatus_ConcurrentRiderAssignment(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	d := f.delivery(t)
	riders := []int64{f.rider(t, "r1@example.com"), f.rider(t, "r2@example.com")}

	var wg sync.WaitGroup
	for _, r := range riders {
		wg.Add(1)
		go func(r int64) {
			defer wg.Done()
			_, _ = f.svc.UpdateStatus(ctx, d.ID, "assigned", &r)
		}(r)
	}
	wg.Wait()

	got, err := f.svc.GetDelivery(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, got.Status)
	require.NotNil(t, got.RiderID)
	assert.Contains(t, riders, *got.RiderID)
}

func TestUpdateLocation(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	d := f.delivery(t)

	_, err := f.svc.UpdateLocation(ctx, d.ID, floatPtr(1), nil)
	assertCode(t, err, "VALIDATION_ERROR")

	_, err = f.svc.UpdateLocation(ctx, d.ID, floatPtr(91), floatPtr(0))
	assertCode(t, err, "VALIDATION_ERROR")

	_, err = f.svc.UpdateLocation(ctx, 999, floatPtr(1), floatPtr(1))
	assertCode(t, err, "NOT_FOUND")

	got, err := f.svc.UpdateLocation(ctx, d.ID, floatPtr(0.3136), floatPtr(32.5811))
	require.NoError(t, err)
	require.NotNil(t, got.CurrentLocationLat)
	require.NotNil(t, got.CurrentLocationLng)
	assert.InDelta(t, 0.3136, *got.CurrentLocationLat, 1e-9)
	assert.Equal(t, 1, f.recorder.locations)

	_, err = f.svc.UpdateLocation(ctx, d.ID, floatPtr(5), nil)
	assertCode(t, err, "VALIDATION_ERROR")
	_, err = f.svc.UpdateLocation(ctx, d.ID, floatPtr(5), floatPtr(-180.5))
	assertCode(t, err, "VALIDATION_ERROR")

	stored, err := f.svc.GetDelivery(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentLocationLat)
	require.NotNil(t, stored.CurrentLocationLng)
	assert.InDelta(t, 0.3136, *stored.CurrentLocationLat, 1e-9)
	assert.InDelta(t, 32.5811, *stored.CurrentLocationLng, 1e-9)
	assert.Equal(t, 1, f.recorder.locations)
}

func TestFindOrCreateCustomer(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.svc.FindOrCreateCustomer(ctx, "", "x@example.com", nil)
	assertCode(t, err, "VALIDATION_ERROR")
	_, err = f.svc.FindOrCreateCustomer(ctx, "X", " ", nil)
	assertCode(t, err, "VALIDATION_ERROR")

	for _, email := range []string{"a@@b", "x@y@z", "@@x.com", "a@.", "foo@bar,baz@qux", "no-at-sign"} {
		_, err = f.svc.FindOrCreateCustomer(ctx, "N", email, nil)
		assertCode(t, err, "VALIDATION_ERROR")
	}
	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	first, err := f.svc.FindOrCreateCustomer(ctx, "Jane", "Jane@Example.com ", nil)
	require.NoError(t, err)
	second, err := f.svc.FindOrCreateCustomer(ctx, "Jane", "jane@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUsers(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, CreateUserInput{Name: "Zed", Email: "zed@example.com", Password: "hunter22", Role: "rider"})
	require.NoError(t, err)
	require.NotNil(t, u.PasswordHash)
	assert.NotEqual(t, "hunter22", *u.PasswordHash)

	_, err = f.svc.CreateUser(ctx, CreateUserInput{Name: "Zed", Email: "ZED@example.com"})
	assertCode(t, err, "CONFLICT")

	_, err = f.svc.CreateUser(ctx, CreateUserInput{Name: "Q", Email: "q@example.com", Role: "pilot"})
	assertCode(t, err, "VALIDATION_ERROR")

	f.rider(t, "amy@example.com")
	riders, err := f.svc.ListRiders(ctx)
	require.NoError(t, err)
	require.Len(t, riders, 2)
	assert.Equal(t, "Rider amy@example.com", riders[0].Name)
	assert.Equal(t, "Zed", riders[1].Name)

	_, err = f.svc.UpdateUserRole(ctx, u.ID, "superuser")
	assertCode(t, err, "VALIDATION_ERROR")
	_, err = f.svc.UpdateUserRole(ctx, 999, "admin")
	assertCode(t, err, "NOT_FOUND")

	updated, err := f.svc.UpdateUserRole(ctx, u.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, updated.Role)

	require.NoError(t, f.svc.DeleteUser(ctx, u.ID))
	_, err = f.svc.GetUser(ctx, u.ID)
	assertCode(t, err, "NOT_FOUND")
	assertCode(t, f.svc.DeleteUser(ctx, u.ID), "NOT_FOUND")

	d := f.delivery(t)
	assertCode(t, f.svc.DeleteUser(ctx, d.CustomerID), "CONFLICT")
}

func TestCreateBooking(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, BookingInput{Email: "a@example.com"})
	assertCode(t, err, "VALIDATION_ERROR")

	d, err := f.svc.CreateBooking(ctx, BookingInput{CustomerName: "Ann", Email: "ann@example.com", Phone: "0700"})
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, "To be arranged", d.PickupAddress)
	assert.Equal(t, "To be arranged", d.DeliveryAddress)
	assert.Equal(t, "Delivery service", d.PackageDescription)
	assert.Equal(t, domain.StatusPending, d.Status)

	mails := f.notifier.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, sentMail{"ann@example.com", "Ann", "Delivery service", d.ID}, mails[0])

	again, err := f.svc.CreateBooking(ctx, BookingInput{Service: "Express", CustomerName: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, d.CustomerID, again.CustomerID)
	assert.Equal(t, "Express", again.PackageDescription)
}

func TestSendPackage(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.svc.SendPackage(ctx, PackageInput{Email: "s@example.com"})
	assertCode(t, err, "VALIDATION_ERROR")

	d, err := f.svc.SendPackage(ctx, PackageInput{
		Sender: "Sam", Receiver: "Rita", Email: "sam@example.com",
		PickupAddress: "Kampala Rd", DeliveryAddress: "Entebbe", Weight: floatPtr(2.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Package (2.5kg)", d.PackageDescription)
	assert.Equal(t, "Kampala Rd", d.PickupAddress)
	require.NotNil(t, d.PackageWeight)

	plain, err := f.svc.SendPackage(ctx, PackageInput{Sender: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Package delivery", plain.PackageDescription)
	assert.Nil(t, plain.PackageWeight)

	f.svc.Wait()
	mails := f.notifier.mails()
	require.Len(t, mails, 2)
	assert.Equal(t, "Package Delivery", mails[0].service)
}

func TestNotificationFailureDoesNotFailBooking(t *testing.T) {
	f := setup(t, true)
	f.notifier.fail = true

	d, err := f.svc.SendPackage(context.Background(), PackageInput{Sender: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.NotZero(t, d.ID)

	f.svc.Wait()
	assert.Equal(t, []bool{false}, f.recorder.notifications)
}
