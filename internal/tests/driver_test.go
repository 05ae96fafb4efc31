package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/service"
)

type driverFixture struct {
	driverRepo    *MockDriverRepository
	tripRepo      *MockTripRepository
	locationStore *MockLocationStore
	emitter       *MockEmitter
	service       *service.DriverService
}

func newDriverFixture() *driverFixture {
	driverRepo := NewMockDriverRepository()
	tripRepo := NewMockTripRepository()
	locationStore := NewMockLocationStore()
	emitter := NewMockEmitter()

	matcher := service.NewMatcher(tripRepo, service.DefaultMatcherConfig())
	notifier := service.NewNotifier(emitter)

	svc := service.NewDriverService(
		driverRepo, tripRepo, locationStore, nil, matcher, notifier, 3,
	)

	return &driverFixture{
		driverRepo:    driverRepo,
		tripRepo:      tripRepo,
		locationStore: locationStore,
		emitter:       emitter,
		service:       svc,
	}
}

func (f *driverFixture) addDriver(id string, status domain.DriverStatus) {
	f.driverRepo.AddDriver(&domain.Driver{
		ID:     id,
		Name:   "Driver " + id,
		Email:  id + "@example.com",
		Status: status,
	})
}

func TestRegisterDriver_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()

	first, err := f.service.RegisterDriver(ctx, service.RegisterDriverRequest{
		Name:  "Asha",
		Email: "asha@example.com",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if first.Status != domain.DriverStatusOffline {
		t.Errorf("new drivers start OFFLINE, got %s", first.Status)
	}

	_, err = f.service.RegisterDriver(ctx, service.RegisterDriverRequest{
		Name:  "Another",
		Email: "asha@example.com",
	})
	if !errors.Is(err, service.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateLocation_SetsDriverOnline(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.addDriver("driver-1", domain.DriverStatusOffline)

	err := f.service.UpdateLocation(ctx, service.UpdateLocationRequest{
		DriverID: "driver-1",
		Location: cityCenter,
	})
	if err != nil {
		t.Fatalf("update location failed: %v", err)
	}

	driver, err := f.driverRepo.GetByID(ctx, "driver-1")
	if err != nil {
		t.Fatalf("failed to load driver: %v", err)
	}
	if driver.Status != domain.DriverStatusOnline {
		t.Errorf("expected ONLINE, got %s", driver.Status)
	}

	nearby, err := f.locationStore.FindNearbyDrivers(ctx, cityCenter, 1.0)
	if err != nil {
		t.Fatalf("find nearby failed: %v", err)
	}
	if len(nearby) != 1 || nearby[0].DriverID != "driver-1" {
		t.Errorf("expected driver-1 in the geo index, got %+v", nearby)
	}
}

func TestSetDriverOffline_RemovesFromGeoIndex(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.addDriver("driver-1", domain.DriverStatusOnline)

	if err := f.service.UpdateLocation(ctx, service.UpdateLocationRequest{
		DriverID: "driver-1",
		Location: cityCenter,
	}); err != nil {
		t.Fatalf("update location failed: %v", err)
	}

	if err := f.service.SetDriverOffline(ctx, "driver-1"); err != nil {
		t.Fatalf("set offline failed: %v", err)
	}

	driver, err := f.driverRepo.GetByID(ctx, "driver-1")
	if err != nil {
		t.Fatalf("failed to load driver: %v", err)
	}
	if driver.Status != domain.DriverStatusOffline {
		t.Errorf("expected OFFLINE, got %s", driver.Status)
	}

	nearby, err := f.locationStore.FindNearbyDrivers(ctx, cityCenter, 5.0)
	if err != nil {
		t.Fatalf("find nearby failed: %v", err)
	}
	if len(nearby) != 0 {
		t.Errorf("expected empty geo index, got %+v", nearby)
	}
}

func TestAcceptTrip_AssignsDriver(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.addDriver("driver-1", domain.DriverStatusOnline)
	f.tripRepo.AddTrip(pendingTrip("trip-1", cityCenter, cityDropoff, time.Now(), "rider-1"))

	trip, err := f.service.AcceptTrip(ctx, "driver-1", "trip-1")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if trip.Status != domain.TripStatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", trip.Status)
	}
	if trip.DriverID != "driver-1" {
		t.Errorf("expected driver-1 assigned, got %q", trip.DriverID)
	}

	driver, err := f.driverRepo.GetByID(ctx, "driver-1")
	if err != nil {
		t.Fatalf("failed to load driver: %v", err)
	}
	if driver.Status != domain.DriverStatusOnTrip {
		t.Errorf("expected ON_TRIP, got %s", driver.Status)
	}

	// A second driver cannot accept the same trip.
	f.addDriver("driver-2", domain.DriverStatusOnline)
	if _, err := f.service.AcceptTrip(ctx, "driver-2", "trip-1"); !errors.Is(err, service.ErrTripNotAvailable) {
		t.Errorf("expected ErrTripNotAvailable, got %v", err)
	}
}

func TestAcceptTrip_UnknownDriverLeavesTripUntouched(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.tripRepo.AddTrip(pendingTrip("trip-1", cityCenter, cityDropoff, time.Now(), "rider-1"))

	_, err := f.service.AcceptTrip(ctx, "ghost-driver", "trip-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown driver, got %v", err)
	}

	trip, err := f.tripRepo.GetByID(ctx, "trip-1")
	if err != nil {
		t.Fatalf("failed to load trip: %v", err)
	}
	if trip.Status != domain.TripStatusPending {
		t.Errorf("expected trip to stay PENDING, got %s", trip.Status)
	}
	if trip.DriverID != "" {
		t.Errorf("expected no driver assigned, got %q", trip.DriverID)
	}
}

func TestAcceptTrip_SucceedsWhenStatusFlipFails(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.addDriver("driver-1", domain.DriverStatusOnline)
	f.tripRepo.AddTrip(pendingTrip("trip-1", cityCenter, cityDropoff, time.Now(), "rider-1"))

	// The assignment is the primary mutation; a broken status flip
	// afterwards must not make the accept look failed.
	f.driverRepo.UpdateStatusError = errors.New("status store down")

	trip, err := f.service.AcceptTrip(ctx, "driver-1", "trip-1")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if trip.Status != domain.TripStatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", trip.Status)
	}
	if trip.DriverID != "driver-1" {
		t.Errorf("expected driver-1 assigned, got %q", trip.DriverID)
	}
}

func TestAcceptTrip_ClearsEarlierRejection(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.addDriver("driver-1", domain.DriverStatusOnline)
	f.tripRepo.AddTrip(pendingTrip("trip-1", cityCenter, cityDropoff, time.Now(), "rider-1"))

	if err := f.service.RejectTrip(ctx, "driver-1", "trip-1"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	trip, err := f.service.AcceptTrip(ctx, "driver-1", "trip-1")
	if err != nil {
		t.Fatalf("accept after reject failed: %v", err)
	}
	if trip.RejectedBy("driver-1") {
		t.Error("acceptance must clear the driver's earlier rejection")
	}
}

func TestRejectTrip_HidesTripFromDriver(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.addDriver("driver-1", domain.DriverStatusOnline)
	f.tripRepo.AddTrip(pendingTrip("trip-1", cityCenter, cityDropoff, time.Now(), "rider-1"))

	nearby, err := f.service.NearbyTrips(ctx, "driver-1", cityCenter)
	if err != nil {
		t.Fatalf("nearby failed: %v", err)
	}
	if len(nearby) != 1 {
		t.Fatalf("expected 1 nearby trip, got %d", len(nearby))
	}

	if err := f.service.RejectTrip(ctx, "driver-1", "trip-1"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	// Rejecting twice is a no-op.
	if err := f.service.RejectTrip(ctx, "driver-1", "trip-1"); err != nil {
		t.Fatalf("repeat reject failed: %v", err)
	}

	nearby, err = f.service.NearbyTrips(ctx, "driver-1", cityCenter)
	if err != nil {
		t.Fatalf("nearby failed: %v", err)
	}
	if len(nearby) != 0 {
		t.Errorf("expected rejected trip to be hidden, got %d trips", len(nearby))
	}

	trip, err := f.tripRepo.GetByID(ctx, "trip-1")
	if err != nil {
		t.Fatalf("failed to load trip: %v", err)
	}
	if len(trip.RejectedDrivers) != 1 {
		t.Errorf("expected 1 rejection recorded, got %d", len(trip.RejectedDrivers))
	}
}

func TestRejectTrip_AcceptedTripCannotBeRejected(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.addDriver("driver-1", domain.DriverStatusOnline)
	f.tripRepo.AddTrip(pendingTrip("trip-1", cityCenter, cityDropoff, time.Now(), "rider-1"))

	if _, err := f.service.AcceptTrip(ctx, "driver-1", "trip-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if err := f.service.RejectTrip(ctx, "driver-1", "trip-1"); !errors.Is(err, service.ErrTripNotAvailable) {
		t.Fatalf("expected ErrTripNotAvailable, got %v", err)
	}

	// The assigned driver never shows up in the rejection set.
	trip, err := f.tripRepo.GetByID(ctx, "trip-1")
	if err != nil {
		t.Fatalf("failed to load trip: %v", err)
	}
	if trip.RejectedBy("driver-1") {
		t.Errorf("assigned driver %q must not be in RejectedDrivers %v", trip.DriverID, trip.RejectedDrivers)
	}
	if trip.Status != domain.TripStatusAccepted {
		t.Errorf("expected trip to stay ACCEPTED, got %s", trip.Status)
	}

	// Another driver cannot reject it either once it is assigned.
	f.addDriver("driver-2", domain.DriverStatusOnline)
	if err := f.service.RejectTrip(ctx, "driver-2", "trip-1"); !errors.Is(err, service.ErrTripNotAvailable) {
		t.Errorf("expected ErrTripNotAvailable for driver-2, got %v", err)
	}
}

func TestCompleteTrip_RequiresAssignedDriver(t *testing.T) {
	ctx := context.Background()
	f := newDriverFixture()
	f.addDriver("driver-1", domain.DriverStatusOnline)
	f.addDriver("driver-2", domain.DriverStatusOnline)
	f.tripRepo.AddTrip(pendingTrip("trip-1", cityCenter, cityDropoff, time.Now(), "rider-1"))

	if _, err := f.service.AcceptTrip(ctx, "driver-1", "trip-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if _, err := f.service.CompleteTrip(ctx, "driver-2", "trip-1"); !errors.Is(err, service.ErrDriverNotAssigned) {
		t.Errorf("expected ErrDriverNotAssigned, got %v", err)
	}

	trip, err := f.service.CompleteTrip(ctx, "driver-1", "trip-1")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", trip.Status)
	}

	driver, err := f.driverRepo.GetByID(ctx, "driver-1")
	if err != nil {
		t.Fatalf("failed to load driver: %v", err)
	}
	if driver.Status != domain.DriverStatusOnline {
		t.Errorf("expected driver back ONLINE, got %s", driver.Status)
	}
}
