package inquiry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluecheck/inquiries/internal/apperr"
	"github.com/bluecheck/inquiries/internal/clock"
	"github.com/bluecheck/inquiries/internal/models"
	"github.com/bluecheck/inquiries/internal/store"
	"github.com/bluecheck/inquiries/internal/testutil"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []models.Inquiry
}

func (n *recordingNotifier) NotifyNewInquiry(_ context.Context, inq models.Inquiry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, inq)
}

type event struct {
	kind, id string
	status   models.Status
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
}

func (p *recordingPublisher) PublishInquiryEvent(kind, id string, status models.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{kind, id, status})
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) SaveInquiry(context.Context, *models.Inquiry) error { return f.err }

func (f failingStore) CountInquiries(context.Context, store.CountFilter) (int64, error) {
	return 0, f.err
}

var start = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

func johnSmith() CreateInput {
	return CreateInput{
		Name:            "John Smith",
		Email:           "john@example.com",
		Phone:           "0412345678",
		PropertyAddress: "123 Collins St",
		InspectionType:  models.InspectionPrePurchase,
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.SQLStore) {
	t.Helper()
	st := testutil.TestStore(t)
	opts = append([]Option{WithClock(clock.NewStepping(start, time.Second))}, opts...)
	return NewService(st, opts...), st
}

func countAll(t *testing.T, st store.Store) int64 {
	t.Helper()
	n, err := st.CountInquiries(context.Background(), store.CountFilter{})
	require.NoError(t, err)
	return n
}

func TestCreate_Success(t *testing.T) {
	notifier := &recordingNotifier{}
	events := &recordingPublisher{}
	svc, _ := newTestService(t, WithNotifier(notifier), WithEvents(events))
	ctx := context.Background()

	res, err := svc.Create(ctx, johnSmith())
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "success", res.Status)
	assert.Contains(t, res.Message, "submitted successfully")
	assert.Contains(t, res.Message, "within 2 hours")

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", got.Name)
	assert.Equal(t, "john@example.com", got.Email)
	assert.Equal(t, "0412345678", got.Phone)
	assert.Equal(t, "123 Collins St", got.PropertyAddress)
	assert.Equal(t, models.InspectionPrePurchase, got.InspectionType)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.Nil(t, got.PreferredDate)
	assert.Nil(t, got.Message)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))

	again, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, res.ID, notifier.got[0].ID)
	require.Len(t, events.events, 1)
	assert.Equal(t, event{EventCreated, res.ID, models.StatusNew}, events.events[0])
}

func TestCreate_UniqueIDs(t *testing.T) {
	svc, _ := newTestService(t)
	seen := map[string]bool{}
	for range 5 {
		res, err := svc.Create(context.Background(), johnSmith())
		require.NoError(t, err)
		assert.False(t, seen[res.ID], "duplicate id %s", res.ID)
		seen[res.ID] = true
	}
}

func TestCreate_OptionalFields(t *testing.T) {
	svc, _ := newTestService(t)
	in := johnSmith()
	date := "next Tuesday"
	in.PreferredDate = &date

	res, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	got, err := svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PreferredDate)
	assert.Equal(t, "next Tuesday", *got.PreferredDate)
	assert.Nil(t, got.Message, "omitted message should stay absent")
}

func TestCreate_StoresFieldsAsSubmitted(t *testing.T) {
	svc, _ := newTestService(t)
	in := johnSmith()
	in.Name = "  John Smith  "
	empty, spaces := "", "   "
	in.PreferredDate = &empty
	in.Message = &spaces

	res, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	got, err := svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "  John Smith  ", got.Name)
	assert.Equal(t, in.Email, got.Email)
	assert.Equal(t, in.Phone, got.Phone)
	assert.Equal(t, in.PropertyAddress, got.PropertyAddress)
	require.NotNil(t, got.PreferredDate)
	assert.Equal(t, "", *got.PreferredDate)
	require.NotNil(t, got.Message)
	assert.Equal(t, "   ", *got.Message)

	in = johnSmith()
	in.Name = "   "
	_, err = svc.Create(context.Background(), in)
	require.NoError(t, err, "a whitespace name satisfies the minimum length")
}

func TestCreate_ValidationErrors(t *testing.T) {
	long := strings.Repeat("x", 1001)
	tests := []struct {
		name  string
		edit  func(*CreateInput)
		field string
	}{
		{"invalid email", func(in *CreateInput) { in.Email = "invalid-email" }, "email"},
		{"missing name", func(in *CreateInput) { in.Name = "" }, "name"},
		{"name too long", func(in *CreateInput) { in.Name = strings.Repeat("n", 101) }, "name"},
		{"short phone", func(in *CreateInput) { in.Phone = "1234567" }, "phone"},
		{"long phone", func(in *CreateInput) { in.Phone = strings.Repeat("1", 21) }, "phone"},
		{"short address", func(in *CreateInput) { in.PropertyAddress = "1 A" }, "property_address"},
		{"unknown inspection type", func(in *CreateInput) { in.InspectionType = "pest" }, "inspection_type"},
		{"missing inspection type", func(in *CreateInput) { in.InspectionType = "" }, "inspection_type"},
		{"message too long", func(in *CreateInput) { in.Message = &long }, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			svc, st := newTestService(t, WithNotifier(notifier))
			in := johnSmith()
			tt.edit(&in)

			_, err := svc.Create(context.Background(), in)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Zero(t, countAll(t, st))
			assert.Empty(t, notifier.got)
		})
	}
}

func TestCreate_MultibyteNameCountsRunes(t *testing.T) {
	svc, _ := newTestService(t)
	in := johnSmith()
	in.Name = strings.Repeat("é", 100)
	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
}

func TestCreate_StorageFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	boom := errors.New("disk full")
	svc := NewService(failingStore{err: boom}, WithNotifier(notifier))

	_, err := svc.Create(context.Background(), johnSmith())
	require.ErrorIs(t, err, boom)
	var verr *apperr.ValidationError
	assert.False(t, errors.As(err, &verr))
	assert.Empty(t, notifier.got, "nothing should be sent for an unsaved inquiry")
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var ids []string
	for range 3 {
		res, err := svc.Create(ctx, johnSmith())
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	_, err := svc.UpdateStatus(ctx, ids[0], models.StatusContacted)
	require.NoError(t, err)

	all, err := svc.List(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	limited, err := svc.List(ctx, nil, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	contacted := models.StatusContacted
	filtered, err := svc.List(ctx, &contacted, 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, ids[0], filtered[0].ID)

	huge, err := svc.List(ctx, nil, 5000)
	require.NoError(t, err)
	assert.Len(t, huge, 3)
}

func TestList_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	items, err := svc.List(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestList_InvalidArguments(t *testing.T) {
	svc, _ := newTestService(t)
	var verr *apperr.ValidationError

	_, err := svc.List(context.Background(), nil, -1)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "limit")

	bogus := models.Status("archived")
	_, err = svc.List(context.Background(), &bogus, 10)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
}

func TestUpdateStatus(t *testing.T) {
	events := &recordingPublisher{}
	svc, _ := newTestService(t, WithEvents(events))
	ctx := context.Background()

	res, err := svc.Create(ctx, johnSmith())
	require.NoError(t, err)

	upd, err := svc.UpdateStatus(ctx, res.ID, models.StatusScheduled)
	require.NoError(t, err)
	assert.Equal(t, "Inquiry status updated to scheduled", upd.Message)
	assert.Equal(t, "success", upd.Status)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt), "updated_at %v should be after created_at %v", got.UpdatedAt, got.CreatedAt)

	// Any status may follow any other.
	_, err = svc.UpdateStatus(ctx, res.ID, models.StatusNew)
	require.NoError(t, err)

	require.Len(t, events.events, 3)
	assert.Equal(t, event{EventUpdated, res.ID, models.StatusScheduled}, events.events[1])
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, st := newTestService(t)
	_, err := svc.UpdateStatus(context.Background(), "missing", models.StatusCompleted)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, countAll(t, st))
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Create(context.Background(), johnSmith())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), res.ID, "archived")
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["status"], "contacted")
}

func TestPings(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sc, err := svc.RecordPing(ctx, "uptime-robot")
	require.NoError(t, err)
	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, "uptime-robot", sc.ClientName)

	blank, err := svc.RecordPing(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "", blank.ClientName)

	checks, err := svc.ListPings(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 2)
}
