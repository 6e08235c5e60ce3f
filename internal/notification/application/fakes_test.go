package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

type memRepo struct {
	mu        sync.Mutex
	records   map[string]domain.NotificationRecord
	order     []string
	createErr error
	// completeErr 非空时 PENDING 出发的迁移写入失败
	completeErr error
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]domain.NotificationRecord)}
}

func (r *memRepo) Create(ctx context.Context, rec *domain.NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.records[rec.NotificationID]; ok {
		return fmt.Errorf("duplicate %s", rec.NotificationID)
	}
	rec.ID = uint(len(r.order) + 1)
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	r.records[rec.NotificationID] = *rec
	r.order = append(r.order, rec.NotificationID)
	return nil
}

func (r *memRepo) Get(ctx context.Context, id string) (*domain.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *memRepo) Transition(ctx context.Context, rec *domain.NotificationRecord, from domain.NotificationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if from == domain.NotificationStatePending && r.completeErr != nil {
		return r.completeErr
	}
	cur, ok := r.records[rec.NotificationID]
	if !ok || cur.State != from {
		return domain.ErrStateConflict
	}
	rec.UpdatedAt = time.Now()
	r.records[rec.NotificationID] = *rec
	return nil
}

func (r *memRepo) ListByPeriod(ctx context.Context, periodID string, limit, offset int) ([]*domain.NotificationRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.NotificationRecord
	for _, id := range r.order {
		rec := r.records[id]
		if rec.PeriodID != nil && *rec.PeriodID == periodID {
			out = append(out, &rec)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memRepo) ListFailed(ctx context.Context, before time.Time, limit int) ([]*domain.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.NotificationRecord
	for _, id := range r.order {
		rec := r.records[id]
		if rec.State == domain.NotificationStateFailed && !rec.UpdatedAt.After(before) {
			out = append(out, &rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.NotificationRecord
	for _, id := range r.order {
		rec := r.records[id]
		if rec.State == domain.NotificationStatePending && !rec.UpdatedAt.After(before) {
			out = append(out, &rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) setCompleteErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeErr = err
}

// backdate 将记录的更新时间前移 d
func (r *memRepo) backdate(id string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[id]
	rec.UpdatedAt = rec.UpdatedAt.Add(-d)
	r.records[id] = rec
}

func (r *memRepo) CountByPeriod(ctx context.Context, periodID string) ([]domain.StateTypeCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[[2]string]int64{}
	for _, rec := range r.records {
		if rec.PeriodID == nil || *rec.PeriodID != periodID {
			continue
		}
		counts[[2]string{string(rec.State), string(rec.Type)}]++
	}
	var rows []domain.StateTypeCount
	for k, c := range counts {
		rows = append(rows, domain.StateTypeCount{State: domain.NotificationState(k[0]), Type: domain.NotificationType(k[1]), Count: c})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].State < rows[j].State })
	return rows, nil
}

func (r *memRepo) all() []domain.NotificationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NotificationRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}

type fakeTransport struct {
	mu         sync.Mutex
	configured bool
	outcome    domain.DispatchOutcome
	send       func(ctx context.Context, address, body string) domain.DispatchOutcome
	calls      []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{configured: true, outcome: domain.Succeeded(domain.DetailDelivered)}
}

func (t *fakeTransport) Send(ctx context.Context, address, body string) domain.DispatchOutcome {
	t.mu.Lock()
	t.calls = append(t.calls, address)
	fn, out := t.send, t.outcome
	t.mu.Unlock()
	if fn != nil {
		return fn(ctx, address, body)
	}
	return out
}

func (t *fakeTransport) IsConfigured() bool { return t.configured }

func (t *fakeTransport) setOutcome(o domain.DispatchOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcome = o
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

type fakePayroll struct {
	mu      sync.Mutex
	events  map[string][]domain.Event
	cuts    map[string]domain.Event
	marked  []string
	loadErr error
}

func (p *fakePayroll) SalaryCutEvent(ctx context.Context, cutID string) (domain.Event, error) {
	ev, ok := p.cuts[cutID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return ev, nil
}

func (p *fakePayroll) PeriodEvents(ctx context.Context, periodID string) ([]domain.Event, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.events[periodID], nil
}

func (p *fakePayroll) MarkNotificationsSent(ctx context.Context, periodID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marked = append(p.marked, periodID)
	return nil
}

type fakeComposer struct{}

func (fakeComposer) Compose(ctx context.Context, ev domain.Event) (string, error) {
	if ev.Reason == "uncomposable" {
		return "", errors.New("template error")
	}
	return fmt.Sprintf("%s for %s", ev.Type, ev.EmployeeID), nil
}

// countingThrottle 记录等待次数，可在第 N 次等待时取消批次
type countingThrottle struct {
	waits    atomic.Int32
	cancelAt int32
	cancel   context.CancelFunc
}

func (t *countingThrottle) Wait(ctx context.Context) error {
	n := t.waits.Add(1)
	if t.cancel != nil && n == t.cancelAt {
		t.cancel()
	}
	return ctx.Err()
}

type recordingPublisher struct {
	mu      sync.Mutex
	events  []domain.NotificationDispatchedEvent
	batches []domain.BatchCompletedEvent
	err     error
}

func (p *recordingPublisher) PublishNotificationDispatched(ctx context.Context, e domain.NotificationDispatchedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) PublishBatchCompleted(ctx context.Context, e domain.BatchCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, e)
	return p.err
}

type busyLock struct{}

func (busyLock) Acquire(ctx context.Context, periodID string) (func(), error) {
	return nil, domain.ErrCampaignInProgress
}

type fixture struct {
	repo      *memRepo
	transport *fakeTransport
	payroll   *fakePayroll
	throttle  *countingThrottle
	publisher *recordingPublisher
	engine    *DispatchEngine
}

func periodEvent(period, employee, address string) domain.Event {
	p := period
	return domain.Event{
		Type:           domain.NotificationTypeSalaryAvailable,
		EmployeeID:     employee,
		PeriodID:       &p,
		RecipientLabel: "Employee " + employee,
		RawAddress:     address,
	}
}

func newFixture(cfg EngineConfig) *fixture {
	f := &fixture{
		repo:      newMemRepo(),
		transport: newFakeTransport(),
		payroll:   &fakePayroll{events: map[string][]domain.Event{}, cuts: map[string]domain.Event{}},
		throttle:  &countingThrottle{},
		publisher: &recordingPublisher{},
	}
	var seq atomic.Int64
	f.engine = NewDispatchEngine(EngineDeps{
		Repo:      f.repo,
		Transport: f.transport,
		Policy:    domain.CanonicalPolicy{CountryCode: "212", SubscriberDigits: 9},
		Composer:  fakeComposer{},
		Payroll:   f.payroll,
		Throttle:  f.throttle,
		Publisher: f.publisher,
		NewID:     func() string { return fmt.Sprintf("N%d", seq.Add(1)) },
	}, cfg)
	return f
}
