package biz

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// memStore 内存存储，供 biz 测试使用
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	customers   map[int64]*Customer
	lots        []*PointLot
	history     []*CustomerHistory
	memberships []*Membership
	plans       map[int64]*Plan
	products    map[int64]*Product
	shopOrders  []*ShopOrder
	shopItems   []*ShopOrderItem
	workoutLogs []*WorkoutLog
	goals       map[int64]*WorkoutGoal
	locks       []int64
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[int64]*Customer),
		plans:     make(map[int64]*Plan),
		products:  make(map[int64]*Product),
		goals:     make(map[int64]*WorkoutGoal),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addCustomer(id int64) {
	s.customers[id] = &Customer{ID: id, Username: "member", Email: "member@factfit.test", Role: RoleCustomer}
}

func (s *memStore) addLot(customerID, points int64) *PointLot {
	lot := &PointLot{ID: s.id(), CustomerID: customerID, Points: points}
	s.lots = append(s.lots, lot)
	return lot
}

func (s *memStore) lotsOf(customerID int64) []*PointLot {
	var out []*PointLot
	for _, l := range s.lots {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) historyOf(customerID int64) []*CustomerHistory {
	var out []*CustomerHistory
	for _, h := range s.history {
		if h.CustomerID == customerID {
			out = append(out, h)
		}
	}
	return out
}

type memCustomerRepo struct{ s *memStore }

func (r memCustomerRepo) Create(_ context.Context, c *Customer) error {
	c.ID = r.s.id()
	r.s.customers[c.ID] = c
	return nil
}

func (r memCustomerRepo) GetByID(_ context.Context, id int64) (*Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memCustomerRepo) GetByUsername(_ context.Context, username string) (*Customer, error) {
	for _, c := range r.s.customers {
		if c.Username == username {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memCustomerRepo) LockByID(_ context.Context, id int64) error {
	if _, ok := r.s.customers[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.s.locks = append(r.s.locks, id)
	return nil
}

func (r memCustomerRepo) List(_ context.Context) ([]*CustomerSummary, error) {
	var out []*CustomerSummary
	for _, c := range r.s.customers {
		var total int64
		for _, l := range r.s.lotsOf(c.ID) {
			total += l.Points
		}
		out = append(out, &CustomerSummary{Customer: *c, TotalPoints: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memCustomerRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.s.customers)), nil
}

func (r memCustomerRepo) Update(_ context.Context, id int64, fields map[string]interface{}) error {
	c, ok := r.s.customers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, other := range r.s.customers {
		if other.ID == id {
			continue
		}
		if v, ok := fields["username"]; ok && other.Username == v {
			return gorm.ErrDuplicatedKey
		}
		if v, ok := fields["email"]; ok && other.Email == v {
			return gorm.ErrDuplicatedKey
		}
	}
	if v, ok := fields["password_hash"]; ok {
		c.PasswordHash = v.(string)
	}
	if v, ok := fields["subscription_status"]; ok {
		c.SubscriptionStatus = v.(string)
	}
	if v, ok := fields["email"]; ok {
		c.Email = v.(string)
	}
	if v, ok := fields["username"]; ok {
		c.Username = v.(string)
	}
	if v, ok := fields["role"]; ok {
		c.Role = v.(string)
	}
	return nil
}

func (r memCustomerRepo) Delete(_ context.Context, id int64) error {
	delete(r.s.customers, id)
	return nil
}

type memLotRepo struct{ s *memStore }

func (r memLotRepo) Create(_ context.Context, lot *PointLot) error {
	lot.ID = r.s.id()
	r.s.lots = append(r.s.lots, lot)
	return nil
}

func (r memLotRepo) SumByCustomer(_ context.Context, customerID int64) (int64, error) {
	var total int64
	for _, l := range r.s.lotsOf(customerID) {
		total += l.Points
	}
	return total, nil
}

func (r memLotRepo) Oldest(_ context.Context, customerID int64) (*PointLot, error) {
	var oldest *PointLot
	for _, l := range r.s.lotsOf(customerID) {
		if oldest == nil || l.ID < oldest.ID {
			oldest = l
		}
	}
	if oldest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (r memLotRepo) Delete(_ context.Context, id int64) error {
	for i, l := range r.s.lots {
		if l.ID == id {
			r.s.lots = append(r.s.lots[:i], r.s.lots[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r memLotRepo) Decrement(_ context.Context, id int64, amount int64) error {
	for _, l := range r.s.lots {
		if l.ID == id {
			l.Points -= amount
		}
	}
	return nil
}

func (r memLotRepo) ListByCustomer(_ context.Context, customerID int64) ([]*PointLot, error) {
	out := r.s.lotsOf(customerID)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memLotRepo) DeleteByCustomer(_ context.Context, customerID int64) error {
	kept := r.s.lots[:0]
	for _, l := range r.s.lots {
		if l.CustomerID != customerID {
			kept = append(kept, l)
		}
	}
	r.s.lots = kept
	return nil
}

type memHistoryRepo struct{ s *memStore }

func (r memHistoryRepo) Append(_ context.Context, entry *CustomerHistory) error {
	entry.ID = r.s.id()
	r.s.history = append(r.s.history, entry)
	return nil
}

func (r memHistoryRepo) ListByCustomer(_ context.Context, customerID int64) ([]*CustomerHistory, error) {
	out := r.s.historyOf(customerID)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memHistoryRepo) DeleteByCustomer(_ context.Context, customerID int64) error {
	kept := r.s.history[:0]
	for _, h := range r.s.history {
		if h.CustomerID != customerID {
			kept = append(kept, h)
		}
	}
	r.s.history = kept
	return nil
}

type memPlanRepo struct{ s *memStore }

func (r memPlanRepo) Create(_ context.Context, p *Plan) error {
	p.ID = r.s.id()
	r.s.plans[p.ID] = p
	return nil
}

func (r memPlanRepo) GetByID(_ context.Context, id int64) (*Plan, error) {
	p, ok := r.s.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memPlanRepo) GetByName(_ context.Context, name string) (*Plan, error) {
	for _, p := range r.s.plans {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memPlanRepo) List(_ context.Context) ([]*Plan, error) {
	var out []*Plan
	for _, p := range r.s.plans {
		out = append(out, p)
	}
	return out, nil
}

func (r memPlanRepo) Update(_ context.Context, id int64, fields map[string]interface{}) error {
	p := r.s.plans[id]
	if v, ok := fields["active"]; ok {
		p.Active = v.(bool)
	}
	if v, ok := fields["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := fields["duration_interval"]; ok {
		p.DurationInterval = v.(string)
	}
	return nil
}

func (r memPlanRepo) Delete(_ context.Context, id int64) error {
	delete(r.s.plans, id)
	return nil
}

type memMembershipRepo struct{ s *memStore }

func (r memMembershipRepo) Create(_ context.Context, m *Membership) error {
	m.ID = r.s.id()
	r.s.memberships = append(r.s.memberships, m)
	return nil
}

func (r memMembershipRepo) GetByID(_ context.Context, id int64) (*Membership, error) {
	for _, m := range r.s.memberships {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memMembershipRepo) ListLive(_ context.Context, customerID int64, now time.Time) ([]*Membership, error) {
	var out []*Membership
	for _, m := range r.s.memberships {
		if m.CustomerID == customerID && (m.Status == MembershipActive || m.Status == MembershipQueued) && m.EndDate.After(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out, nil
}

func (r memMembershipRepo) FindCurrent(_ context.Context, customerID int64, now time.Time) (*Membership, error) {
	var best *Membership
	for _, m := range r.s.memberships {
		if m.CustomerID != customerID || (m.Status != MembershipActive && m.Status != MembershipQueued) {
			continue
		}
		if m.StartDate.After(now) || !m.EndDate.After(now) {
			continue
		}
		if best == nil || m.EndDate.After(best.EndDate) {
			best = m
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (r memMembershipRepo) ListByCustomer(_ context.Context, customerID int64) ([]*Membership, error) {
	var out []*Membership
	for _, m := range r.s.memberships {
		if m.CustomerID == customerID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r memMembershipRepo) expire(customerID int64, now time.Time) int64 {
	var n int64
	for _, m := range r.s.memberships {
		if customerID != 0 && m.CustomerID != customerID {
			continue
		}
		if (m.Status == MembershipActive || m.Status == MembershipQueued) && !m.EndDate.After(now) {
			m.Status = MembershipExpired
			n++
		}
	}
	return n
}

func (r memMembershipRepo) ExpireEnded(_ context.Context, customerID int64, now time.Time) (int64, error) {
	return r.expire(customerID, now), nil
}

func (r memMembershipRepo) ExpireAllEnded(_ context.Context, now time.Time) (int64, error) {
	return r.expire(0, now), nil
}

func (r memMembershipRepo) ListDueQueued(_ context.Context, now time.Time, after QueueCursor, limit int) ([]*Membership, error) {
	var out []*Membership
	for _, m := range r.s.memberships {
		if m.Status != MembershipQueued || m.StartDate.After(now) || !m.EndDate.After(now) {
			continue
		}
		if m.StartDate.Before(after.StartDate) || (m.StartDate.Equal(after.StartDate) && m.ID <= after.ID) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memMembershipRepo) UpdateStatus(_ context.Context, id int64, status MembershipStatus) error {
	for _, m := range r.s.memberships {
		if m.ID == id {
			m.Status = status
		}
	}
	return nil
}

func (r memMembershipRepo) DeleteByCustomer(_ context.Context, customerID int64) error {
	kept := r.s.memberships[:0]
	for _, m := range r.s.memberships {
		if m.CustomerID != customerID {
			kept = append(kept, m)
		}
	}
	r.s.memberships = kept
	return nil
}

type memProductRepo struct{ s *memStore }

func (r memProductRepo) Create(_ context.Context, p *Product) error {
	p.ID = r.s.id()
	r.s.products[p.ID] = p
	return nil
}

func (r memProductRepo) GetByID(_ context.Context, id int64) (*Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r memProductRepo) List(_ context.Context, activeOnly bool) ([]*Product, error) {
	var out []*Product
	for _, p := range r.s.products {
		if !activeOnly || p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memProductRepo) Update(_ context.Context, id int64, fields map[string]interface{}) error {
	if v, ok := fields["stock"]; ok {
		r.s.products[id].Stock = v.(int64)
	}
	return nil
}

func (r memProductRepo) Delete(_ context.Context, id int64) error {
	delete(r.s.products, id)
	return nil
}

func (r memProductRepo) LockByIDs(_ context.Context, ids []int64) ([]*Product, error) {
	var out []*Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memProductRepo) DecrementStock(_ context.Context, id int64, qty int64) error {
	r.s.products[id].Stock -= qty
	return nil
}

type memShopOrderRepo struct{ s *memStore }

func (r memShopOrderRepo) Create(_ context.Context, order *ShopOrder, items []*ShopOrderItem) error {
	order.ID = r.s.id()
	r.s.shopOrders = append(r.s.shopOrders, order)
	for _, item := range items {
		item.ID = r.s.id()
		item.OrderID = order.ID
		r.s.shopItems = append(r.s.shopItems, item)
	}
	return nil
}

type memWorkoutRepo struct{ s *memStore }

func (r memWorkoutRepo) CreateLog(_ context.Context, l *WorkoutLog) error {
	l.ID = r.s.id()
	r.s.workoutLogs = append(r.s.workoutLogs, l)
	return nil
}

func (r memWorkoutRepo) ListLogs(_ context.Context, customerID int64) ([]*WorkoutLog, error) {
	var out []*WorkoutLog
	for _, l := range r.s.workoutLogs {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r memWorkoutRepo) SumLogs(_ context.Context, customerID int64, from, to time.Time) (*WorkoutTotals, error) {
	totals := &WorkoutTotals{}
	for _, l := range r.s.workoutLogs {
		if l.CustomerID == customerID && !l.Date.Before(from) && !l.Date.After(to) {
			totals.Distance += l.Distance
			totals.Duration += l.Duration
		}
	}
	return totals, nil
}

func (r memWorkoutRepo) GetGoal(_ context.Context, customerID int64) (*WorkoutGoal, error) {
	g, ok := r.s.goals[customerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *g
	return &cp, nil
}

func (r memWorkoutRepo) SaveGoal(_ context.Context, g *WorkoutGoal) error {
	if g.ID == 0 {
		g.ID = r.s.id()
	}
	cp := *g
	r.s.goals[g.CustomerID] = &cp
	return nil
}

func (r memWorkoutRepo) DeleteGoal(_ context.Context, customerID int64) (int64, error) {
	if _, ok := r.s.goals[customerID]; !ok {
		return 0, nil
	}
	delete(r.s.goals, customerID)
	return 1, nil
}

func (r memWorkoutRepo) MarkGoalCompleted(_ context.Context, id int64, at time.Time) (int64, error) {
	for _, g := range r.s.goals {
		if g.ID == id && g.CompletedAt == nil {
			g.CompletedAt = &at
			return 1, nil
		}
	}
	return 0, nil
}

func (r memWorkoutRepo) DeleteByCustomer(_ context.Context, customerID int64) error {
	kept := r.s.workoutLogs[:0]
	for _, l := range r.s.workoutLogs {
		if l.CustomerID != customerID {
			kept = append(kept, l)
		}
	}
	r.s.workoutLogs = kept
	delete(r.s.goals, customerID)
	return nil
}

// fakeTx 串行执行回调，不支持嵌套
type fakeTx struct{ s *memStore }

func (t fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return fn(ctx)
}

// reentrantTx 支持嵌套调用的事务替身
type reentrantTx struct{}

func (reentrantTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopMetrics struct{}

func (nopMetrics) PointsCredited(int64) {}
func (nopMetrics) PointsDebited(int64, int) {}
func (nopMetrics) MembershipPurchased(string) {}
func (nopMetrics) MembershipsSwept(int64, int64) {}
func (nopMetrics) ShopOrderCompleted(string) {}
func (nopMetrics) PaymentNotification(string) {}

func newTestLedger(s *memStore) *PointLedgerUsecase {
	return NewPointLedgerUsecase(memLotRepo{s}, memCustomerRepo{s}, memHistoryRepo{s}, fakeTx{s}, nopMetrics{}, log.DefaultLogger)
}

func newTestSequencer(s *memStore, now time.Time) *MembershipUsecase {
	uc := NewMembershipUsecase(memMembershipRepo{s}, memPlanRepo{s}, memCustomerRepo{s}, memHistoryRepo{s}, reentrantTx{}, nopMetrics{}, log.DefaultLogger)
	uc.now = func() time.Time { return now }
	return uc
}

func newTestCustomers(s *memStore) *CustomerUsecase {
	return NewCustomerUsecase(memCustomerRepo{s}, memLotRepo{s}, memMembershipRepo{s}, memHistoryRepo{s},
		memWorkoutRepo{s}, reentrantTx{}, log.DefaultLogger)
}
