package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/academy-enrollment-api/internal/gateway"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

type memCourses struct {
	courses []models.Course
}

func (m *memCourses) FindByRef(ctx context.Context, ref string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.ID == ref {
			course := c
			return &course, nil
		}
	}
	for _, c := range m.courses {
		if strings.EqualFold(c.Number, ref) {
			course := c
			return &course, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memSchedules struct {
	mu        sync.Mutex
	schedules map[string]*models.CourseSchedule
	held      func(scheduleID string) int
	reserveErr error
}

func newMemSchedules(schedules ...models.CourseSchedule) *memSchedules {
	m := &memSchedules{schedules: make(map[string]*models.CourseSchedule)}
	for i := range schedules {
		s := schedules[i]
		m.schedules[s.ID] = &s
	}
	return m
}

func recompute(s *models.CourseSchedule) {
	if s.Status == models.ScheduleStatusCompleted {
		return
	}
	s.Status = models.DeriveScheduleStatus(s.SpotsAvailable)
}

func (m *memSchedules) FindByID(ctx context.Context, id string) (*models.CourseSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	snapshot := *s
	return &snapshot, nil
}

func (m *memSchedules) NextOpenForCourse(ctx context.Context, courseID string) (*models.CourseSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var candidates []*models.CourseSchedule
	for _, s := range m.schedules {
		if s.CourseID != nil && *s.CourseID == courseID && s.SpotsAvailable > 0 && s.Status != models.ScheduleStatusCompleted {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, sql.ErrNoRows
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	snapshot := *candidates[0]
	return &snapshot, nil
}

func (m *memSchedules) Reserve(ctx context.Context, id string) (*models.CourseSchedule, bool, error) {
	if m.reserveErr != nil {
		return nil, false, m.reserveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	if s.SpotsAvailable <= 0 {
		snapshot := *s
		return &snapshot, false, nil
	}
	s.SpotsAvailable--
	recompute(s)
	snapshot := *s
	return &snapshot, true, nil
}

func (m *memSchedules) Release(ctx context.Context, id string) (*models.CourseSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if s.SpotsAvailable < s.SpotsTotal {
		s.SpotsAvailable++
	}
	recompute(s)
	snapshot := *s
	return &snapshot, nil
}

func (m *memSchedules) Reconcile(ctx context.Context, id string) (*models.CourseSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	held := 0
	if m.held != nil {
		held = m.held(id)
	}
	s.SpotsAvailable = s.SpotsTotal - held
	if s.SpotsAvailable < 0 {
		s.SpotsAvailable = 0
	}
	recompute(s)
	snapshot := *s
	return &snapshot, nil
}

func (m *memSchedules) available(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedules[id].SpotsAvailable
}

type memSpecials struct {
	mu            sync.Mutex
	specials      []models.Special
	listErr       error
	deactivateErr error
	deactivated   []string
	created       []*models.Special
}

func (m *memSpecials) FindActiveByCode(ctx context.Context, code string) (*models.Special, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.specials {
		if s.Active && strings.EqualFold(s.CouponCode, code) {
			special := s
			return &special, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memSpecials) ListActive(ctx context.Context) ([]models.Special, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Special
	for _, s := range m.specials {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSpecials) Deactivate(ctx context.Context, ids []string) (int64, error) {
	if m.deactivateErr != nil {
		return 0, m.deactivateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.specials {
		for _, id := range ids {
			if m.specials[i].ID == id && m.specials[i].Active {
				m.specials[i].Active = false
				m.deactivated = append(m.deactivated, id)
				n++
			}
		}
	}
	return n, nil
}

func (m *memSpecials) Create(ctx context.Context, special *models.Special) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if special.ID == "" {
		special.ID = fmt.Sprintf("sp-%d", len(m.specials)+1)
	}
	m.specials = append(m.specials, *special)
	m.created = append(m.created, special)
	return nil
}

type memEnrollments struct {
	mu          sync.Mutex
	seq         int
	enrollments map[string]*models.Enrollment
	createErr   error
	// skipPrecheck hides existing rows from the order-id lookups until an
	// insert conflicts, so tests can exercise the insert-time conflict path.
	skipPrecheck bool
	conflicted   bool
	// lookupErr fails the order-id lookups made after an insert conflict.
	lookupErr error
}

func newMemEnrollments() *memEnrollments {
	return &memEnrollments{enrollments: make(map[string]*models.Enrollment)}
}

func (m *memEnrollments) findBy(match func(*models.Enrollment) bool) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if match(e) {
			snapshot := *e
			return &snapshot, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memEnrollments) lookupState() (hidden bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.conflicted {
		return m.skipPrecheck, nil
	}
	return false, m.lookupErr
}

func (m *memEnrollments) FindByProviderOrderID(ctx context.Context, orderID string) (*models.Enrollment, error) {
	if hidden, err := m.lookupState(); err != nil {
		return nil, err
	} else if hidden {
		return nil, sql.ErrNoRows
	}
	return m.findBy(func(e *models.Enrollment) bool { return e.ProviderOrderID != nil && *e.ProviderOrderID == orderID })
}

func (m *memEnrollments) FindByCRMOrderID(ctx context.Context, orderID string) (*models.Enrollment, error) {
	if hidden, err := m.lookupState(); err != nil {
		return nil, err
	} else if hidden {
		return nil, sql.ErrNoRows
	}
	return m.findBy(func(e *models.Enrollment) bool { return e.CRMOrderID != nil && *e.CRMOrderID == orderID })
}

func (m *memEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if enrollment.ProviderOrderID != nil && e.ProviderOrderID != nil && *e.ProviderOrderID == *enrollment.ProviderOrderID {
			m.conflicted = true
			return false, nil
		}
		if enrollment.CRMOrderID != nil && e.CRMOrderID != nil && *e.CRMOrderID == *enrollment.CRMOrderID {
			m.conflicted = true
			return false, nil
		}
	}
	m.seq++
	if enrollment.ID == "" {
		enrollment.ID = fmt.Sprintf("enr-%d", m.seq)
	}
	enrollment.CreatedAt = time.Now().UTC()
	snapshot := *enrollment
	m.enrollments[enrollment.ID] = &snapshot
	return true, nil
}

func (m *memEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return m.findBy(func(e *models.Enrollment) bool { return e.ID == id })
}

func (m *memEnrollments) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EnrollmentDetail{Enrollment: *e}, nil
}

func (m *memEnrollments) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, models.EnrollmentDetail{Enrollment: *e})
	}
	return out, len(out), nil
}

func (m *memEnrollments) Update(ctx context.Context, enrollment *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.enrollments[enrollment.ID]; !ok {
		return sql.ErrNoRows
	}
	snapshot := *enrollment
	m.enrollments[enrollment.ID] = &snapshot
	return nil
}

func (m *memEnrollments) Delete(ctx context.Context, id string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.enrollments, id)
	return e, nil
}

func (m *memEnrollments) MarkAttendance(ctx context.Context, id string, attended bool, at *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Attended = attended
	e.AttendedAt = at
	return nil
}

func (m *memEnrollments) ListBySchedule(ctx context.Context, scheduleID string) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.CourseScheduleID != nil && *e.CourseScheduleID == scheduleID && e.Status.HoldsSeat() {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentName < out[j].StudentName })
	return out, nil
}

func (m *memEnrollments) FindForStudent(ctx context.Context, email, accessCode string) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if strings.EqualFold(e.StudentEmail, email) && e.AccessCode == accessCode &&
			(e.Status == models.EnrollmentStatusPaid || e.Status == models.EnrollmentStatusDepositPaid) {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	return out, nil
}

func (m *memEnrollments) ListByEmail(ctx context.Context, email string) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if strings.EqualFold(e.StudentEmail, email) &&
			(e.Status == models.EnrollmentStatusPaid || e.Status == models.EnrollmentStatusDepositPaid) {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	return out, nil
}

func (m *memEnrollments) all() []models.Enrollment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Enrollment, 0, len(m.enrollments))
	for _, e := range m.enrollments {
		out = append(out, *e)
	}
	return out
}

func (m *memEnrollments) heldOn(scheduleID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.enrollments {
		if e.CourseScheduleID != nil && *e.CourseScheduleID == scheduleID && e.Status.HoldsSeat() {
			n++
		}
	}
	return n
}

type recordingOutbox struct {
	mu       sync.Mutex
	coupons  []string
	releases []string
	reserves []string
}

func (o *recordingOutbox) DeleteCRMCoupon(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.coupons = append(o.coupons, code)
}

func (o *recordingOutbox) ReleaseSeat(scheduleID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.releases = append(o.releases, scheduleID)
}

func (o *recordingOutbox) ReserveSeat(scheduleID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reserves = append(o.reserves, scheduleID)
}

type fakeProvider struct {
	configured bool
	requests   []gateway.PaymentLinkRequest
	link       *gateway.PaymentLink
	err        error
}

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) CreatePaymentLink(ctx context.Context, req gateway.PaymentLinkRequest) (*gateway.PaymentLink, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.link, nil
}

type fakeCRM struct {
	configured bool
	created    []gateway.Coupon
	createErr  error
	deleted    []string
	deleteErr  error
}

func (f *fakeCRM) Configured() bool { return f.configured }

func (f *fakeCRM) CreateCoupon(ctx context.Context, coupon gateway.Coupon) (*gateway.Coupon, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, coupon)
	coupon.ID = "crm-" + coupon.Code
	return &coupon, nil
}

func (f *fakeCRM) DeleteCouponByCode(ctx context.Context, code string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, code)
	return nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

var errStoreDown = errors.New("store down")

func strp(v string) *string { return &v }

func i64p(v int64) *int64 { return &v }
