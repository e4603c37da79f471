package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"exam-duty/internal/allocation"
	"exam-duty/internal/model"
	"exam-duty/internal/repository"
	pkgerrors "exam-duty/pkg/errors"
	"exam-duty/pkg/redis"
)

// ── Mock StaffRepository ──

type mockStaffRepo struct {
	staff   []*model.Staff // 录入顺序
	listErr error
}

func newMockStaffRepo() *mockStaffRepo {
	return &mockStaffRepo{}
}

func (m *mockStaffRepo) add(s *model.Staff) *model.Staff {
	m.staff = append(m.staff, s)
	return s
}

func (m *mockStaffRepo) List(_ context.Context) ([]model.Staff, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]model.Staff, 0, len(m.staff))
	for _, s := range m.staff {
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, id string) (*model.Staff, error) {
	for _, s := range m.staff {
		if s.StaffID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock HallRepository ──

type mockHallRepo struct {
	halls []model.Hall
}

func newMockHallRepo() *mockHallRepo {
	return &mockHallRepo{}
}

func (m *mockHallRepo) List(_ context.Context) ([]model.Hall, error) {
	return append([]model.Hall(nil), m.halls...), nil
}

func (m *mockHallRepo) ListBlocks(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var blocks []string
	for _, h := range m.halls {
		if h.Block != "" && !seen[h.Block] {
			seen[h.Block] = true
			blocks = append(blocks, h.Block)
		}
	}
	sort.Strings(blocks)
	return blocks, nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	items     []*model.Assignment
	staff     *mockStaffRepo
	seq       int
	createErr error
	freezeErr map[string]error
	logs      *mockChangeLogRepo
	// beforeReassign 在写入前执行，模拟候选人校验之后、事务提交之前的并发写入
	beforeReassign func()
	// beforeCreate 在写入前执行，可用于让分配运行停在写入处
	beforeCreate func(ctx context.Context)
}

func newMockAssignmentRepo(staff *mockStaffRepo, logs *mockChangeLogRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{staff: staff, logs: logs, freezeErr: make(map[string]error)}
}

func (m *mockAssignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	if m.beforeCreate != nil {
		m.beforeCreate(ctx)
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if a.AssignmentID == "" {
		a.AssignmentID = fmt.Sprintf("as-%d", m.seq)
	}
	if a.Version == 0 {
		a.Version = 1
	}
	cp := *a
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockAssignmentRepo) find(id string) *model.Assignment {
	for _, a := range m.items {
		if a.AssignmentID == id {
			return a
		}
	}
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	if a := m.find(id); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) List(_ context.Context, f model.AssignmentFilter) ([]model.Assignment, error) {
	var result []model.Assignment
	for _, a := range m.items {
		if f.AcademicYear != "" && a.AcademicYear != f.AcademicYear {
			continue
		}
		if f.ExamType != "" && a.ExamType != f.ExamType {
			continue
		}
		if f.ExamYear != "" && a.ExamYear != f.ExamYear {
			continue
		}
		if len(f.Blocks) > 0 && !contains(f.Blocks, a.Block) {
			continue
		}
		if f.ExamDate != "" && a.ExamDate != f.ExamDate {
			continue
		}
		if sub := allocation.Normalize(f.Subject); sub != "" && !strings.Contains(allocation.Normalize(a.Subject), sub) {
			continue
		}
		if f.Frozen != nil && a.Frozen != *f.Frozen {
			continue
		}
		result = append(result, *a)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ExamDate < result[j].ExamDate })
	return result, nil
}

func (m *mockAssignmentRepo) Reassign(ctx context.Context, a *model.Assignment, log *model.AssignmentChangeLog) error {
	if m.beforeReassign != nil {
		m.beforeReassign()
	}
	cur := m.find(a.AssignmentID)
	if cur == nil {
		return gorm.ErrRecordNotFound
	}
	if cur.Frozen {
		return allocation.ErrAssignmentFrozen
	}
	if cur.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	// 与 uq_assignments_staff_date 一致：同一范围同一日期每人至多一条
	for _, other := range m.items {
		if other.AssignmentID != a.AssignmentID && other.StaffID == a.StaffID &&
			other.ExamDate == a.ExamDate && other.AcademicYear == a.AcademicYear &&
			other.ExamType == a.ExamType && other.ExamYear == a.ExamYear {
			return pkgerrors.ErrStaffDateConflict
		}
	}
	a.Version++
	*cur = *a
	return m.logs.Create(ctx, log)
}

func (m *mockAssignmentRepo) Freeze(_ context.Context, id string) (*model.Assignment, error) {
	if err := m.freezeErr[id]; err != nil {
		return nil, err
	}
	cur := m.find(id)
	if cur == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if cur.Frozen {
		return nil, allocation.ErrAssignmentFrozen
	}
	var owner *model.Staff
	for _, s := range m.staff.staff {
		if s.StaffID == cur.StaffID {
			owner = s
		}
	}
	if owner == nil {
		return nil, errors.New("staff not found")
	}
	now := time.Now()
	owner.InvigilationCount = allocation.ApplyFreeze(owner.InvigilationCount, cur)
	cur.Frozen = true
	cur.FrozenAt = &now
	cur.Version++
	cp := *cur
	return &cp, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ── Mock AssignmentChangeLogRepository ──

type mockChangeLogRepo struct {
	logs []model.AssignmentChangeLog
}

func newMockChangeLogRepo() *mockChangeLogRepo {
	return &mockChangeLogRepo{}
}

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.AssignmentChangeLog) error {
	log.ChangeLogID = fmt.Sprintf("log-%d", len(m.logs)+1)
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockChangeLogRepo) List(_ context.Context, assignmentID string, offset, limit int) ([]model.AssignmentChangeLog, int64, error) {
	var matched []model.AssignmentChangeLog
	for _, l := range m.logs {
		if assignmentID == "" || l.AssignmentID == assignmentID {
			matched = append(matched, l)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// ── Mock Locker ──

type mockLocker struct {
	mu         sync.Mutex
	held       map[string]string
	acquireErr error
	extendErr  error
	extends    int
	released   []string
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]string)}
}

func (m *mockLocker) AcquireLease(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return "", m.acquireErr
	}
	if _, ok := m.held[key]; ok {
		return "", redis.ErrLeaseHeld
	}
	token := "token-" + key
	m.held[key] = token
	return token, nil
}

func (m *mockLocker) ExtendLease(_ context.Context, key, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extends++
	if m.extendErr != nil {
		return m.extendErr
	}
	if m.held[key] != token {
		return redis.ErrLeaseLost
	}
	return nil
}

func (m *mockLocker) ReleaseLease(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	m.released = append(m.released, key)
	return nil
}

func (m *mockLocker) extendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extends
}

// ── 测试仓储聚合 ──

type testRepos struct {
	staff      *mockStaffRepo
	halls      *mockHallRepo
	assignment *mockAssignmentRepo
	changeLog  *mockChangeLogRepo
}

func newTestRepos() *testRepos {
	staff := newMockStaffRepo()
	logs := newMockChangeLogRepo()
	return &testRepos{
		staff:      staff,
		halls:      newMockHallRepo(),
		assignment: newMockAssignmentRepo(staff, logs),
		changeLog:  logs,
	}
}

func (r *testRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		Staff:      r.staff,
		Hall:       r.halls,
		Assignment: r.assignment,
		ChangeLog:  r.changeLog,
	}
}
