package allocation

import (
	"context"
	"fmt"
	"strings"

	"exam-duty/internal/model"
)

// Engine 监考分配引擎
//
// 单次 Run 严格串行：每条分配写入账本并返回后才评估下一个槽位，
// 因为游标与计数在运行中原地更新，后续判断必须看到之前的全部决定。
type Engine struct {
	roster     Roster
	ledger     Ledger
	minEntries int
}

// Option 引擎可选配置
type Option func(*Engine)

// WithMinEntries 提高最少有效考试安排条数；MinScheduleEntries 为下限，更小的值被忽略
func WithMinEntries(n int) Option {
	return func(e *Engine) {
		if n > MinScheduleEntries {
			e.minEntries = n
		}
	}
}

// NewEngine 创建分配引擎
func NewEngine(roster Roster, ledger Ledger, opts ...Option) *Engine {
	e := &Engine{roster: roster, ledger: ledger, minEntries: MinScheduleEntries}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidEntries 保留日期与科目均非空的考试安排，保持原顺序
func ValidEntries(schedule []ExamEntry) []ExamEntry {
	valid := make([]ExamEntry, 0, len(schedule))
	for _, e := range schedule {
		date := strings.TrimSpace(e.Date)
		subject := strings.TrimSpace(e.Subject)
		if date == "" || subject == "" {
			continue
		}
		valid = append(valid, ExamEntry{Date: date, Subject: subject})
	}
	return valid
}

// Validate 前置条件校验，失败时不访问任何存储。返回有效考试安排。
func (e *Engine) Validate(req *Request) ([]ExamEntry, error) {
	if len(uniqueBlocks(req.Blocks)) == 0 {
		return nil, ErrNoBlocksSelected
	}
	if strings.TrimSpace(req.AcademicYear) == "" || req.ExamType == "" || req.ExamYear == "" {
		return nil, ErrInvalidScope
	}
	entries := ValidEntries(req.Schedule)
	if len(entries) < e.minEntries {
		return nil, fmt.Errorf("%w: 需要至少 %d 条，实际 %d 条", ErrInsufficientSchedule, e.minEntries, len(entries))
	}
	return entries, nil
}

// Run 执行一次分配。
//
// 无可用人选的槽位记入 Unfilled 并继续；账本写入失败或 ctx 被取消时返回
// 已完成部分的结果与 *RunAbortedError。未选择考区时为空操作。
func (e *Engine) Run(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Blocks) == 0 {
		return &Result{}, nil
	}
	entries, err := e.Validate(req)
	if err != nil {
		return nil, err
	}

	staff, err := e.roster.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载教职工失败: %w", err)
	}
	halls, err := e.roster.ListHalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载考场失败: %w", err)
	}
	prior, err := e.ledger.ListAssignments(ctx, req.Scope.Filter())
	if err != nil {
		return nil, fmt.Errorf("加载历史分配失败: %w", err)
	}

	blocks := uniqueBlocks(req.Blocks)
	r := &run{
		req:     req,
		staff:   staff,
		blocked: BlockedByDate(entries, staff),
		tally:   NewTally(prior),
		filled:  make(map[slotKey]struct{}, len(prior)),
	}
	for i := range prior {
		r.filled[slotOf(prior[i].ExamDate, prior[i].Block, prior[i].Hall)] = struct{}{}
	}

	hallsByBlock, duplicates := partitionHalls(halls, blocks)
	result := &Result{}

	for _, entry := range entries {
		for _, block := range blocks {
			blockHalls := hallsByBlock[Normalize(block)]
			if len(blockHalls) == 0 {
				result.Unfilled = append(result.Unfilled, Unfilled{
					Date: entry.Date, Subject: entry.Subject, Hall: NoHallPlaceholder, Block: block,
				})
				continue
			}

			for _, hall := range blockHalls {
				hallBlock := strings.TrimSpace(hall.Block)
				key := slotOf(entry.Date, hallBlock, hall.ExamHall)
				if _, ok := r.filled[key]; ok {
					result.Skipped++
					continue
				}
				if ctx.Err() != nil {
					return result, &RunAbortedError{Entry: entry, Block: hallBlock, Hall: hall.ExamHall, Err: context.Cause(ctx)}
				}

				pos, ok := r.pick(entry)
				if !ok {
					result.Unfilled = append(result.Unfilled, Unfilled{
						Date: entry.Date, Subject: entry.Subject, Hall: hall.ExamHall, Block: hallBlock,
					})
					continue
				}

				a := r.newAssignment(entry, hallBlock, hall.ExamHall, &staff[pos])
				if err := e.ledger.CreateAssignment(ctx, &a); err != nil {
					return result, &RunAbortedError{Entry: entry, Block: hallBlock, Hall: hall.ExamHall, Err: err}
				}
				r.commit(pos, entry.Date, key)
				result.Created = append(result.Created, a)
			}

			// 同名考场共用一个槽位，无法各自分配，逐条报告给操作员
			for _, dup := range duplicates[Normalize(block)] {
				result.Unfilled = append(result.Unfilled, Unfilled{
					Date: entry.Date, Subject: entry.Subject, Hall: dup.ExamHall, Block: strings.TrimSpace(dup.Block),
				})
			}
		}
	}

	return result, nil
}

// ── 单次运行状态 ──

type slotKey struct {
	date  string
	block string
	hall  string
}

func slotOf(date, block, hall string) slotKey {
	return slotKey{date: date, block: Normalize(block), hall: strings.TrimSpace(hall)}
}

// run 持有一次分配的全部可变状态，游标跨考场、跨考试持续推进，不按考场重置
type run struct {
	req     *Request
	staff   []model.Staff
	blocked DateBlocks
	tally   *Tally
	filled  map[slotKey]struct{}
	cursor  int
}

// pick 从游标处环形扫描至多 len(staff) 人，返回第一个符合条件者的位置
func (r *run) pick(entry ExamEntry) (int, bool) {
	n := len(r.staff)
	idx := r.cursor
	for attempts := 0; attempts < n; attempts++ {
		pos := idx
		idx = (idx + 1) % n
		s := &r.staff[pos]
		if Eligible(s, entry, r.blocked, r.tally, r.req.Caps.CapFor(s)) {
			return pos, true
		}
	}
	return -1, false
}

// commit 分配写入成功后更新计数、占用日期与游标
func (r *run) commit(pos int, date string, key slotKey) {
	r.tally.Record(r.staff[pos].StaffID, date)
	r.filled[key] = struct{}{}
	r.cursor = (pos + 1) % len(r.staff)
}

func (r *run) newAssignment(entry ExamEntry, block, hall string, s *model.Staff) model.Assignment {
	return model.Assignment{
		AcademicYear: r.req.AcademicYear,
		ExamType:     r.req.ExamType,
		ExamYear:     r.req.ExamYear,
		ExamDate:     entry.Date,
		Subject:      entry.Subject,
		Block:        block,
		Hall:         hall,
		StaffID:      s.StaffID,
		StaffName:    s.Name,
		StaffEmail:   s.Email,
		Designation:  s.Designation,
		Frozen:       false,
	}
}

// partitionHalls 按考区归类所选考区的考场，保持名册返回顺序，键为 Normalize 后的考区名。
// 同一考区内考场名重复时只保留第一个，其余放入 duplicates。
func partitionHalls(halls []model.Hall, blocks []string) (byBlock, duplicates map[string][]model.Hall) {
	byBlock = make(map[string][]model.Hall, len(blocks))
	duplicates = make(map[string][]model.Hall)
	for _, b := range blocks {
		byBlock[Normalize(b)] = nil
	}
	seen := make(map[string]map[string]struct{}, len(blocks))
	for _, h := range halls {
		key := Normalize(h.Block)
		if _, ok := byBlock[key]; !ok {
			continue
		}
		name := strings.TrimSpace(h.ExamHall)
		if seen[key] == nil {
			seen[key] = make(map[string]struct{})
		}
		if _, ok := seen[key][name]; ok {
			duplicates[key] = append(duplicates[key], h)
			continue
		}
		seen[key][name] = struct{}{}
		byBlock[key] = append(byBlock[key], h)
	}
	return byBlock, duplicates
}

// uniqueBlocks 去除首尾空白与空值，按 Normalize 去重，保留首次出现的写法
func uniqueBlocks(blocks []string) []string {
	seen := make(map[string]struct{}, len(blocks))
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		key := Normalize(b)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	return out
}
