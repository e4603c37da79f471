package allocation

import (
	"math"
	"strconv"
	"strings"

	"exam-duty/internal/model"
)

// Unlimited 不限监考次数
const Unlimited = math.MaxInt

// Caps 按职称区分的监考次数上限，非正数表示不限
type Caps struct {
	Associate int
	Others    int
}

// ParseCap 解析操作员输入的上限，取开头的整数部分（"1.5" 为 1，"3 duties" 为 3）。
// 不以数字开头、非正数或超出范围时视为不限。
func ParseCap(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return Unlimited
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return Unlimited
	}
	return n
}

// IsAssociate 职称包含 associate（不区分大小写）
func IsAssociate(designation string) bool {
	return strings.Contains(strings.ToLower(designation), "associate")
}

// CapFor 返回教职工所属职称类别的上限
func (c Caps) CapFor(s *model.Staff) int {
	limit := c.Others
	if IsAssociate(s.Designation) {
		limit = c.Associate
	}
	if limit <= 0 {
		return Unlimited
	}
	return limit
}

// Normalize 小写并去除首尾空白，所有科目比较均经过此函数
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TeachesSubject 教职工的科目1或科目2与给定科目一致
func TeachesSubject(s *model.Staff, subject string) bool {
	sub := Normalize(subject)
	if sub == "" {
		return false
	}
	return Normalize(s.Subject1) == sub || Normalize(s.Subject2) == sub
}

type idSet map[string]struct{}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

// DateBlocks 日期 → 当日因任教考试科目而不能监考任何考场的教职工
type DateBlocks map[string]idSet

// Blocked 判断教职工在该日期是否被屏蔽
func (b DateBlocks) Blocked(date, staffID string) bool {
	return b[date].has(staffID)
}

// BlockedByDate 预计算每个考试日期被屏蔽的教职工。
// 同一日期有多门考试时取并集：任教当日任一考试科目的人当天都不安排监考。
func BlockedByDate(entries []ExamEntry, staff []model.Staff) DateBlocks {
	blocked := make(DateBlocks, len(entries))
	for _, e := range entries {
		set := blocked[e.Date]
		if set == nil {
			set = make(idSet)
			blocked[e.Date] = set
		}
		for i := range staff {
			if TeachesSubject(&staff[i], e.Subject) {
				set[staff[i].StaffID] = struct{}{}
			}
		}
	}
	return blocked
}

// Tally 范围内每人的累计分配次数与已占用日期，由账本历史初始化，运行中逐条递增
type Tally struct {
	counts   map[string]int
	occupied map[string]map[string]struct{}
}

// NewTally 以历史分配（冻结与否都计入）初始化
func NewTally(prior []model.Assignment) *Tally {
	t := &Tally{
		counts:   make(map[string]int),
		occupied: make(map[string]map[string]struct{}),
	}
	for i := range prior {
		t.Record(prior[i].StaffID, prior[i].ExamDate)
	}
	return t
}

// Count 返回教职工在范围内的分配次数
func (t *Tally) Count(staffID string) int { return t.counts[staffID] }

// Busy 教职工在该日期已有分配
func (t *Tally) Busy(staffID, date string) bool {
	_, ok := t.occupied[staffID][date]
	return ok
}

// Record 记录一次分配
func (t *Tally) Record(staffID, date string) {
	t.counts[staffID]++
	dates := t.occupied[staffID]
	if dates == nil {
		dates = make(map[string]struct{})
		t.occupied[staffID] = dates
	}
	dates[date] = struct{}{}
}

// Eligible 教职工能否监考该场考试：
// 不任教该科目、当日未被屏蔽、未达上限、当日无其他分配。
func Eligible(s *model.Staff, entry ExamEntry, blocked DateBlocks, tally *Tally, limit int) bool {
	if TeachesSubject(s, entry.Subject) {
		return false
	}
	if blocked.Blocked(entry.Date, s.StaffID) {
		return false
	}
	if tally.Count(s.StaffID) >= limit {
		return false
	}
	return !tally.Busy(s.StaffID, entry.Date)
}
