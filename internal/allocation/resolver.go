package allocation

import "exam-duty/internal/model"

// Candidates 计算人工调整某条未冻结分配时可选的教职工。
//
// sameDay 为同一范围内与 target 同一考试日期的全部分配（含 target 本身，跨所有考区）。
// 排除：当日已在其他考场有分配的人（target 当前负责人除外，重选即无变化）；
// 任教当日任一考试科目的人。
func Candidates(target *model.Assignment, sameDay []model.Assignment, staff []model.Staff) []model.Staff {
	busy := make(idSet, len(sameDay))
	subjects := make(map[string]struct{}, len(sameDay)+1)
	subjects[Normalize(target.Subject)] = struct{}{}
	for i := range sameDay {
		a := &sameDay[i]
		if a.ExamDate != target.ExamDate {
			continue
		}
		subjects[Normalize(a.Subject)] = struct{}{}
		if a.AssignmentID != target.AssignmentID {
			busy[a.StaffID] = struct{}{}
		}
	}

	out := make([]model.Staff, 0, len(staff))
	for i := range staff {
		s := &staff[i]
		if busy.has(s.StaffID) && s.StaffID != target.StaffID {
			continue
		}
		if teachesAny(s, subjects) {
			continue
		}
		out = append(out, *s)
	}
	return out
}

// IsCandidate 判断 staffID 是否在候选集合中
func IsCandidate(candidates []model.Staff, staffID string) (*model.Staff, bool) {
	for i := range candidates {
		if candidates[i].StaffID == staffID {
			return &candidates[i], true
		}
	}
	return nil, false
}

func teachesAny(s *model.Staff, subjects map[string]struct{}) bool {
	for _, sub := range []string{Normalize(s.Subject1), Normalize(s.Subject2)} {
		if sub == "" {
			continue
		}
		if _, ok := subjects[sub]; ok {
			return true
		}
	}
	return false
}
