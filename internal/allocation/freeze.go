package allocation

import "exam-duty/internal/model"

// CheckMutable 冻结后的分配不可再修改，所有修改路径先经过此检查
func CheckMutable(a *model.Assignment) error {
	if a.Frozen {
		return ErrAssignmentFrozen
	}
	return nil
}

// OpenAssignments 返回尚未冻结的分配，保持原顺序
func OpenAssignments(list []model.Assignment) []model.Assignment {
	open := make([]model.Assignment, 0, len(list))
	for _, a := range list {
		if !a.Frozen {
			open = append(open, a)
		}
	}
	return open
}

// ApplyFreeze 返回冻结该分配后教职工的新计数，不修改入参
func ApplyFreeze(counts model.InvigilationCounts, a *model.Assignment) model.InvigilationCounts {
	next := counts.Clone()
	next.Increment(a.AcademicYear, a.ExamType)
	return next
}
