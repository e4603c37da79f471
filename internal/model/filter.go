package model

// AssignmentFilter 监考分配查询条件，零值字段表示不过滤
type AssignmentFilter struct {
	AcademicYear string
	ExamType     string
	ExamYear     string
	Blocks       []string
	ExamDate     string
	Subject      string // 归一化后的子串匹配
	Frozen       *bool
}
