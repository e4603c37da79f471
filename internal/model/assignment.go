package model

import "time"

// Assignment 监考分配表：对应 assignments
//
// StaffName / StaffEmail / Designation 是分配时刻的历史快照，
// 教职工资料之后变更不会回写，用于追溯当时以何种职称被安排。
// Frozen 只能由 false 变为 true，冻结后记录不可再修改。
type Assignment struct {
	AssignmentID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	AcademicYear string     `gorm:"type:varchar(20);not null"                      json:"academic_year"`
	ExamType     string     `gorm:"type:varchar(20);not null"                      json:"exam_type"` // IA1 | IA2 | Model | Semester
	ExamYear     string     `gorm:"type:varchar(30);not null"                      json:"exam_year"` // 1st Year | Higher Semester
	ExamDate     string     `gorm:"type:varchar(10);not null"                      json:"exam_date"` // YYYY-MM-DD
	Subject      string     `gorm:"type:varchar(100);not null"                     json:"subject"`
	Block        string     `gorm:"type:varchar(100);not null"                     json:"block"`
	Hall         string     `gorm:"type:varchar(100);not null"                     json:"hall"`
	StaffID      string     `gorm:"type:uuid;not null"                             json:"staff_id"`
	StaffName    string     `gorm:"type:varchar(100);not null"                     json:"staff_name"`
	StaffEmail   string     `gorm:"type:varchar(255)"                              json:"staff_email"`
	Designation  string     `gorm:"type:varchar(100)"                              json:"designation"`
	Frozen       bool       `gorm:"not null;default:false"                         json:"frozen"`
	FrozenAt     *time.Time `json:"frozen_at,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }

// AssignmentChangeLog 人工调整记录表：对应 assignment_change_logs（纯审计日志）
type AssignmentChangeLog struct {
	ChangeLogID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	AssignmentID    string    `gorm:"type:uuid;not null;index"                       json:"assignment_id"`
	OriginalStaffID string    `gorm:"type:uuid;not null"                             json:"original_staff_id"`
	NewStaffID      string    `gorm:"type:uuid;not null"                             json:"new_staff_id"`
	Reason          string    `gorm:"type:varchar(500)"                              json:"reason,omitempty"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AssignmentChangeLog) TableName() string { return "assignment_change_logs" }
