package model

// Staff 教职工表：对应 staffs
//
// InvigilationCount 只由冻结操作递增，分配引擎从不修改或删除教职工记录。
type Staff struct {
	StaffID           string             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"staff_id"`
	Name              string             `gorm:"type:varchar(100);not null"                     json:"name"`
	Designation       string             `gorm:"type:varchar(100);not null;default:''"          json:"designation"`
	Subject1          string             `gorm:"column:subject1;type:varchar(100)"              json:"subject1"`
	Subject2          string             `gorm:"column:subject2;type:varchar(100)"              json:"subject2"`
	Email             string             `gorm:"type:varchar(255)"                              json:"email"`
	InvigilationCount InvigilationCounts `gorm:"type:jsonb;not null;default:'{}'"               json:"invigilation_count"`
	VersionedModel
}

// TableName 指定表名
func (Staff) TableName() string { return "staffs" }
