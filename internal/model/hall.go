package model

// Hall 考场表：对应 halls（引擎只读）
type Hall struct {
	HallID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"hall_id"`
	ExamHall string `gorm:"type:varchar(100);not null"                     json:"exam_hall"`
	Block    string `gorm:"type:varchar(100);not null;index"               json:"block"`
	SoftDeleteModel
}

// TableName 指定表名
func (Hall) TableName() string { return "halls" }
