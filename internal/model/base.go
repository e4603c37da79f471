package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// ── PostgreSQL JSONB 监考次数类型 ──

// UnknownAcademicYear 学年为空时计数归入的键
const UnknownAcademicYear = "Unknown"

// InvigilationCounts 教职工累计监考次数，对应 staffs.invigilation_count (JSONB)。
//
// 存储格式与历史文档保持一致，学年键与考试类型键混排在同一个对象中：
//
//	{"2024-25": {"IA1": 2, "Model": 1}, "IA1": 2, "Model": 1}
//
// 对象值解析为 ByYear，数值解析为 Totals（跨学年汇总）。
type InvigilationCounts struct {
	ByYear map[string]map[string]int
	Totals map[string]int
}

// Get 返回指定学年、考试类型的次数
func (c InvigilationCounts) Get(academicYear, examType string) int {
	if c.ByYear == nil {
		return 0
	}
	return c.ByYear[academicYear][examType]
}

// Total 返回指定考试类型的跨学年汇总次数
func (c InvigilationCounts) Total(examType string) int {
	return c.Totals[examType]
}

// Increment 同时递增 [学年][考试类型] 与扁平化的 [考试类型] 计数
func (c *InvigilationCounts) Increment(academicYear, examType string) {
	if academicYear == "" {
		academicYear = UnknownAcademicYear
	}
	if c.ByYear == nil {
		c.ByYear = make(map[string]map[string]int)
	}
	if c.Totals == nil {
		c.Totals = make(map[string]int)
	}
	year := c.ByYear[academicYear]
	if year == nil {
		year = make(map[string]int)
		c.ByYear[academicYear] = year
	}
	year[examType]++
	c.Totals[examType]++
}

// Clone 深拷贝，避免事务失败时污染调用方持有的值
func (c InvigilationCounts) Clone() InvigilationCounts {
	out := InvigilationCounts{
		ByYear: make(map[string]map[string]int, len(c.ByYear)),
		Totals: make(map[string]int, len(c.Totals)),
	}
	for y, types := range c.ByYear {
		inner := make(map[string]int, len(types))
		for t, n := range types {
			inner[t] = n
		}
		out.ByYear[y] = inner
	}
	for t, n := range c.Totals {
		out.Totals[t] = n
	}
	return out
}

// MarshalJSON 输出学年对象与汇总数值混排的单层对象
func (c InvigilationCounts) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(c.ByYear)+len(c.Totals))
	for t, n := range c.Totals {
		flat[t] = n
	}
	for y, types := range c.ByYear {
		flat[y] = types
	}
	return json.Marshal(flat)
}

// UnmarshalJSON 按值类型区分学年对象与汇总数值
func (c *InvigilationCounts) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("InvigilationCounts: %w", err)
	}
	c.ByYear = make(map[string]map[string]int)
	c.Totals = make(map[string]int)

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := raw[k]
		var n int
		if err := json.Unmarshal(v, &n); err == nil {
			c.Totals[k] = n
			continue
		}
		var types map[string]int
		if err := json.Unmarshal(v, &types); err != nil {
			return fmt.Errorf("InvigilationCounts: invalid value for key %q: %w", k, err)
		}
		c.ByYear[k] = types
	}
	return nil
}

// Scan 实现 sql.Scanner
func (c *InvigilationCounts) Scan(src interface{}) error {
	if src == nil {
		*c = InvigilationCounts{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("InvigilationCounts.Scan: unsupported type %T", src)
	}
	if len(b) == 0 {
		*c = InvigilationCounts{}
		return nil
	}
	return c.UnmarshalJSON(b)
}

// Value 实现 driver.Valuer
func (c InvigilationCounts) Value() (driver.Value, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GormDataType 指定列类型
func (InvigilationCounts) GormDataType() string { return "jsonb" }

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}
