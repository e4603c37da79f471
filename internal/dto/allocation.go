package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"exam-duty/internal/allocation"
)

// ── 分配模块 DTO ──

// CapValue 监考上限，接受数字、数字字符串、"unlimited" 或 null。
// 未提供时 Set 为 false，由服务层使用配置默认值。
type CapValue struct {
	Set   bool
	Limit int // allocation.Unlimited 表示不限
}

// UnmarshalJSON 实现 json.Unmarshaler
func (c *CapValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = CapValue{}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*c = CapValue{Set: true, Limit: allocation.ParseCap(n.String())}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cap 必须为数字或字符串: %w", err)
	}
	*c = CapValue{Set: true, Limit: allocation.ParseCap(s)}
	return nil
}

// MarshalJSON 不限输出 "unlimited"
func (c CapValue) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	if c.Limit == allocation.Unlimited {
		return []byte(`"unlimited"`), nil
	}
	return json.Marshal(c.Limit)
}

// CapsRequest 按职称的监考上限
type CapsRequest struct {
	Associate CapValue `json:"associate"`
	Others    CapValue `json:"others"`
}

// ExamEntryRequest 一条考试安排；日期或科目为空的条目在分配时被忽略
type ExamEntryRequest struct {
	Date    string `json:"date"    binding:"omitempty,exam_date"`
	Subject string `json:"subject" binding:"max=100"`
}

// RunAllocationRequest 执行分配请求
type RunAllocationRequest struct {
	AcademicYear string             `json:"academic_year" binding:"required,notblank,max=20"`
	ExamType     string             `json:"exam_type"     binding:"required,exam_type"`
	ExamYear     string             `json:"exam_year"     binding:"required,exam_year"`
	Blocks       []string           `json:"blocks"        binding:"dive,notblank"`
	Schedule     []ExamEntryRequest `json:"exam_schedule" binding:"dive"`
	Caps         CapsRequest        `json:"caps"`
}

// ── 响应 ──

// RunStats 分配统计
type RunStats struct {
	Created  int `json:"created"`
	Unfilled int `json:"unfilled"`
	Skipped  int `json:"skipped"`
}

// RunAllocationResponse 分配结果；中途终止时 Aborted 为 true，Created 为已写入部分
type RunAllocationResponse struct {
	Created     []AssignmentResponse  `json:"created"`
	Unfilled    []allocation.Unfilled `json:"unfilled"`
	Stats       RunStats              `json:"stats"`
	Aborted     bool                  `json:"aborted,omitempty"`
	AbortReason string                `json:"abort_reason,omitempty"`
}
