package dto

// ── 名册模块 DTO ──

// StaffResponse 教职工及其累计监考次数
type StaffResponse struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Designation string                    `json:"designation"`
	Subject1    string                    `json:"subject1,omitempty"`
	Subject2    string                    `json:"subject2,omitempty"`
	Email       string                    `json:"email,omitempty"`
	Totals      map[string]int            `json:"totals"`
	ByYear      map[string]map[string]int `json:"by_year,omitempty"`
}
