package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"exam-duty/internal/dto"
	"exam-duty/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoAssignments = errors.New("筛选条件下没有监考分配")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportAssignments 导出筛选后的监考分配为 Excel，返回内容与建议文件名
	ExportAssignments(ctx context.Context, req *dto.AssignmentListRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// exportColumns 表头，顺序即列顺序
var exportColumns = []string{
	"Academic Year", "Exam Type", "Exam For", "Date", "Subject",
	"Block", "Hall", "Staff", "Email", "Status",
}

const exportSheet = "Assignments"

// ═══════════════════════════════════════════════════════════
// ExportAssignments：导出监考分配为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单个 Sheet "Assignments"，第 1 行表头，冻结首行并开启自动筛选
//   - 每条分配一行，按考试日期排序（与列表接口一致）
//   - Status 列为 Frozen / Open

func (s *exportService) ExportAssignments(ctx context.Context, req *dto.AssignmentListRequest) (*bytes.Buffer, string, error) {
	list, err := s.repo.Assignment.List(ctx, req.Filter())
	if err != nil {
		s.logger.Error("查询监考分配失败", zap.Error(err))
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrExportNoAssignments
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		s.logger.Error("创建 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, title := range exportColumns {
		f.SetCellValue(exportSheet, cell(colName(i), 1), title)
	}
	lastCol := colName(len(exportColumns) - 1)
	f.SetCellStyle(exportSheet, "A1", cell(lastCol, 1), headerStyle)
	f.SetColWidth(exportSheet, "A", lastCol, 16)
	f.SetColWidth(exportSheet, "E", "E", 28)
	f.SetColWidth(exportSheet, "I", "I", 30)

	for i := range list {
		a := &list[i]
		row := i + 2
		status := "Open"
		if a.Frozen {
			status = "Frozen"
		}
		values := []interface{}{
			a.AcademicYear, a.ExamType, a.ExamYear, a.ExamDate, a.Subject,
			a.Block, a.Hall, a.StaffName, a.StaffEmail, status,
		}
		if err := f.SetSheetRow(exportSheet, cell("A", row), &values); err != nil {
			s.logger.Error("写入数据行失败", zap.Int("row", row), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	f.AutoFilter(exportSheet, fmt.Sprintf("A1:%s", cell(lastCol, len(list)+1)), nil)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, exportFilename(req), nil
}

// exportFilename 由筛选范围拼出文件名，空字段省略
func exportFilename(req *dto.AssignmentListRequest) string {
	parts := []string{"invigilation"}
	for _, p := range []string{req.AcademicYear, req.ExamType, req.ExamYear, req.ExamDate} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, strings.ReplaceAll(p, " ", "_"))
		}
	}
	return strings.Join(parts, "_") + ".xlsx"
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
