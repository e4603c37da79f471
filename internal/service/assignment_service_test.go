package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"exam-duty/internal/allocation"
	"exam-duty/internal/dto"
	"exam-duty/internal/model"
)

// ── 测试辅助 ──

func setupTestAssignmentService() (AssignmentService, *testRepos) {
	repos := newTestRepos()
	svc := NewAssignmentService(repos.toRepository(), nil, zap.NewNop())
	return svc, repos
}

func seedAssignment(repos *testRepos, id, date, subject, block, hall, staffID string) *model.Assignment {
	a := &model.Assignment{
		AssignmentID: id,
		AcademicYear: "2024-25",
		ExamType:     "IA1",
		ExamYear:     "1st Year",
		ExamDate:     date,
		Subject:      subject,
		Block:        block,
		Hall:         hall,
		StaffID:      staffID,
		StaffName:    "name-" + staffID,
	}
	_ = repos.assignment.Create(context.Background(), a)
	return a
}

// seedReassignData 同一天两个考区：X/H1 英语由 s-1 监考，Y/Y1 生物由 s-2 监考
func seedReassignData(repos *testRepos) {
	repos.staff.add(&model.Staff{StaffID: "s-1", Name: "Anu", Subject1: "History"})
	repos.staff.add(&model.Staff{StaffID: "s-2", Name: "Bala", Subject1: "History"})
	repos.staff.add(&model.Staff{StaffID: "s-3", Name: "Chitra", Subject1: "History", Email: "c@college.edu", Designation: "Associate Professor"})
	repos.staff.add(&model.Staff{StaffID: "s-4", Name: "Deepa", Subject1: "Biology"})
	repos.staff.add(&model.Staff{StaffID: "s-5", Name: "Esha", Subject2: "english"})
	seedAssignment(repos, "a-1", "2025-03-03", "English", "X", "H1", "s-1")
	seedAssignment(repos, "a-2", "2025-03-03", "Biology", "Y", "Y1", "s-2")
	seedAssignment(repos, "a-3", "2025-03-04", "Chemistry", "X", "H1", "s-3")
}

// ── List 测试 ──

func TestAssignmentService_List_GroupsAndStats(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)
	repos.assignment.items[0].Frozen = true

	resp, err := svc.List(context.Background(), &dto.AssignmentListRequest{AcademicYear: "2024-25"})
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.Stats.Total != 3 || resp.Stats.Frozen != 1 || resp.Stats.Open != 2 || resp.Stats.UniqueStaff != 3 {
		t.Errorf("统计异常: %+v", resp.Stats)
	}
	if len(resp.Groups) != 2 || resp.Groups[0].Date != "2025-03-03" || len(resp.Groups[0].Assignments) != 2 {
		t.Errorf("分组异常: %+v", resp.Groups)
	}
}

func TestAssignmentService_List_SubjectFilter(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)

	resp, err := svc.List(context.Background(), &dto.AssignmentListRequest{Subject: " BIO"})
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.Stats.Total != 1 || resp.Groups[0].Assignments[0].ID != "a-2" {
		t.Errorf("科目筛选异常: %+v", resp)
	}
}

// ── Freeze 测试 ──

func TestAssignmentService_FreezeOne_Success(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)

	resp, err := svc.FreezeOne(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if !resp.Frozen || resp.FrozenAt == nil {
		t.Errorf("冻结状态异常: %+v", resp)
	}

	counts := repos.staff.staff[0].InvigilationCount
	if counts.Get("2024-25", "IA1") != 1 || counts.Total("IA1") != 1 {
		t.Errorf("计数异常: %+v", counts)
	}

	// 再次冻结：拒绝且计数不变
	_, err = svc.FreezeOne(context.Background(), "a-1")
	if !errors.Is(err, allocation.ErrAssignmentFrozen) {
		t.Fatalf("期望 ErrAssignmentFrozen，实际: %v", err)
	}
	counts = repos.staff.staff[0].InvigilationCount
	if counts.Get("2024-25", "IA1") != 1 || counts.Total("IA1") != 1 {
		t.Errorf("重复冻结不应递增计数: %+v", counts)
	}
}

func TestAssignmentService_FreezeOne_NotFound(t *testing.T) {
	svc, _ := setupTestAssignmentService()

	_, err := svc.FreezeOne(context.Background(), "missing")
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("期望 ErrAssignmentNotFound，实际: %v", err)
	}
}

func TestAssignmentService_FreezeAll(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)
	_, _ = svc.FreezeOne(context.Background(), "a-2")

	resp, err := svc.FreezeAll(context.Background(), &dto.AssignmentListRequest{AcademicYear: "2024-25"})
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.Frozen != 2 || resp.Remaining != 0 || resp.FailedID != "" {
		t.Errorf("批量冻结结果异常: %+v", resp)
	}
	if repos.staff.staff[1].InvigilationCount.Total("IA1") != 1 {
		t.Error("已冻结的分配不应重复计数")
	}
}

func TestAssignmentService_FreezeAll_StopsOnFailure(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)
	repos.assignment.freezeErr["a-2"] = errors.New("connection reset")

	resp, err := svc.FreezeAll(context.Background(), &dto.AssignmentListRequest{})
	if err == nil {
		t.Fatal("期望返回错误")
	}
	if resp.Frozen != 1 || resp.FailedID != "a-2" || resp.Remaining != 2 {
		t.Errorf("失败进度异常: %+v", resp)
	}
	if repos.assignment.items[2].Frozen {
		t.Error("失败后不应继续冻结后续记录")
	}
}

// ── Candidates 测试 ──

func TestAssignmentService_GetCandidates(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)

	got, err := svc.GetCandidates(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	// s-2 当日在 Y 考区监考；s-4 教生物、s-5 教英语，均为当日考试科目
	var ids []string
	for _, c := range got {
		ids = append(ids, c.StaffID)
	}
	if len(ids) != 2 || ids[0] != "s-1" || ids[1] != "s-3" {
		t.Fatalf("候选人异常: %v", ids)
	}
	if !got[0].Current || got[1].Current {
		t.Error("Current 标记异常")
	}
}

// ── Reassign 测试 ──

func TestAssignmentService_Reassign_Success(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)

	resp, err := svc.Reassign(context.Background(), "a-1", &dto.ReassignRequest{StaffID: "s-3", Reason: "on leave"})
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if resp.StaffID != "s-3" || resp.StaffName != "Chitra" || resp.StaffEmail != "c@college.edu" || resp.Designation != "Associate Professor" {
		t.Errorf("快照字段未更新: %+v", resp)
	}
	if resp.ExamDate != "2025-03-03" || resp.Hall != "H1" || resp.Subject != "English" {
		t.Errorf("日期/考场/科目不应改变: %+v", resp)
	}
	if len(repos.changeLog.logs) != 1 {
		t.Fatalf("应写入 1 条调整记录，实际 %d", len(repos.changeLog.logs))
	}
	log := repos.changeLog.logs[0]
	if log.OriginalStaffID != "s-1" || log.NewStaffID != "s-3" || log.Reason != "on leave" {
		t.Errorf("调整记录异常: %+v", log)
	}
}

func TestAssignmentService_Reassign_NotEligible(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)

	for _, staffID := range []string{"s-2", "s-4", "s-5"} {
		_, err := svc.Reassign(context.Background(), "a-1", &dto.ReassignRequest{StaffID: staffID})
		if !errors.Is(err, ErrCandidateNotEligible) {
			t.Errorf("%s: 期望 ErrCandidateNotEligible，实际: %v", staffID, err)
		}
	}
	if len(repos.changeLog.logs) != 0 {
		t.Error("拒绝时不应写入调整记录")
	}
}

func TestAssignmentService_Reassign_ConcurrentSameDayConflict(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)
	// s-3 通过候选人校验后，另一操作员把 s-3 调到了同日的 Y/Y2
	repos.assignment.beforeReassign = func() {
		repos.assignment.beforeReassign = nil
		seedAssignment(repos, "a-9", "2025-03-03", "Biology", "Y", "Y2", "s-3")
	}

	_, err := svc.Reassign(context.Background(), "a-1", &dto.ReassignRequest{StaffID: "s-3"})
	if !errors.Is(err, ErrCandidateNotEligible) {
		t.Fatalf("期望 ErrCandidateNotEligible，实际: %v", err)
	}
	if a := repos.assignment.find("a-1"); a.StaffID != "s-1" || a.Version != 1 {
		t.Errorf("冲突时分配不应被修改: %+v", a)
	}
	if len(repos.changeLog.logs) != 0 {
		t.Error("冲突时不应写入调整记录")
	}

	held := 0
	for _, a := range repos.assignment.items {
		if a.StaffID == "s-3" && a.ExamDate == "2025-03-03" {
			held++
		}
	}
	if held != 1 {
		t.Errorf("s-3 当日应只有 1 条分配，实际 %d", held)
	}
}

func TestAssignmentService_Reassign_Frozen(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)
	_, _ = svc.FreezeOne(context.Background(), "a-1")

	_, err := svc.Reassign(context.Background(), "a-1", &dto.ReassignRequest{StaffID: "s-3"})
	if !errors.Is(err, allocation.ErrAssignmentFrozen) {
		t.Fatalf("期望 ErrAssignmentFrozen，实际: %v", err)
	}
	if repos.assignment.items[0].StaffID != "s-1" {
		t.Error("冻结记录不应被修改")
	}
}

func TestAssignmentService_Reassign_Errors(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)

	if _, err := svc.Reassign(context.Background(), "missing", &dto.ReassignRequest{StaffID: "s-3"}); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("期望 ErrAssignmentNotFound，实际: %v", err)
	}
	if _, err := svc.Reassign(context.Background(), "a-1", &dto.ReassignRequest{StaffID: "s-1"}); !errors.Is(err, ErrSameStaff) {
		t.Errorf("期望 ErrSameStaff，实际: %v", err)
	}
	if _, err := svc.Reassign(context.Background(), "a-1", &dto.ReassignRequest{StaffID: "ghost"}); !errors.Is(err, ErrStaffNotFound) {
		t.Errorf("期望 ErrStaffNotFound，实际: %v", err)
	}
}

// ── ChangeLogs 测试 ──

func TestAssignmentService_ListChangeLogs(t *testing.T) {
	svc, repos := setupTestAssignmentService()
	seedReassignData(repos)
	_, _ = svc.Reassign(context.Background(), "a-1", &dto.ReassignRequest{StaffID: "s-3"})

	logs, total, err := svc.ListChangeLogs(context.Background(), &dto.ChangeLogListRequest{AssignmentID: "a-1"})
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if total != 1 || len(logs) != 1 || logs[0].NewStaffID != "s-3" {
		t.Errorf("调整记录异常: total=%d logs=%+v", total, logs)
	}
}
