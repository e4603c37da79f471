package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"exam-duty/internal/model"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "data structures", Normalize("  Data Structures\t"))
	assert.Equal(t, "", Normalize("   "))
}

func TestParseCap(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"5", 5},
		{" 3 ", 3},
		{"0", Unlimited},
		{"-2", Unlimited},
		{"", Unlimited},
		{"five", Unlimited},
		{"1.5", 1},
		{"3 duties", 3},
		{"+4", 4},
		{"-1.5", Unlimited},
		{"0.9", Unlimited},
		{"- 3", Unlimited},
		{"99999999999999999999", Unlimited},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCap(tt.raw), "ParseCap(%q)", tt.raw)
	}
}

func TestCaps_CapFor(t *testing.T) {
	caps := Caps{Associate: 4, Others: 6}
	assoc := &model.Staff{Designation: "Associate Professor"}
	asst := &model.Staff{Designation: "Assistant Professor"}
	blank := &model.Staff{}

	assert.Equal(t, 4, caps.CapFor(assoc))
	assert.Equal(t, 6, caps.CapFor(asst))
	assert.Equal(t, 6, caps.CapFor(blank))
	assert.Equal(t, Unlimited, Caps{}.CapFor(assoc))
}

func TestTeachesSubject(t *testing.T) {
	s := &model.Staff{Subject1: "Mathematics ", Subject2: "PHYSICS"}
	assert.True(t, TeachesSubject(s, "mathematics"))
	assert.True(t, TeachesSubject(s, " Physics"))
	assert.False(t, TeachesSubject(s, "Chemistry"))
	assert.False(t, TeachesSubject(&model.Staff{}, ""), "空科目不构成冲突")
}

func TestBlockedByDate_UnionPerDate(t *testing.T) {
	staff := []model.Staff{
		{StaffID: "m", Subject1: "Math"},
		{StaffID: "p", Subject2: "Physics"},
		{StaffID: "e", Subject1: "English"},
	}
	entries := []ExamEntry{
		{Date: "d1", Subject: "Math"},
		{Date: "d1", Subject: "physics"},
		{Date: "d2", Subject: "English"},
	}
	blocked := BlockedByDate(entries, staff)

	assert.True(t, blocked.Blocked("d1", "m"))
	assert.True(t, blocked.Blocked("d1", "p"))
	assert.False(t, blocked.Blocked("d1", "e"))
	assert.True(t, blocked.Blocked("d2", "e"))
	assert.False(t, blocked.Blocked("d3", "m"))
}

func TestEligible(t *testing.T) {
	s := &model.Staff{StaffID: "s1", Subject1: "Math"}
	entry := ExamEntry{Date: "d1", Subject: "English"}
	none := DateBlocks{}

	assert.True(t, Eligible(s, entry, none, NewTally(nil), Unlimited))
	assert.False(t, Eligible(s, ExamEntry{Date: "d1", Subject: "math"}, none, NewTally(nil), Unlimited), "任教科目")
	assert.False(t, Eligible(s, entry, DateBlocks{"d1": idSet{"s1": {}}}, NewTally(nil), Unlimited), "当日屏蔽")

	tally := NewTally([]model.Assignment{{StaffID: "s1", ExamDate: "d0"}})
	assert.False(t, Eligible(s, entry, none, tally, 1), "达到上限")
	assert.True(t, Eligible(s, entry, none, tally, 2))

	tally.Record("s1", "d1")
	assert.False(t, Eligible(s, entry, none, tally, Unlimited), "当日已有分配")
}
