package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrLockUnavailable 租约服务不可用且配置要求必须持有租约
var ErrLockUnavailable = errors.New("分配租约服务不可用")

// ErrSlotTaken 同一范围、日期、考区、考场已有监考分配
var ErrSlotTaken = errors.New("该考场当日已有监考分配")

// ErrStaffDateConflict 教职工在同一范围的该日期已有监考分配
var ErrStaffDateConflict = errors.New("该教职工当日已有监考分配")
