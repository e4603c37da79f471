// Package metrics 分配与冻结相关的业务指标
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder 业务指标采集接口，服务层只依赖此接口
type Recorder interface {
	// RecordRun 记录一次分配运行，result: success | aborted | rejected
	RecordRun(result string, duration time.Duration)
	// RecordSlots 记录一次运行的槽位结果，outcome: created | unfilled | skipped
	RecordSlots(outcome string, n int)
	// RecordFreeze 记录冻结结果，result: success | frozen | failure
	RecordFreeze(result string, n int)
	// RecordReassign 记录人工调整结果
	RecordReassign(result string)
}

// Nop 不采集任何指标
type Nop struct{}

// NewNop 创建空实现
func NewNop() *Nop { return &Nop{} }

func (*Nop) RecordRun(string, time.Duration) {}
func (*Nop) RecordSlots(string, int)         {}
func (*Nop) RecordFreeze(string, int)        {}
func (*Nop) RecordReassign(string)           {}

var _ Recorder = (*Nop)(nil)

// Prometheus 基于 Prometheus 的实现，首次使用时注册
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	slots        *prometheus.CounterVec
	freezes      *prometheus.CounterVec
	reassignment *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus reg 为 nil 时使用 prometheus.DefaultRegisterer，namespace 默认 exam_duty
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "exam_duty"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "runs_total",
			Help:      "Allocation runs by result (success, aborted, rejected).",
		}, []string{"result"})

		p.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "run_duration_seconds",
			Help:      "Wall time of allocation runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		})

		p.slots = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "allocation",
			Name:      "slots_total",
			Help:      "Hall slots processed by outcome (created, unfilled, skipped).",
		}, []string{"outcome"})

		p.freezes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "assignment",
			Name:      "freezes_total",
			Help:      "Freeze attempts by result (success, frozen, failure).",
		}, []string{"result"})

		p.reassignment = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "assignment",
			Name:      "reassignments_total",
			Help:      "Manual reassignments by result.",
		}, []string{"result"})

		p.reg.MustRegister(p.runs, p.runDuration, p.slots, p.freezes, p.reassignment)
	})
}

// RecordRun 实现 Recorder
func (p *Prometheus) RecordRun(result string, duration time.Duration) {
	p.ensureRegistered()
	p.runs.WithLabelValues(result).Inc()
	p.runDuration.Observe(duration.Seconds())
}

// RecordSlots 实现 Recorder
func (p *Prometheus) RecordSlots(outcome string, n int) {
	if n <= 0 {
		return
	}
	p.ensureRegistered()
	p.slots.WithLabelValues(outcome).Add(float64(n))
}

// RecordFreeze 实现 Recorder
func (p *Prometheus) RecordFreeze(result string, n int) {
	if n <= 0 {
		return
	}
	p.ensureRegistered()
	p.freezes.WithLabelValues(result).Add(float64(n))
}

// RecordReassign 实现 Recorder
func (p *Prometheus) RecordReassign(result string) {
	p.ensureRegistered()
	p.reassignment.WithLabelValues(result).Inc()
}
