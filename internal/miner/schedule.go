package miner

// Schedule 单个采集器的对齐调度：触发点始终落在 interval 网格上
type Schedule struct {
	interval int64
	next     int64
	armed    bool
}

// NewSchedule interval 单位秒，<= 0 按 1 处理
func NewSchedule(interval int) *Schedule {
	if interval <= 0 {
		interval = 1
	}
	return &Schedule{interval: int64(interval)}
}

func (s *Schedule) boundary(now int64) int64 {
	return (now/s.interval)*s.interval + s.interval
}

// Reset 下次触发点设为 now 之后的第一个网格边界
func (s *Schedule) Reset(now int64) {
	s.next = s.boundary(now)
	s.armed = true
}

// Due 未 Reset 前永不触发
func (s *Schedule) Due(now int64) bool {
	return s.armed && now >= s.next
}

// Fire 记录一次触发。错过多个周期时也只前进到 now 之后的下一个边界，不补发
func (s *Schedule) Fire(now int64) {
	s.next = s.boundary(now)
}

// Next 下次触发时间（unix 秒）
func (s *Schedule) Next() int64 { return s.next }

// Interval 周期（秒）
func (s *Schedule) Interval() int64 { return s.interval }
