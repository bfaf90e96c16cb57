package miner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduleResetAlignsToGrid(t *testing.T) {
	s := NewSchedule(60)
	assert.False(t, s.Due(1_000_000), "unarmed schedule never fires")

	// 1_000_020 是 60 的倍数
	s.Reset(1_000_030)
	assert.Equal(t, int64(1_000_080), s.Next())
	assert.False(t, s.Due(1_000_079))
	assert.True(t, s.Due(1_000_080))

	// 恰好落在边界上时取下一个边界
	s.Reset(1_000_020)
	assert.Equal(t, int64(1_000_080), s.Next())
}

func TestScheduleFireOnTimeAdvancesOneInterval(t *testing.T) {
	s := NewSchedule(60)
	s.Reset(1_000_030)

	s.Fire(1_000_080)
	assert.Equal(t, int64(1_000_140), s.Next())

	// 迟到几秒仍然回到网格上，不漂移
	assert.True(t, s.Due(1_000_143))
	s.Fire(1_000_143)
	assert.Equal(t, int64(1_000_200), s.Next())
	assert.Zero(t, s.Next()%60)
}

func TestScheduleMissedIntervalsFireOnce(t *testing.T) {
	s := NewSchedule(10)
	s.Reset(100)
	assert.Equal(t, int64(110), s.Next())

	// 断线很久后只触发一次，然后对齐
	now := int64(175)
	assert.True(t, s.Due(now))
	s.Fire(now)
	assert.False(t, s.Due(now))
	assert.Equal(t, int64(180), s.Next())
}

func TestScheduleNeverFiresTwiceWithinInterval(t *testing.T) {
	s := NewSchedule(5)
	s.Reset(0)
	fired := []int64{}
	for now := int64(0); now <= 30; now++ {
		if s.Due(now) {
			s.Fire(now)
			fired = append(fired, now)
		}
	}
	assert.Equal(t, []int64{5, 10, 15, 20, 25, 30}, fired)
}

func TestScheduleNonPositiveInterval(t *testing.T) {
	s := NewSchedule(0)
	assert.Equal(t, int64(1), s.Interval())
}
