package reading

// DefaultCapacity 每台矿机发送队列的默认容量
const DefaultCapacity = 10

// Queue 有界 FIFO 队列。
// 超出容量时从队首截断：丢弃最旧的数据，保留最新的数据。
// 只在主循环中访问，不加锁。
type Queue struct {
	items    []Reading
	capacity int
}

// NewQueue 创建队列，capacity <= 0 时使用 DefaultCapacity
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		items:    make([]Reading, 0, capacity),
		capacity: capacity,
	}
}

// Push 追加一条数据，返回因超出容量被丢弃的旧数据条数
func (q *Queue) Push(r Reading) int {
	q.items = append(q.items, r)
	over := len(q.items) - q.capacity
	if over <= 0 {
		return 0
	}
	kept := make([]Reading, q.capacity)
	copy(kept, q.items[over:])
	q.items = kept
	return over
}

// Len 当前队列长度
func (q *Queue) Len() int { return len(q.items) }

// Cap 队列容量
func (q *Queue) Cap() int { return q.capacity }

// Items 返回队列内容的副本（按入队顺序）
func (q *Queue) Items() []Reading {
	out := make([]Reading, len(q.items))
	copy(out, q.items)
	return out
}

// TrimFront 移除队首 n 条已成功投递的数据（前缀出队）
func (q *Queue) TrimFront(n int) {
	if n <= 0 {
		return
	}
	if n >= len(q.items) {
		q.items = q.items[:0]
		return
	}
	rest := make([]Reading, len(q.items)-n, q.capacity)
	copy(rest, q.items[n:])
	q.items = rest
}

// Clear 清空队列
func (q *Queue) Clear() { q.items = q.items[:0] }
