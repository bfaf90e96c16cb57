// Package reading 定义待上报的数据行（Reading）以及每台矿机的有界发送队列。
package reading

// Kind 数据类别（采集器名称）
type Kind string

const (
	KindStatus     Kind = "status"
	KindTemp       Kind = "temp"
	KindHashrate   Kind = "hashrate"
	KindThresholds Kind = "thresholds"
)

// Reading 一条待上报数据，创建后不可修改
type Reading struct {
	Kind      Kind
	Worker    string
	Payload   any
	Timestamp int64 // unix 秒
}

// New 创建一条数据
func New(kind Kind, worker string, payload any, ts int64) Reading {
	return Reading{Kind: kind, Worker: worker, Payload: payload, Timestamp: ts}
}

// Params 按 stats.submit 的参数顺序返回：[worker, kind, payload, timestamp]
func (r Reading) Params() []any {
	return []any{r.Worker, string(r.Kind), r.Payload, r.Timestamp}
}
