package biz

import (
	"context"
)

// Transaction 事务管理接口
//
// InTx 在一个数据库事务内执行 fn，fn 返回错误时整体回滚。
// 若 ctx 已经携带事务，则直接复用外层事务，不再开启新的事务。
type Transaction interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
