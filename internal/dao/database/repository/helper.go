package repository

import (
	"errors"
	"strings"

	"nexus_chat_server/pkg/errorx"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== 错误包装辅助函数 ====================

// wrapDBError 包装数据库错误
// 根据错误类型返回不同的错误码：
//   - ErrRecordNotFound -> CodeNotFound
//   - 唯一约束冲突 -> CodeConflict
//   - 其他错误 -> CodeDBError
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errorx.Wrap(err, classify(err), msg)
}

// wrapDBErrorf 包装数据库错误（支持格式化消息）
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errorx.Wrapf(err, classify(err), format, args...)
}

func classify(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorx.CodeNotFound
	case isDuplicateErr(err):
		return errorx.CodeConflict
	}
	return errorx.CodeDBError
}

// isDuplicateErr 判断是否为唯一约束冲突
// mysql/postgres 驱动会翻译为 gorm.ErrDuplicatedKey，sqlite 依赖错误文本
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

// forUpdate 为查询加行锁（SELECT ... FOR UPDATE）
// sqlite 不支持行锁，单连接下写操作本身已串行
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// page 统一的分页倒序查询：取 seq < beforeSeq 的最新 limit 条
func page(db *gorm.DB, beforeSeq int64, limit int) *gorm.DB {
	if beforeSeq > 0 {
		db = db.Where("seq < ?", beforeSeq)
	}
	if limit > 0 {
		return db.Order("created_at DESC, seq DESC").Limit(limit)
	}
	return db.Order("created_at ASC, seq ASC")
}

// reverse 将倒序结果翻转为正序
func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
