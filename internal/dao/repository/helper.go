package repository

import (
	"errors"

	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/errorx"

	"gorm.io/gorm"
)

// wrapDBError 唯一约束冲突 -> CodeDuplicate，其余 -> CodeDBError。
// 记录不存在不经过这里，读接口直接返回 nil
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errorx.Wrap(err, errorx.CodeDuplicate, msg)
	}
	return errorx.Wrap(err, errorx.CodeDBError, msg)
}

func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errorx.Wrapf(err, errorx.CodeDuplicate, format, args...)
	}
	return errorx.Wrapf(err, errorx.CodeDBError, format, args...)
}

// takeOrNil 查询单行，不存在返回 (nil, nil)
func takeOrNil[T any](db *gorm.DB, msg string) (*T, error) {
	var v T
	err := db.Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError(err, msg)
	}
	return &v, nil
}

// activeMemberStatuses 名册包含的成员状态
var activeMemberStatuses = []model.MemberStatus{model.MemberStatusActive, model.MemberStatusApproved}
