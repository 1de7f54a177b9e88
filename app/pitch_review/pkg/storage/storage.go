package storage

import (
	"context"
	"errors"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")

// PitchStore 审核流程使用的存储接口
// 实现持有写入派生字段所需的权限，由调用方显式传入
type PitchStore interface {
	// GetPitch 读取项目，不存在时返回 ErrNotFound
	GetPitch(ctx context.Context, id string) (*model.Pitch, error)
	// GetDemo 读取项目关联的演示，没有时返回 nil, nil
	GetDemo(ctx context.Context, pitchID string) (*model.Demo, error)
	// SaveReview 一次性写入全部派生字段
	SaveReview(ctx context.Context, id string, update *model.ReviewUpdate) error
	// ListPending 列出从未审核过的 pending 项目 ID，按提交时间排序
	ListPending(ctx context.Context, limit int) ([]string, error)
	// CreatePitch 新建待审核项目，返回 ID
	CreatePitch(ctx context.Context, pitch *model.Pitch) (string, error)
	// CreateDemo 为项目新增演示记录
	CreateDemo(ctx context.Context, demo *model.Demo) (string, error)
	Close() error
}
