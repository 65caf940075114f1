// Package user は管理者によるユーザー管理（承認・凍結・権限変更）を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/repository"
)

// Service はユーザー管理に関するビジネスロジックを提供する。
// すべての操作は管理者権限を前提とする（権限チェックはハンドラ側で行う）。
type Service struct {
	userRepo  repository.UserRepository
	statsRepo repository.StatsRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, statsRepo repository.StatsRepository) *Service {
	return &Service{
		userRepo:  userRepo,
		statsRepo: statsRepo,
	}
}

// List はユーザー一覧をページネーション付きで返す。
// searchが空でない場合は名前またはメールアドレスの部分一致で絞り込む。
func (s *Service) List(ctx context.Context, search string, page, limit int) ([]*model.User, int, error) {
	return s.userRepo.List(ctx, search, page, limit)
}

// ListPending は承認待ちユーザーを返す。
func (s *Service) ListPending(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.ListPending(ctx)
}

// Approve は承認待ちユーザーを承認し、ログイン可能にする。
func (s *Service) Approve(ctx context.Context, targetID string) error {
	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateStatus(ctx, target.ID, model.StatusApproved); err != nil {
		return fmt.Errorf("failed to approve user: %w", err)
	}

	slog.Info("user approved", slog.String("user_id", target.ID))
	return nil
}

// Reject は承認待ちユーザーの登録申請を却下する。
func (s *Service) Reject(ctx context.Context, targetID string) error {
	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateStatus(ctx, target.ID, model.StatusRejected); err != nil {
		return fmt.Errorf("failed to reject user: %w", err)
	}

	slog.Info("user rejected", slog.String("user_id", target.ID))
	return nil
}

// Ban はユーザーを凍結する。
// 自分自身および他の管理者は凍結できない。
func (s *Service) Ban(ctx context.Context, actorID, targetID string) error {
	target, err := s.guardModeration(ctx, actorID, targetID)
	if err != nil {
		return err
	}

	if err := s.userRepo.SetBanned(ctx, target.ID, true); err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}

	slog.Info("user banned",
		slog.String("user_id", target.ID),
		slog.String("actor_id", actorID),
	)
	return nil
}

// Unban はユーザーの凍結を解除する。
func (s *Service) Unban(ctx context.Context, targetID string) error {
	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.userRepo.SetBanned(ctx, target.ID, false); err != nil {
		return fmt.Errorf("failed to unban user: %w", err)
	}

	slog.Info("user unbanned", slog.String("user_id", target.ID))
	return nil
}

// MakeAdmin はユーザーに管理者権限を付与する。
func (s *Service) MakeAdmin(ctx context.Context, targetID string) error {
	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.userRepo.SetRole(ctx, target.ID, model.RoleAdmin); err != nil {
		return fmt.Errorf("failed to grant admin role: %w", err)
	}

	slog.Info("admin role granted", slog.String("user_id", target.ID))
	return nil
}

// RemoveAdmin はユーザーの管理者権限を剥奪する。
// 自分自身の権限は剥奪できない（管理者不在を防ぐ）。
func (s *Service) RemoveAdmin(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return model.NewForbiddenSelfError()
	}

	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.userRepo.SetRole(ctx, target.ID, model.RoleUser); err != nil {
		return fmt.Errorf("failed to revoke admin role: %w", err)
	}

	slog.Info("admin role revoked", slog.String("user_id", target.ID))
	return nil
}

// Delete はユーザーを削除する。
// 自分自身および他の管理者は削除できない。
// 関連するお気に入りはCASCADE削除される。
func (s *Service) Delete(ctx context.Context, actorID, targetID string) error {
	target, err := s.guardModeration(ctx, actorID, targetID)
	if err != nil {
		return err
	}

	if err := s.userRepo.DeleteByID(ctx, target.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user deleted",
		slog.String("user_id", target.ID),
		slog.String("actor_id", actorID),
	)
	return nil
}

// Stats は管理ダッシュボード用の集計値を返す。
func (s *Service) Stats(ctx context.Context) (*model.PortalStats, error) {
	stats, err := s.statsRepo.PortalStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load portal stats: %w", err)
	}
	return stats, nil
}

// findTarget は操作対象のユーザーを取得する。見つからない場合はAPIエラーを返す。
func (s *Service) findTarget(ctx context.Context, targetID string) (*model.User, error) {
	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}
	return target, nil
}

// guardModeration は破壊的な管理操作（凍結・削除）の対象を検証する。
// 自分自身と他の管理者への操作を拒否する。
func (s *Service) guardModeration(ctx context.Context, actorID, targetID string) (*model.User, error) {
	if actorID == targetID {
		return nil, model.NewForbiddenSelfError()
	}

	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == model.RoleAdmin {
		return nil, model.NewForbiddenAdminError()
	}

	return target, nil
}
