// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/agrimarket/internal/database"
	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/hitoshi/agrimarket/internal/repository"
)

// Profile は認証プロバイダーから同期するプロフィール。
type Profile struct {
	Subject  string
	Email    string
	Name     string
	ImageURL string
}

// Service はユーザー管理のサービス層。
// 外部認証IDと内部ユーザーIDの紐付けと、退会処理を提供する。
type Service struct {
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	provider  string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, identRepo repository.IdentityRepository) *Service {
	return &Service{
		userRepo:  userRepo,
		identRepo: identRepo,
		provider:  model.ProviderClerk,
	}
}

// Resolve は外部認証IDから内部ユーザーIDを引く。未登録の場合は空文字を返す。
func (s *Service) Resolve(ctx context.Context, subject string) (string, error) {
	userID, err := s.identRepo.FindUserIDBySubject(ctx, s.provider, subject)
	if err != nil {
		return "", fmt.Errorf("failed to find identity: %w", err)
	}
	return userID, nil
}

// Sync はサインイン時のプロフィール同期を行う。
// 未登録の場合はusersとidentitiesを同時に作成し、登録済みの場合はプロフィールを更新する。
// 同じsubjectで同時に呼ばれても利用者は1人に収束する。
func (s *Service) Sync(ctx context.Context, p Profile) (*model.User, bool, error) {
	if err := validateProfile(&p); err != nil {
		return nil, false, err
	}

	u, err := s.syncExisting(ctx, p)
	if err != nil || u != nil {
		return u, false, err
	}

	now := time.Now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     p.Email,
		Name:      p.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.ImageURL != "" {
		img := p.ImageURL
		newUser.ImageURL = &img
	}
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       s.provider,
		ProviderUserID: p.Subject,
		CreatedAt:      now,
	}

	if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("failed to create user and identity: %w", err)
		}
		// 並行したSyncが先に作成した
		u, err := s.syncExisting(ctx, p)
		if err != nil {
			return nil, false, err
		}
		if u == nil {
			return nil, false, model.NewConflictError("user")
		}
		return u, false, nil
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("provider", s.provider),
	)
	return newUser, true, nil
}

func (s *Service) syncExisting(ctx context.Context, p Profile) (*model.User, error) {
	userID, err := s.Resolve(ctx, p.Subject)
	if err != nil || userID == "" {
		return nil, err
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}

	u.Email = p.Email
	u.Name = p.Name
	u.ImageURL = nil
	if p.ImageURL != "" {
		img := p.ImageURL
		u.ImageURL = &img
	}
	u.UpdatedAt = time.Now()
	if err := s.userRepo.UpdateProfile(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return u, nil
}

// Me は内部ユーザーIDのプロフィールを返す。
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

// Withdraw はユーザーの退会処理を実行する。
// identities、cart_lines、wishlist_entriesはCASCADE削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します", slog.String("user_id", userID))

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました", slog.String("user_id", userID))
	return nil
}

func validateProfile(p *Profile) error {
	p.Subject = strings.TrimSpace(p.Subject)
	p.Email = strings.TrimSpace(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	p.ImageURL = strings.TrimSpace(p.ImageURL)

	if p.Subject == "" {
		return model.NewInvalidRequestError("subject is required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return model.NewInvalidRequestError("email is invalid")
	}
	return nil
}
