package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresIdentityRepo は外部認証IDから利用者を引くリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindUserIDBySubject は認証プロバイダのsubjectに紐づく利用者IDを返す。
// 未登録の場合と、紐付け先の利用者が既に存在しない場合は空文字を返す。
func (r *PostgresIdentityRepo) FindUserIDBySubject(ctx context.Context, provider, subject string) (string, error) {
	if subject == "" {
		return "", nil
	}

	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT u.id
		 FROM identities i
		 JOIN users u ON u.id = i.user_id
		 WHERE i.provider = $1 AND i.provider_user_id = $2`,
		provider, subject,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("利用者IDの解決に失敗しました: %w", err)
	}
	return userID, nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
