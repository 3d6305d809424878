package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/brevity_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertByEmail 首次登录时创建用户，之后每次登录只刷新昵称和头像
func (r *UserRepository) UpsertByEmail(user *model.User) (*model.User, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "avatar_url", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.GetByEmail(user.Email)
}

// ResetUsage 月度重置：用量清零并写入新的重置时间。
// 只有 next_reset_date 仍是 prevResetAt 时才生效，返回是否实际重置
func (r *UserRepository) ResetUsage(id int64, prevResetAt, nextResetAt time.Time) (bool, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND next_reset_date = ?", id, prevResetAt).
		Updates(map[string]interface{}{
			"current_usage":   0,
			"next_reset_date": nextResetAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementUsage 原子地给本月用量加一；limit 不为 Unlimited 时只在未达上限时生效。
// 返回是否实际计数。
func (r *UserRepository) IncrementUsage(id int64, limit int) (bool, error) {
	query := r.db.Model(&model.User{}).Where("id = ?", id)
	if limit != model.Unlimited {
		query = query.Where("current_usage < ?", limit)
	}
	result := query.Update("current_usage", gorm.Expr("current_usage + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetBlogIDIfEmpty 用户尚未保存博客 ID 时记录本次使用的博客
func (r *UserRepository) SetBlogIDIfEmpty(id int64, blogID string) error {
	return r.db.Model(&model.User{}).
		Where("id = ? AND (blog_id IS NULL OR blog_id = '')", id).
		Update("blog_id", blogID).Error
}

// SetAPIKeyIfEmpty 用户尚未保存生成接口 key 时记录（调用方负责加密）
func (r *UserRepository) SetAPIKeyIfEmpty(id int64, encryptedKey string) error {
	return r.db.Model(&model.User{}).
		Where("id = ? AND (generation_api_key IS NULL OR generation_api_key = '')", id).
		Update("generation_api_key", encryptedKey).Error
}
