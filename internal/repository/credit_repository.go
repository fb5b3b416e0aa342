package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
)

// CreditRepository 信用额度流水数据访问接口
type CreditRepository interface {
	CreateEntry(entry *models.CreditEntry) error
	GetEntryByID(id uint) (*models.CreditEntry, error)
	GetEntryByReference(reference string) (*models.CreditEntry, error)
	ListEntries(filter CreditEntryListFilter) ([]models.CreditEntry, int64, error)
	SumAvailable(userID uint, now time.Time) (int64, error)
	SumBalance(userID uint, now time.Time) (CreditBalanceRow, error)
	ListExpiringGrants(from, to time.Time) ([]models.CreditEntry, error)
	WithTx(tx *gorm.DB) *GormCreditRepository
}

// GormCreditRepository GORM 信用额度仓储实现
type GormCreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository 创建信用额度仓储
func NewCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCreditRepository) WithTx(tx *gorm.DB) *GormCreditRepository {
	if tx == nil {
		return r
	}
	return &GormCreditRepository{db: tx}
}

// CreateEntry 写入流水（仅追加）
func (r *GormCreditRepository) CreateEntry(entry *models.CreditEntry) error {
	return r.db.Create(entry).Error
}

// GetEntryByID 按 ID 获取流水
func (r *GormCreditRepository) GetEntryByID(id uint) (*models.CreditEntry, error) {
	if id == 0 {
		return nil, nil
	}
	var entry models.CreditEntry
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetEntryByReference 按业务引用获取流水（幂等判断）
func (r *GormCreditRepository) GetEntryByReference(reference string) (*models.CreditEntry, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var entry models.CreditEntry
	if err := r.db.Where("reference = ?", reference).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListEntries 分页查询流水
func (r *GormCreditRepository) ListEntries(filter CreditEntryListFilter) ([]models.CreditEntry, int64, error) {
	query := r.db.Model(&models.CreditEntry{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}
	if filter.FunderShopID != 0 {
		query = query.Where("funder_shop_id = ?", filter.FunderShopID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var entries []models.CreditEntry
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SumAvailable 实时汇总可用余额：未过期的发放全部计入（恰好到期时刻仍可用），消费记录始终计入。
func (r *GormCreditRepository) SumAvailable(userID uint, now time.Time) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	var sum int64
	err := r.db.Model(&models.CreditEntry{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("user_id = ?", userID).
		Where("(amount_cents < 0 OR expires_at IS NULL OR expires_at >= ?)", now).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// CreditBalanceRow 余额聚合结果（均为分）
type CreditBalanceRow struct {
	AvailableCents int64
	GrantedCents   int64
	ExpiredCents   int64
}

// SumBalance 一次汇总可用余额、累计发放与已过期不可用金额
func (r *GormCreditRepository) SumBalance(userID uint, now time.Time) (CreditBalanceRow, error) {
	row := CreditBalanceRow{}
	if userID == 0 {
		return row, nil
	}
	err := r.db.Model(&models.CreditEntry{}).
		Select(
			"COALESCE(SUM(CASE WHEN amount_cents < 0 OR expires_at IS NULL OR expires_at >= ? THEN amount_cents ELSE 0 END), 0) AS available_cents, "+
				"COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0) AS granted_cents, "+
				"COALESCE(SUM(CASE WHEN amount_cents > 0 AND expires_at IS NOT NULL AND expires_at < ? THEN amount_cents ELSE 0 END), 0) AS expired_cents",
			now, now,
		).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return CreditBalanceRow{}, err
	}
	return row, nil
}

// ListExpiringGrants 查询指定时间窗内即将过期的发放记录
func (r *GormCreditRepository) ListExpiringGrants(from, to time.Time) ([]models.CreditEntry, error) {
	var entries []models.CreditEntry
	err := r.db.Model(&models.CreditEntry{}).
		Where("amount_cents > 0").
		Where("expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?", from, to).
		Order("expires_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
