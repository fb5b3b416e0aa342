package repository

import (
	"errors"

	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
)

// PayoutStatementRepository 月度结算单数据访问接口
type PayoutStatementRepository interface {
	Create(statement *models.PayoutStatement) error
	Update(statement *models.PayoutStatement) error
	GetByPeriod(shopID uint, year, month int) (*models.PayoutStatement, error)
	List(filter StatementListFilter) ([]models.PayoutStatement, int64, error)
	WithTx(tx *gorm.DB) *GormPayoutStatementRepository
}

// GormPayoutStatementRepository GORM 实现
type GormPayoutStatementRepository struct {
	db *gorm.DB
}

// NewPayoutStatementRepository 创建结算单仓库
func NewPayoutStatementRepository(db *gorm.DB) *GormPayoutStatementRepository {
	return &GormPayoutStatementRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutStatementRepository) WithTx(tx *gorm.DB) *GormPayoutStatementRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutStatementRepository{db: tx}
}

// Create 创建结算单
func (r *GormPayoutStatementRepository) Create(statement *models.PayoutStatement) error {
	return r.db.Create(statement).Error
}

// Update 更新结算单
func (r *GormPayoutStatementRepository) Update(statement *models.PayoutStatement) error {
	return r.db.Save(statement).Error
}

// GetByPeriod 按店铺与账期获取结算单
func (r *GormPayoutStatementRepository) GetByPeriod(shopID uint, year, month int) (*models.PayoutStatement, error) {
	if shopID == 0 {
		return nil, nil
	}
	var statement models.PayoutStatement
	if err := r.db.Where("shop_id = ? AND year = ? AND month = ?", shopID, year, month).
		First(&statement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &statement, nil
}

// List 分页查询结算单
func (r *GormPayoutStatementRepository) List(filter StatementListFilter) ([]models.PayoutStatement, int64, error) {
	query := r.db.Model(&models.PayoutStatement{})
	if filter.ShopID != 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.Year != 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Month != 0 {
		query = query.Where("month = ?", filter.Month)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var statements []models.PayoutStatement
	if err := query.Order("year desc, month desc, id desc").Find(&statements).Error; err != nil {
		return nil, 0, err
	}
	return statements, total, nil
}
