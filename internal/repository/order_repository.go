package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	Update(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	ListPaidByShopPeriod(shopID uint, from, to time.Time) ([]models.Order, error)
	ListExpiredPending(before time.Time, limit int) ([]models.Order, error)
	CountPaidByBuyer(buyerUserID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// Update 更新订单
func (r *GormOrderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

// GetByID 根据ID获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 根据ID加锁获取订单（支付确认、退款前）
// SQLite 不支持 SELECT ... FOR UPDATE，写事务本身互斥，直接退化为普通查询。
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	query := r.db
	if dbDialectName(r.db) == dialectPostgres {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.
		Where("id = ?", id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List 分页查询订单
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.ShopID != 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.BuyerUserID != 0 {
		query = query.Where("buyer_user_id = ?", filter.BuyerUserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
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

	var orders []models.Order
	if err := query.Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListPaidByShopPeriod 查询店铺指定时间区间内已支付的订单（含已退款单，费用已发生）
func (r *GormOrderRepository) ListPaidByShopPeriod(shopID uint, from, to time.Time) ([]models.Order, error) {
	if shopID == 0 {
		return []models.Order{}, nil
	}
	var orders []models.Order
	err := r.db.Model(&models.Order{}).
		Where("shop_id = ?", shopID).
		Where("status IN ?", []string{constants.OrderStatusPaid, constants.OrderStatusRefunded}).
		Where("paid_at >= ? AND paid_at <= ?", from, to).
		Order("paid_at asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListExpiredPending 查询已过支付时限的待支付订单
func (r *GormOrderRepository) ListExpiredPending(before time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []models.Order
	err := r.db.Model(&models.Order{}).
		Where("status = ?", constants.OrderStatusPendingPayment).
		Where("expires_at IS NOT NULL AND expires_at <= ?", before).
		Order("id asc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// CountPaidByBuyer 统计买家的已支付订单数（首单判定）
func (r *GormOrderRepository) CountPaidByBuyer(buyerUserID uint) (int64, error) {
	if buyerUserID == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("buyer_user_id = ?", buyerUserID).
		Where("status IN ?", []string{constants.OrderStatusPaid, constants.OrderStatusRefunded}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
