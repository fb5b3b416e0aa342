package repository

import "time"

// ShopListFilter 查询店铺列表的过滤条件
type ShopListFilter struct {
	Page        int
	PageSize    int
	OwnerUserID uint
	Status      string
	Search      string
}

// ListingListFilter 查询商品列表的过滤条件
type ListingListFilter struct {
	Page       int
	PageSize   int
	ShopID     uint
	Status     string
	Search     string
	OnlyActive bool
}

// DealListFilter 查询优惠列表的过滤条件
type DealListFilter struct {
	Page      int
	PageSize  int
	ShopID    uint
	ListingID uint
	Code      string
	IsActive  *bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	ShopID      uint
	BuyerUserID uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CreditEntryListFilter 查询信用额度流水的过滤条件
type CreditEntryListFilter struct {
	Page         int
	PageSize     int
	UserID       uint
	Reason       string
	FunderShopID uint
	OrderID      uint
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// ListingFeeListFilter 查询上架费记录的过滤条件
type ListingFeeListFilter struct {
	Page     int
	PageSize int
	ShopID   uint
	Year     int
	Month    int
}

// StatementListFilter 查询结算单的过滤条件
type StatementListFilter struct {
	Page     int
	PageSize int
	ShopID   uint
	Year     int
	Month    int
	Status   string
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserLoginLogListFilter 查询用户登录日志列表的过滤条件
type UserLoginLogListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Email       string
	Status      string
	FailReason  string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuthzAuditLogListFilter 查询权限审计日志列表的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	Object          string
	Method          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
