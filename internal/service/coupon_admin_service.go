package service

import (
	"strings"
	"time"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/repository"

	"gorm.io/gorm"
)

// CouponAdminService 优惠券模板与餐厅员工管理
type CouponAdminService struct {
	couponRepo     repository.CouponRepository
	restaurantRepo repository.RestaurantRepository
	userRepo       repository.UserRepository
}

// NewCouponAdminService 创建优惠券管理服务
func NewCouponAdminService(couponRepo repository.CouponRepository, restaurantRepo repository.RestaurantRepository, userRepo repository.UserRepository) *CouponAdminService {
	return &CouponAdminService{
		couponRepo:     couponRepo,
		restaurantRepo: restaurantRepo,
		userRepo:       userRepo,
	}
}

// CouponInput 创建/更新优惠券参数
type CouponInput struct {
	Source                string
	RestaurantID          *uint
	Type                  string
	Title                 string
	Description           string
	RewardItemName        string
	DiscountPercent       int
	DiscountAmount        models.Money
	TotalLimit            *int
	PerUserLimit          int
	StartsAt              *time.Time
	ExpiresAt             *time.Time
	Status                string // 仅创建时生效，DRAFT 或 ACTIVE
	ConditionKind         string
	ConditionValue        int64
	ConditionRestaurantID *uint
}

// Create 创建优惠券模板
func (s *CouponAdminService) Create(input CouponInput) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	if err := s.apply(coupon, input); err != nil {
		return nil, err
	}
	status := constants.CouponStatus(strings.ToUpper(strings.TrimSpace(input.Status)))
	switch status {
	case "":
		status = constants.CouponStatusDraft
	case constants.CouponStatusDraft, constants.CouponStatusActive:
	default:
		return nil, ErrCouponStatusInvalid
	}
	coupon.Status = status
	if err := s.couponRepo.Create(coupon); err != nil {
		return nil, err
	}
	logger.Infow("coupon_created",
		"coupon_id", coupon.ID,
		"source", coupon.Source,
		"type", coupon.Type,
		"status", coupon.Status,
	)
	return coupon, nil
}

// Update 更新优惠券模板，状态通过 UpdateStatus 变更
func (s *CouponAdminService) Update(id uint, input CouponInput) (*models.Coupon, error) {
	var coupon *models.Coupon
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.couponRepo.WithTx(tx)
		existing, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrCouponNotFound
		}
		if input.TotalLimit != nil && *input.TotalLimit < existing.ClaimedCount {
			return ErrCouponLimitBelowClaimed
		}
		if err := s.applyTx(tx, existing, input); err != nil {
			return err
		}
		if err := repo.Update(existing); err != nil {
			return err
		}
		coupon = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

// UpdateStatus 按状态表变更优惠券状态
func (s *CouponAdminService) UpdateStatus(id uint, rawStatus string) (*models.Coupon, error) {
	target := constants.CouponStatus(strings.ToUpper(strings.TrimSpace(rawStatus)))
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if err := validateCouponTransition(coupon.Status, target); err != nil {
		return nil, err
	}
	updated, err := s.couponRepo.UpdateStatus(id, coupon.Status, target)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrCouponStatusInvalid
	}
	logger.Infow("coupon_status_changed",
		"coupon_id", id,
		"from", coupon.Status,
		"to", target,
	)
	coupon.Status = target
	return coupon, nil
}

// Delete 软删除优惠券，已领取记录保留
func (s *CouponAdminService) Delete(id uint) error {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.couponRepo.Delete(id)
}

// Get 获取优惠券模板
func (s *CouponAdminService) Get(id uint) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// List 优惠券模板列表
func (s *CouponAdminService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	filter.ClaimableAt = nil
	return s.couponRepo.List(filter)
}

// AssignStaff 绑定餐厅员工，重复绑定返回已有记录
func (s *CouponAdminService) AssignStaff(restaurantID, userID uint, role string) (*models.RestaurantStaff, error) {
	restaurant, err := s.restaurantRepo.GetByID(restaurantID)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, ErrRestaurantNotFound
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role != constants.StaffRoleManager {
		role = constants.StaffRoleCashier
	}
	staff := &models.RestaurantStaff{RestaurantID: restaurantID, UserID: userID, Role: role}
	if err := s.restaurantRepo.AddStaff(staff); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		rows, listErr := s.restaurantRepo.ListStaff(restaurantID)
		if listErr != nil {
			return nil, listErr
		}
		for i := range rows {
			if rows[i].UserID == userID {
				return &rows[i], nil
			}
		}
		return nil, err
	}
	return staff, nil
}

// RemoveStaff 解除餐厅员工
func (s *CouponAdminService) RemoveStaff(restaurantID, userID uint) error {
	removed, err := s.restaurantRepo.RemoveStaff(restaurantID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// ListStaff 餐厅员工列表
func (s *CouponAdminService) ListStaff(restaurantID uint) ([]models.RestaurantStaff, error) {
	return s.restaurantRepo.ListStaff(restaurantID)
}

func (s *CouponAdminService) apply(coupon *models.Coupon, input CouponInput) error {
	return s.applyTx(nil, coupon, input)
}

// applyTx 校验并写入字段，任何写库操作之前完成
func (s *CouponAdminService) applyTx(tx *gorm.DB, coupon *models.Coupon, input CouponInput) error {
	normalized, err := normalizeCouponInput(input)
	if err != nil {
		return err
	}
	if normalized.Source == constants.CouponSourceRestaurant {
		restaurant, err := s.restaurantRepo.WithTx(tx).GetByID(*normalized.RestaurantID)
		if err != nil {
			return err
		}
		if restaurant == nil {
			return ErrRestaurantNotFound
		}
	}

	coupon.Source = normalized.Source
	coupon.RestaurantID = normalized.RestaurantID
	coupon.Type = normalized.Type
	coupon.Title = normalized.Title
	coupon.Description = normalized.Description
	coupon.RewardItemName = normalized.RewardItemName
	coupon.DiscountPercent = normalized.DiscountPercent
	coupon.DiscountAmount = normalized.DiscountAmount
	coupon.TotalLimit = normalized.TotalLimit
	coupon.PerUserLimit = normalized.PerUserLimit
	coupon.StartsAt = normalized.StartsAt
	coupon.ExpiresAt = normalized.ExpiresAt
	coupon.ConditionKind = normalized.ConditionKind
	coupon.ConditionValue = normalized.ConditionValue
	coupon.ConditionRestaurantID = normalized.ConditionRestaurantID
	return nil
}

// normalizeCouponInput 校验优惠券参数：总量上限与时间窗口至少设置一项，同时设置时两者都需满足
func normalizeCouponInput(input CouponInput) (CouponInput, error) {
	input.Source = strings.ToLower(strings.TrimSpace(input.Source))
	input.Type = strings.ToUpper(strings.TrimSpace(input.Type))
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.RewardItemName = strings.TrimSpace(input.RewardItemName)
	input.ConditionKind = strings.ToUpper(strings.TrimSpace(input.ConditionKind))

	switch input.Source {
	case constants.CouponSourcePlatform:
		input.RestaurantID = nil
	case constants.CouponSourceRestaurant:
		if input.RestaurantID == nil || *input.RestaurantID == 0 {
			return input, ErrCouponScopeInvalid
		}
	default:
		return input, ErrCouponScopeInvalid
	}

	if input.Title == "" {
		return input, ErrCouponRewardInvalid
	}
	switch input.Type {
	case constants.CouponTypeRewardItem:
		if input.RewardItemName == "" {
			return input, ErrCouponRewardInvalid
		}
		input.DiscountPercent = 0
		input.DiscountAmount = models.Money{}
	case constants.CouponTypePercentDiscount:
		if input.DiscountPercent < 1 || input.DiscountPercent > 100 {
			return input, ErrCouponRewardInvalid
		}
		input.DiscountAmount = models.Money{}
	case constants.CouponTypeFixedDiscount:
		if !input.DiscountAmount.Decimal.IsPositive() {
			return input, ErrCouponRewardInvalid
		}
		input.DiscountAmount = models.NewMoney(input.DiscountAmount.Decimal.Round(2))
		input.DiscountPercent = 0
	default:
		return input, ErrCouponTypeInvalid
	}

	hasWindow := input.StartsAt != nil || input.ExpiresAt != nil
	if input.TotalLimit == nil && !hasWindow {
		return input, ErrCouponValidityRequired
	}
	if input.TotalLimit != nil && *input.TotalLimit < 1 {
		return input, ErrCouponValidityRequired
	}
	if input.StartsAt != nil && input.ExpiresAt != nil && !input.StartsAt.Before(*input.ExpiresAt) {
		return input, ErrCouponWindowInvalid
	}

	if input.PerUserLimit == 0 {
		input.PerUserLimit = 1
	}
	if input.PerUserLimit < 1 {
		return input, ErrCouponRewardInvalid
	}

	if input.ConditionKind == "" {
		input.ConditionValue = 0
		input.ConditionRestaurantID = nil
		return input, nil
	}
	if !IsKnownConditionKind(input.ConditionKind) || input.ConditionValue <= 0 {
		return input, ErrCouponConditionInvalid
	}
	if input.ConditionKind == constants.CouponConditionVisitsSameRestaurantAtLeast {
		if input.ConditionRestaurantID == nil || *input.ConditionRestaurantID == 0 {
			if input.RestaurantID == nil {
				return input, ErrCouponConditionInvalid
			}
			rid := *input.RestaurantID
			input.ConditionRestaurantID = &rid
		}
	} else {
		input.ConditionRestaurantID = nil
	}
	return input, nil
}
