package models

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// allTables 按依赖顺序排列
func allTables() []interface{} {
	return []interface{}{
		&User{},
		&Restaurant{},
		&RestaurantStaff{},
		&Visit{},
		&PointsAccount{},
		&PointsLedgerEntry{},
		&ReferralCode{},
		&Referral{},
		&ReferralReward{},
		&Coupon{},
		&UserCoupon{},
		&CouponRedemption{},
	}
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202610190001_initial_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(allTables()...)
			},
			Rollback: func(tx *gorm.DB) error {
				tables := allTables()
				for i := len(tables) - 1; i >= 0; i-- {
					if err := tx.Migrator().DropTable(tables[i]); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID: "202610200001_reviews",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Review{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&Review{})
			},
		},
	}
}

// Migrate 执行版本化迁移
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	return m.Migrate()
}
