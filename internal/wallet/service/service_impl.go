package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/wallet/domain"
	"github.com/smallbiznis/vendora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	defaultCurrency string
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("wallet.service"),
		defaultCurrency: strings.ToUpper(strings.TrimSpace(p.Config.DefaultCurrency)),
	}
}

func (s *Service) Ensure(ctx context.Context, userID snowflake.ID, currencyCode string, main bool) (*domain.Wallet, error) {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if currencyCode == "" {
		return nil, domain.ErrInvalidCurrency
	}

	wallet := domain.Wallet{
		ID:           domain.DeriveID(userID, currencyCode),
		UserID:       userID,
		CurrencyCode: currencyCode,
		Main:         main,
	}

	err := s.db.WithContext(ctx).Create(&wallet).Error
	if err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// Already materialized by an earlier run; read it back.
		return s.Get(ctx, userID, currencyCode)
	}
	return &wallet, nil
}

func (s *Service) Credit(ctx context.Context, userID snowflake.ID, currencyCode string, amount float64) error {
	return s.add(ctx, userID, currencyCode, "value", amount)
}

func (s *Service) CreditShare(ctx context.Context, userID snowflake.ID, currencyCode string, amount float64) error {
	return s.add(ctx, userID, currencyCode, "share_value", amount)
}

func (s *Service) Debit(ctx context.Context, userID snowflake.ID, currencyCode string, amount float64) error {
	return s.subtract(ctx, userID, currencyCode, "value", amount)
}

func (s *Service) DebitShare(ctx context.Context, userID snowflake.ID, currencyCode string, amount float64) error {
	return s.subtract(ctx, userID, currencyCode, "share_value", amount)
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID, currencyCode string) (*domain.Wallet, error) {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	var wallet domain.Wallet
	err := s.db.WithContext(ctx).
		First(&wallet, "id = ?", domain.DeriveID(userID, currencyCode)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (s *Service) subtract(ctx context.Context, userID snowflake.ID, currencyCode string, column string, amount float64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	id := domain.DeriveID(userID, strings.ToUpper(strings.TrimSpace(currencyCode)))
	result := s.db.WithContext(ctx).
		Model(&domain.Wallet{}).
		Where("id = ?", id).
		Where(column+" >= ?", amount).
		Updates(map[string]any{
			column:       gorm.Expr(column+" - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the wallet is missing or the balance cannot cover it.
		if _, err := s.Get(ctx, userID, currencyCode); err != nil {
			return err
		}
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (s *Service) add(ctx context.Context, userID snowflake.ID, currencyCode string, column string, amount float64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	// Main follows the platform currency, not which balance column is
	// touched first.
	main := strings.ToUpper(strings.TrimSpace(currencyCode)) == s.defaultCurrency
	wallet, err := s.Ensure(ctx, userID, currencyCode, main)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Model(&domain.Wallet{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]any{
			column:       gorm.Expr(column+" + ?", amount),
			"updated_at": time.Now().UTC(),
		}).Error
}
