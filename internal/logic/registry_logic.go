package logic

import (
	"fmt"
	"strings"

	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"gorm.io/gorm"
)

// RegistryLogic 主播与代币注册表查询
type RegistryLogic struct {
	db *gorm.DB
}

// NewRegistryLogic 创建注册表查询逻辑
func NewRegistryLogic(db *gorm.DB) *RegistryLogic {
	return &RegistryLogic{db: db}
}

// GetRecipientByWallet 按钱包地址查询主播
func (r *RegistryLogic) GetRecipientByWallet(address string) (*model.RecipientModel, error) {
	var recipient model.RecipientModel
	err := r.db.Where("lower(wallet_address) = ?", strings.ToLower(address)).First(&recipient).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("recipient not registered for wallet %s", address)
		}
		return nil, err
	}
	return &recipient, nil
}

// GetRecipientById 按ID查询主播
func (r *RegistryLogic) GetRecipientById(id int64) (*model.RecipientModel, error) {
	var recipient model.RecipientModel
	if err := r.db.First(&recipient, id).Error; err != nil {
		return nil, err
	}
	return &recipient, nil
}

// GetTokenByAddress 按(链ID, 合约地址)查询代币
func (r *RegistryLogic) GetTokenByAddress(chainId int64, address string) (*model.TokenModel, error) {
	var token model.TokenModel
	err := r.db.Where("chain_id = ? AND lower(address) = ?", chainId, strings.ToLower(address)).First(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("token not registered for chain %d address %s", chainId, address)
		}
		return nil, err
	}
	return &token, nil
}

// GetTokenById 按ID查询代币
func (r *RegistryLogic) GetTokenById(id int64) (*model.TokenModel, error) {
	var token model.TokenModel
	if err := r.db.First(&token, id).Error; err != nil {
		return nil, err
	}
	return &token, nil
}
