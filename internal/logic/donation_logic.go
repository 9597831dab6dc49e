package logic

import (
	"errors"
	"fmt"

	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBridgeOriginNotFound 目标链事件先于来源链记录到达
var ErrBridgeOriginNotFound = errors.New("bridge origin donation not found")

// DonationLogic 捐赠记录业务逻辑
type DonationLogic struct {
	db          *gorm.DB
	notifyLogic *NotificationLogic
}

// NewDonationLogic 创建捐赠记录业务逻辑
func NewDonationLogic(db *gorm.DB) *DonationLogic {
	return &DonationLogic{
		db:          db,
		notifyLogic: NewNotificationLogic(db),
	}
}

// CreateConfirmed 落库一条直接捐赠并入队通知，按(tx_hash, log_index)去重。
// 首次插入返回true并创建通知；重放只刷新状态，不产生新通知。
func (d *DonationLogic) CreateConfirmed(donation *model.DonationModel) (bool, error) {
	if err := d.validateDonation(donation); err != nil {
		return false, err
	}
	donation.Status = model.DonationStatusConfirmed

	created := false
	err := d.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := d.upsertTx(tx, donation)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		created = true

		item := &model.NotificationQueueModel{
			RecipientId: donation.RecipientId,
			TxHash:      donation.TxHash,
			TokenId:     donation.TokenInId,
			Amount:      donation.AmountIn,
			EnqueuedAt:  donation.BlockTime,
		}
		return d.notifyLogic.EnqueueTx(tx, item)
	})
	return created, err
}

// CreateBridgeSend 落库一条跨链发起记录，状态pending，此时不入队通知
func (d *DonationLogic) CreateBridgeSend(donation *model.DonationModel) (bool, error) {
	if err := d.validateDonation(donation); err != nil {
		return false, err
	}
	if donation.BridgeMessageId == "" {
		return false, errors.New("bridge message id is required")
	}
	donation.Status = model.DonationStatusPending
	donation.IsBridged = true

	created := false
	err := d.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := d.upsertTx(tx, donation)
		if err != nil {
			return err
		}
		created = inserted
		return nil
	})
	return created, err
}

// ConfirmBridgeReceive 处理目标链到账事件：创建目标链记录并回指来源记录，
// 将来源记录置为confirmed，然后以到账时间入队通知。通知只在资金实际可用后发出。
func (d *DonationLogic) ConfirmBridgeReceive(dest *model.DonationModel) (bool, error) {
	if dest.BridgeMessageId == "" {
		return false, errors.New("bridge message id is required")
	}

	created := false
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var origin model.DonationModel
		err := tx.Where("bridge_message_id = ? AND is_bridged = ? AND parent_donation_id = 0",
			dest.BridgeMessageId, true).First(&origin).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrBridgeOriginNotFound
			}
			return err
		}

		// 到账日志不携带完整捐赠信息，缺失字段从来源记录补齐
		dest.RecipientId = origin.RecipientId
		dest.ParentDonationId = origin.Id
		dest.OriginChainId = origin.ChainId
		dest.Status = model.DonationStatusConfirmed
		if dest.DonorAddress == "" {
			dest.DonorAddress = origin.DonorAddress
		}
		if dest.TokenInId == 0 {
			dest.TokenInId = origin.TokenInId
		}
		if dest.TokenOutId == 0 {
			dest.TokenOutId = origin.TokenOutId
		}
		if dest.AmountIn == "" {
			dest.AmountIn = origin.AmountIn
		}

		inserted, err := d.upsertTx(tx, dest)
		if err != nil {
			return err
		}
		if !inserted {
			// 目标链事件重放，来源记录已确认过
			return nil
		}
		created = true

		if err := tx.Model(&model.DonationModel{}).
			Where("id = ?", origin.Id).
			Update("status", model.DonationStatusConfirmed).Error; err != nil {
			return err
		}

		item := &model.NotificationQueueModel{
			RecipientId: origin.RecipientId,
			TxHash:      origin.TxHash,
			TokenId:     origin.TokenInId,
			Amount:      origin.AmountIn,
			EnqueuedAt:  dest.BlockTime, // 以到账事件时间为准
		}
		return d.notifyLogic.EnqueueTx(tx, item)
	})
	return created, err
}

// upsertTx 按(tx_hash, log_index)插入，冲突时只刷新状态。返回是否为首次插入。
func (d *DonationLogic) upsertTx(tx *gorm.DB, donation *model.DonationModel) (bool, error) {
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
		DoNothing: true,
	}).Create(donation)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// 日志重放：只刷新状态
	err := tx.Model(&model.DonationModel{}).
		Where("tx_hash = ? AND log_index = ?", donation.TxHash, donation.LogIndex).
		Update("status", donation.Status).Error
	return false, err
}

// GetByTxHash 按交易哈希查询捐赠记录
func (d *DonationLogic) GetByTxHash(txHash string) (*model.DonationModel, error) {
	var donation model.DonationModel
	if err := d.db.Where("tx_hash = ?", txHash).First(&donation).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

// GetRecipientDonations 分页查询主播的捐赠记录
func (d *DonationLogic) GetRecipientDonations(recipientId int64, page, pageSize int) ([]model.DonationModel, int64, error) {
	var donations []model.DonationModel
	var total int64

	query := d.db.Model(&model.DonationModel{}).Where("recipient_id = ?", recipientId)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&donations).Error; err != nil {
		return nil, 0, err
	}

	return donations, total, nil
}

// validateDonation 校验捐赠数据
func (d *DonationLogic) validateDonation(donation *model.DonationModel) error {
	if donation.RecipientId == 0 {
		return errors.New("recipient id is required")
	}
	if donation.TxHash == "" {
		return errors.New("tx hash is required")
	}
	if donation.AmountIn == "" {
		return errors.New("amount is required")
	}
	if donation.DonorAddress == "" {
		return fmt.Errorf("donor address is required for tx %s", donation.TxHash)
	}
	return nil
}
