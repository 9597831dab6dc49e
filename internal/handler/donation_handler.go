package handler

import (
	"net/http"
	"strconv"

	"github.com/Kubistream/kubi-main-app-sub000/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DonationHandler 捐赠记录查询处理器
type DonationHandler struct {
	donationLogic *logic.DonationLogic
}

// NewDonationHandler 创建捐赠记录查询处理器
func NewDonationHandler(db *gorm.DB) *DonationHandler {
	return &DonationHandler{
		donationLogic: logic.NewDonationLogic(db),
	}
}

// GetRecipientDonations 获取主播的捐赠记录
func (h *DonationHandler) GetRecipientDonations(c *gin.Context) {
	recipientId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient id"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	donations, total, err := h.donationLogic.GetRecipientDonations(recipientId, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": donations,
		"pagination": gin.H{
			"page":       page,
			"page_size":  pageSize,
			"total":      total,
			"total_page": (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}
