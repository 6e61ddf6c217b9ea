// Package catalog 提供食物庫的除錯查詢與佔位圖。
package catalog

import (
	"errors"
	"net/http"

	"meal-recommender/internal/api/handlers"
	"meal-recommender/internal/core/food"
	"meal-recommender/internal/core/image"
	"meal-recommender/internal/infrastructure/storage"
	"meal-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FoodsResponse GET /debug/foods 回應
type FoodsResponse struct {
	Count int                  `json:"count"`
	Foods []storage.FoodRecord `json:"foods"`
}

// Handler 食物庫處理程序
type Handler struct {
	catalog food.Catalog
	debug   bool
}

// NewHandler 創建食物庫處理程序
func NewHandler(catalog food.Catalog, debug bool) *Handler {
	return &Handler{catalog: catalog, debug: debug}
}

// HandleListFoods 列出全部食物
func (h *Handler) HandleListFoods(c *gin.Context) {
	items, err := h.catalog.AllFoods(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, common.Wrap(common.ErrInternalError, err), h.debug)
		return
	}

	records := make([]storage.FoodRecord, len(items))
	for i, it := range items {
		records[i] = storage.NewFoodRecord(it)
	}
	c.JSON(http.StatusOK, FoodsResponse{Count: len(records), Foods: records})
}

// HandleImage 產生食物的 SVG 佔位圖，找不到食物時畫出不快取的「未找到」卡片
func (h *Handler) HandleImage(c *gin.Context) {
	title, subtitle := image.NotFoundTitle, ""
	found := false

	if id := handlers.ParseID(c.Param("id")); id != 0 {
		it, err := h.catalog.GetFood(c.Request.Context(), id)
		switch {
		case err == nil:
			title = it.Name
			subtitle = image.Subtitle(string(it.Category), string(it.Time))
			found = true
		case errors.Is(err, common.ErrNotFound):
		default:
			common.LogWarn("讀取食物失敗",
				zap.Int64("id", id),
				zap.Error(err),
			)
		}
	}

	if found {
		c.Header("Cache-Control", image.CacheControl)
	}
	c.Data(http.StatusOK, image.ContentType+"; charset=utf-8", []byte(image.Thumb(title, subtitle)))
}
