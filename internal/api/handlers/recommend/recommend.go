// Package recommend 處理推薦、套餐、推薦紀錄與使用者資料的 HTTP 請求。
package recommend

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"meal-recommender/internal/api/handlers"
	"meal-recommender/internal/core/food"
	coreRecommend "meal-recommender/internal/core/recommend"
	"meal-recommender/internal/infrastructure/config"
	"meal-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recommender 推薦服務
type Recommender interface {
	Recommend(ctx context.Context, userID int64, req food.RequestContext) (*coreRecommend.Recommendation, error)
	RecommendMeal(ctx context.Context, userID int64, req food.RequestContext) (*coreRecommend.MealResult, error)
	ResetHistory(ctx context.Context, userID int64) error
	RecentHistory(ctx context.Context, userID int64) ([]int64, error)
	ResetAllHistory(ctx context.Context) error
}

// Handler 推薦處理程序
type Handler struct {
	service  Recommender
	users    food.UserStore
	defaults config.RecommendConfig
	debug    bool
}

// NewHandler 創建推薦處理程序
func NewHandler(service Recommender, users food.UserStore, defaults config.RecommendConfig, debug bool) *Handler {
	return &Handler{
		service:  service,
		users:    users,
		defaults: defaults,
		debug:    debug,
	}
}

// parseRequest 讀取查詢參數：user_id、time 必填，city、max_calories 有預設值
func (h *Handler) parseRequest(c *gin.Context) (int64, food.RequestContext, error) {
	userID := handlers.ParseID(c.Query("user_id"))
	if userID == 0 {
		return 0, food.RequestContext{}, common.Wrapf(common.ErrInvalidArgument, "缺少用户ID参数")
	}

	rawTime := strings.TrimSpace(c.Query("time"))
	if rawTime == "" {
		return 0, food.RequestContext{}, common.Wrapf(common.ErrInvalidArgument, "缺少时间参数")
	}
	mealTime, ok := food.ParseMealTime(rawTime)
	if !ok {
		return 0, food.RequestContext{}, common.Wrapf(common.ErrInvalidArgument, "无效的时间参数：%s", rawTime)
	}

	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		city = h.defaults.DefaultCity
	}

	// 無法解析時使用預設值
	maxCalories := h.defaults.DefaultMaxCalories
	if raw := c.Query("max_calories"); raw != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			maxCalories = v
		}
	}

	return userID, food.RequestContext{
		Time:              mealTime,
		City:              city,
		MaxCalories:       maxCalories,
		ConditionOverride: c.Query("condition"),
	}, nil
}

// HandleRecommend 回傳符合條件的食物清單
func (h *Handler) HandleRecommend(c *gin.Context) {
	userID, req, err := h.parseRequest(c)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	rec, err := h.service.Recommend(c.Request.Context(), userID, req)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	common.LogInfo("食物推薦完成",
		zap.String("request_id", requestid.Get(c)),
		zap.Int64("user_id", userID),
		zap.Int("count", len(rec.Items)),
		zap.Bool("fallback_weather", rec.Meta.FallbackWeatherUsed),
	)

	c.JSON(http.StatusOK, RecommendResponse{
		Recommendations: toRecords(rec.Items),
		Message:         rec.Message,
	})
}

// HandleMeal 組出一份套餐與候選
func (h *Handler) HandleMeal(c *gin.Context) {
	userID, req, err := h.parseRequest(c)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	res, err := h.service.RecommendMeal(c.Request.Context(), userID, req)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	common.LogInfo("套餐推薦完成",
		zap.String("request_id", requestid.Get(c)),
		zap.Int64("user_id", userID),
		zap.Bool("empty", res.Meal == nil),
		zap.Bool("fallback_weather", res.Meta.FallbackWeatherUsed),
	)

	c.JSON(http.StatusOK, newMealResponse(res))
}

// HandleResetHistory 清除使用者的推薦紀錄
func (h *Handler) HandleResetHistory(c *gin.Context) {
	userID := handlers.ParseID(c.Param("user_id"))
	if userID == 0 {
		handlers.RespondError(c, common.Wrapf(common.ErrInvalidArgument, "缺少用户ID参数"), h.debug)
		return
	}

	if err := h.service.ResetHistory(c.Request.Context(), userID); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		UserID:  userID,
		Cleared: true,
		Message: "推荐记录已清除",
	})
}

// HandleResetAllHistory 清除所有使用者的推薦紀錄
func (h *Handler) HandleResetAllHistory(c *gin.Context) {
	if err := h.service.ResetAllHistory(c.Request.Context()); err != nil {
		handlers.RespondError(c, common.Wrap(common.ErrInternalError, err), h.debug)
		return
	}

	common.LogInfo("已清除所有推薦紀錄", zap.String("request_id", requestid.Get(c)))
	c.JSON(http.StatusOK, HistoryResponse{
		Cleared: true,
		Message: "所有推荐记录已清除",
	})
}

// HandleHistory 查詢使用者最近推薦過的食物，最新的在最後
func (h *Handler) HandleHistory(c *gin.Context) {
	userID := handlers.ParseID(c.Param("user_id"))
	if userID == 0 {
		handlers.RespondError(c, common.Wrapf(common.ErrInvalidArgument, "缺少用户ID参数"), h.debug)
		return
	}

	ids, err := h.service.RecentHistory(c.Request.Context(), userID)
	if err != nil {
		handlers.RespondError(c, common.Wrap(common.ErrInternalError, err), h.debug)
		return
	}
	if ids == nil {
		ids = []int64{}
	}

	c.JSON(http.StatusOK, HistoryResponse{
		UserID:  userID,
		FoodIDs: ids,
	})
}

// HandleSaveUser 新增或更新使用者的健康狀況與過敏食物
func (h *Handler) HandleSaveUser(c *gin.Context) {
	var req SaveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		handlers.RespondError(c, common.Wrap(common.ErrInvalidRequest, err), h.debug)
		return
	}

	user := &food.UserProfile{
		ID:              req.UserID,
		HealthCondition: strings.TrimSpace(req.HealthCondition),
		AllergicFoods:   common.JoinList(common.SplitList(req.AllergicFoods)),
	}
	if err := h.users.SaveUser(c.Request.Context(), user); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}

	c.JSON(http.StatusOK, SaveUserRequest{
		UserID:          user.ID,
		HealthCondition: user.HealthCondition,
		AllergicFoods:   user.AllergicFoods,
	})
}
