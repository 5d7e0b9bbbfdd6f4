package api

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUserIDMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

var expenseColumns = []string{"id", "user_id", "title", "amount", "category", "date", "created_at", "updated_at", "deleted_at"}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// threeExpenseRows Food 100 / Food 50 / Travel 25
func threeExpenseRows() *sqlmock.Rows {
	ts := time.Now()
	return sqlmock.NewRows(expenseColumns).
		AddRow(1, 1, "Groceries", "100", "Food", day(2024, 1, 1), ts, ts, nil).
		AddRow(2, 1, "Dinner", "50", "Food", day(2024, 2, 1), ts, ts, nil).
		AddRow(3, 1, "Bus ticket", "25", "Travel", day(2024, 3, 1), ts, ts, nil)
}

func oneExpenseRow(id, owner uint) *sqlmock.Rows {
	ts := time.Now()
	return sqlmock.NewRows(expenseColumns).
		AddRow(id, owner, "Lunch", "12.5", "Food", day(2024, 1, 15), ts, ts, nil)
}

func newExpenseRouter(userID uint) *gin.Engine {
	h := NewExpenseHandler()
	router := gin.New()
	router.Use(setUserIDMiddleware(userID))
	router.POST("/expenses", h.Create)
	router.GET("/expenses", h.List)
	router.GET("/expenses/:id", h.Get)
	router.PUT("/expenses/:id", h.Update)
	router.DELETE("/expenses/:id", h.Delete)
	router.GET("/categories", h.GetCategories)
	return router
}

func TestExpenseHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := doJSON(newExpenseRouter(1), "POST", "/expenses",
		`{"title":"Lunch","amount":99.99,"category":"Food","date":"2024-01-15"}`)

	assert.Equal(t, 200, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "expense added", resp["message"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Lunch", data["title"])
	assert.Equal(t, "99.99", data["amount"])
	assert.Equal(t, "Food", data["category"])
	assert.Equal(t, float64(1), data["user_id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Create_DefaultsDateToToday(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	fixed := time.Date(2024, 6, 30, 18, 45, 0, 0, time.Local)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := doJSON(newExpenseRouter(1), "POST", "/expenses", `{"title":"Taxi","amount":"40","category":"Travel"}`)

	require.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	parsed, err := time.Parse(time.RFC3339, data["date"].(string))
	require.NoError(t, err)
	assert.Equal(t, "2024-06-30", parsed.In(time.Local).Format(DateLayout))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Create_Invalid(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"title":"Lunch","category":"Food"}`},
		{"short title", `{"title":"L","amount":10,"category":"Food"}`},
		{"bad title chars", `{"title":"Lunch<script>","amount":10,"category":"Food"}`},
		{"amount too small", `{"title":"Lunch","amount":0.5,"category":"Food"}`},
		{"amount too large", `{"title":"Lunch","amount":1000001,"category":"Food"}`},
		{"unknown category", `{"title":"Lunch","amount":10,"category":"Crypto"}`},
		{"future date", `{"title":"Lunch","amount":10,"category":"Food","date":"2999-01-01"}`},
		{"bad date", `{"title":"Lunch","amount":10,"category":"Food","date":"15/01/2024"}`},
	}

	router := newExpenseRouter(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, "POST", "/expenses", tt.body)
			assert.Equal(t, 400, w.Code)
		})
	}
	// 校验失败不触达数据库
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_List_Search(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(1).
		WillReturnRows(threeExpenseRows())

	w := doJSON(newExpenseRouter(1), "GET", "/expenses?search=trav", "")

	require.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	records := data["records"].([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, "Bus ticket", records[0].(map[string]interface{})["title"])

	stats := data["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["count"])
	assert.Equal(t, "25", stats["total"])
	assert.Equal(t, "25", stats["average"])
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(1), data["total_pages"])
	assert.Equal(t, []interface{}{"Food", "Travel"}, data["categories"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_List_SortAndCategory(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").WillReturnRows(threeExpenseRows())

	w := doJSON(newExpenseRouter(1), "GET", "/expenses?category=Food&sort=amount_asc&page=1", "")

	require.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	records := data["records"].([]interface{})
	require.Len(t, records, 2)
	assert.Equal(t, "Dinner", records[0].(map[string]interface{})["title"])
	assert.Equal(t, "Groceries", records[1].(map[string]interface{})["title"])
	assert.Equal(t, "150", data["stats"].(map[string]interface{})["total"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_List_BadRange(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	w := doJSON(newExpenseRouter(1), "GET", "/expenses?start_time=2024-05-01&end_time=2024-01-01", "")
	assert.Equal(t, 400, w.Code)

	w = doJSON(newExpenseRouter(1), "GET", "/expenses?start_time=yesterday", "")
	assert.Equal(t, 400, w.Code)
}

func TestExpenseHandler_Get_OtherOwnerIsNotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").WillReturnRows(oneExpenseRow(9, 2))

	w := doJSON(newExpenseRouter(1), "GET", "/expenses/9", "")
	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Update(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").WillReturnRows(oneExpenseRow(9, 1))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expenses`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(newExpenseRouter(1), "PUT", "/expenses/9", `{"title":"Team lunch","amount":30}`)

	require.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Team lunch", data["title"])
	assert.Equal(t, "30", data["amount"])
	// 未传入的字段保持不变
	assert.Equal(t, "Food", data["category"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Update_Ownership(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 不存在
	mock.ExpectQuery("SELECT .* FROM `expenses`").WillReturnRows(sqlmock.NewRows(expenseColumns))
	w := doJSON(newExpenseRouter(1), "PUT", "/expenses/9", `{"title":"New title"}`)
	assert.Equal(t, 404, w.Code)

	// 其他用户的记录
	mock.ExpectQuery("SELECT .* FROM `expenses`").WillReturnRows(oneExpenseRow(9, 2))
	w = doJSON(newExpenseRouter(1), "PUT", "/expenses/9", `{"title":"New title"}`)
	assert.Equal(t, 401, w.Code)
	assert.Equal(t, "not authorized", decodeResponse(t, w)["message"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Update_Revalidates(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").WillReturnRows(oneExpenseRow(9, 1))

	w := doJSON(newExpenseRouter(1), "PUT", "/expenses/9", `{"amount":0}`)
	assert.Equal(t, 400, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Delete(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").WillReturnRows(oneExpenseRow(9, 1))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expenses` SET `deleted_at`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(newExpenseRouter(1), "DELETE", "/expenses/9", "")
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "expense deleted", decodeResponse(t, w)["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Delete_OtherOwner(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `expenses`").WillReturnRows(oneExpenseRow(9, 2))

	w := doJSON(newExpenseRouter(1), "DELETE", "/expenses/9", "")
	assert.Equal(t, 401, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_InvalidID(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	w := doJSON(newExpenseRouter(1), "GET", "/expenses/abc", "")
	assert.Equal(t, 400, w.Code)
}

func TestExpenseHandler_GetCategories(t *testing.T) {
	setupTestConfig(t)

	w := doJSON(newExpenseRouter(1), "GET", "/categories", "")
	require.Equal(t, 200, w.Code)
	data := decodeResponse(t, w)["data"].([]interface{})
	assert.Len(t, data, 9)
	assert.Equal(t, "Food", data[0])
}
