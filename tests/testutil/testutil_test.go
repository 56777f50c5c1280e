package testutil

import (
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	assert.NotNil(t, mockDB.SqlDB)
}

func TestMockDB_ExpectationsWereMet(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	// No expectations set, should pass
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestContext(t *testing.T) {
	tc := NewTestContext(t)

	assert.NotNil(t, tc.Context)
	assert.NotNil(t, tc.Recorder)
	assert.NotNil(t, tc.Engine)
	assert.Equal(t, http.MethodGet, tc.Context.Request.Method)
}

func TestTestContext_SetRequestID(t *testing.T) {
	tc := NewTestContext(t)

	tc.SetRequestID("req-123")

	val, exists := tc.Context.Get("request_id")
	assert.True(t, exists)
	assert.Equal(t, "req-123", val)
}

func TestTestContext_SetHeader(t *testing.T) {
	tc := NewTestContext(t)

	tc.SetHeader("Idempotency-Key", "batch-2026-03")

	assert.Equal(t, "batch-2026-03", tc.Context.Request.Header.Get("Idempotency-Key"))
}

func TestTestContext_ResponseCode(t *testing.T) {
	tc := NewTestContext(t)
	tc.Recorder.WriteHeader(http.StatusCreated)

	assert.Equal(t, http.StatusCreated, tc.ResponseCode())
}

func TestNewTestUUID(t *testing.T) {
	uuid1 := NewTestUUID("test-seed")
	uuid2 := NewTestUUID("test-seed")
	uuid3 := NewTestUUID("different-seed")

	// Same seed should produce same UUID
	assert.Equal(t, uuid1, uuid2)

	// Different seed should produce different UUID
	assert.NotEqual(t, uuid1, uuid3)
}

func TestNewRandomUUID(t *testing.T) {
	uuid1 := NewRandomUUID()
	uuid2 := NewRandomUUID()

	// Random UUIDs should be different
	assert.NotEqual(t, uuid1, uuid2)
}

func TestNewSQLiteDB(t *testing.T) {
	db := NewSQLiteDB(t)

	for _, table := range []string{"finance_events", "pricings", "cashflows", "invoices", "finance_incidents"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestClock(t *testing.T) {
	t.Run("starts at base time", func(t *testing.T) {
		c := NewClock(time.Time{})
		assert.Equal(t, BaseTime, c.Now())
	})

	t.Run("advances and sets", func(t *testing.T) {
		start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		c := NewClock(start)

		assert.Equal(t, start.Add(time.Hour), c.Advance(time.Hour))
		assert.Equal(t, start.Add(time.Hour), c.Now())

		later := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
		c.Set(later)
		assert.Equal(t, time.UTC, c.Now().Location())
		assert.True(t, later.Equal(c.Now()))
	})
}

func TestContextWithTimeout(t *testing.T) {
	ctx, cancel := ContextWithTimeout(t, 100*time.Millisecond)
	defer cancel()

	require.NotNil(t, ctx)

	// Context should have deadline
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.True(t, deadline.After(time.Now()))
}

func TestContextWithCancel(t *testing.T) {
	ctx, cancel := ContextWithCancel(t)

	select {
	case <-ctx.Done():
		t.Fatal("Context should not be cancelled yet")
	default:
		// Expected
	}

	cancel()

	select {
	case <-ctx.Done():
		// Expected
	default:
		t.Fatal("Context should be cancelled")
	}
}

func TestAssertEventually(t *testing.T) {
	var counter atomic.Int32
	go func() {
		time.Sleep(50 * time.Millisecond)
		counter.Store(1)
	}()

	AssertEventually(t, func() bool {
		return counter.Load() == 1
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestAssertNever(t *testing.T) {
	value := false

	AssertNever(t, func() bool {
		return value
	}, 50*time.Millisecond, 10*time.Millisecond)
}

func TestRunHTTPTestCase(t *testing.T) {
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "hello",
		})
	}

	tc := HTTPTestCase{
		Name:           "simple test",
		Method:         http.MethodGet,
		Path:           "/test",
		ExpectedStatus: http.StatusOK,
		ExpectedBody: map[string]any{
			"success": true,
		},
	}

	RunHTTPTestCase(t, handler, tc)
}

func TestRunHTTPTestCases(t *testing.T) {
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	}

	cases := []HTTPTestCase{
		{
			Name:           "case 1",
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "case 2",
			ExpectedStatus: http.StatusOK,
		},
	}

	RunHTTPTestCases(t, handler, cases)
}

func TestServeHTTPTestCases(t *testing.T) {
	engine := gin.New()
	engine.POST("/cashflows/batch", func(c *gin.Context) {
		if c.GetHeader("X-Request-ID") == "" {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   gin.H{"code": "BATCH_IN_PROGRESS"},
			})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	ServeHTTPTestCases(t, engine, []HTTPTestCase{
		{
			Name:           "conflict",
			Method:         http.MethodPost,
			Path:           "/cashflows/batch",
			Body:           map[string]string{"cutoff": "2026-03-10T09:00:00Z"},
			ExpectedStatus: http.StatusConflict,
			ExpectedError:  "BATCH_IN_PROGRESS",
		},
		{
			Name:   "created",
			Method: http.MethodPost,
			Path:   "/cashflows/batch",
			Setup: func(t *testing.T, tc *TestContext) {
				tc.SetHeader("X-Request-ID", "req-1")
			},
			ExpectedStatus: http.StatusCreated,
			Validate: func(t *testing.T, tc *TestContext) {
				AssertSuccessResponse(t, tc)
			},
		},
		{
			Name:           "unknown route",
			Path:           "/missing",
			ExpectedStatus: http.StatusNotFound,
		},
	})
}

func TestJSONResponse(t *testing.T) {
	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"key": "value"})

	resp := JSONResponse(t, tc)
	assert.Equal(t, "value", resp["key"])
}

func TestJSONResponseAs(t *testing.T) {
	type Response struct {
		Key string `json:"key"`
	}

	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"key": "value"})

	resp := JSONResponseAs[Response](t, tc)
	assert.Equal(t, "value", resp.Key)
}

func TestAssertSuccessResponse(t *testing.T) {
	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusOK, gin.H{"success": true})

	AssertSuccessResponse(t, tc)
}

func TestAssertErrorResponse(t *testing.T) {
	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusConflict, gin.H{
		"success": false,
		"error":   gin.H{"code": "BATCH_IN_PROGRESS", "message": "a cashflow batch is already running"},
	})

	AssertErrorResponse(t, tc, "BATCH_IN_PROGRESS")
}

func TestToJSONReader(t *testing.T) {
	data := map[string]string{"key": "value"}
	reader := ToJSONReader(t, data)

	require.NotNil(t, reader)
}
