package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
}

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID(8)
	assert.Len(t, id, 8)
	assert.NotEqual(t, id, GenerateRandomID(8))

	assert.Len(t, GenerateRandomID(7), 7)
}

func TestMD5Hash(t *testing.T) {
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", MD5Hash("hello"))
}

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorResponse(c, http.StatusBadRequest, "Invalid filter", errors.New("population_min must not be negative"))

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Invalid filter", body.Message)
	assert.Equal(t, "population_min must not be negative", body.Error)
}
