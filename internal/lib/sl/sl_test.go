package sl_test

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/student-portal/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := errors.New("something went wrong")
	attr := sl.Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.Panics(t, func() {
		_ = sl.Err(nil)
	})
}

func TestStatus(t *testing.T) {
	attr := sl.Status(http.StatusUnauthorized)

	assert.Equal(t, "status", attr.Key)
	assert.Equal(t, int64(401), attr.Value.Int64())
}

func TestElapsed(t *testing.T) {
	attr := sl.Elapsed(time.Now().Add(-time.Second))

	assert.Equal(t, "elapsed", attr.Key)
	assert.GreaterOrEqual(t, attr.Value.Duration(), time.Second)
}
