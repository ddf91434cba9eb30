package logic

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ydjemai93/test-drive/internal/model"
	"github.com/ydjemai93/test-drive/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("debug")
	os.Exit(m.Run())
}

func TestEventMatches(t *testing.T) {
	assert.True(t, eventMatches("*", "completed"))
	assert.True(t, eventMatches("", "failed"))
	assert.True(t, eventMatches("completed,failed", "failed"))
	assert.True(t, eventMatches(" completed , failed ", "completed"))
	assert.False(t, eventMatches("completed", "failed"))
	assert.False(t, eventMatches("completed,failed", "dialing"))
}

func TestDefaultContent(t *testing.T) {
	call := &model.CallRecord{
		PhoneNumber: "+15105550123",
		Status:      model.CallStatusComplete,
		Disposition: model.DispositionTransferred,
	}
	assert.Equal(t, "Call to +15105550123: completed (transferred)", defaultContent(call))

	call.Disposition = ""
	assert.Equal(t, "Call to +15105550123: completed", defaultContent(call))
}
