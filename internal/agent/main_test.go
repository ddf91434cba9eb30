package agent

import (
	"os"
	"testing"

	"github.com/ydjemai93/test-drive/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("debug")
	os.Exit(m.Run())
}
