package git

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	os.Setenv(guardEnv, "1")
	os.Exit(m.Run())
}
