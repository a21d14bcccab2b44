// Package testing switches the process into test mode when imported by a test binary.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("HYDROBILL_TEST_MODE", "1")
		if os.Getenv("STORAGE_PROVIDER") == "" {
			_ = os.Setenv("STORAGE_PROVIDER", "local")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
