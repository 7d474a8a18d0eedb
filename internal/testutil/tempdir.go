package testutil

import (
	"io/ioutil"
	"os"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// TempDir creates a scratch directory removed by the returned cleanup.
func TempDir(t TestLog, prefix string) (string, func()) {
	dir, err := ioutil.TempDir("", prefix)
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() {
		err := os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
