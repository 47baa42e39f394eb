// Package common provides shared helpers for time, files, hex and hashing.
package common

import (
	"os"
	"time"
)

// Now unix timestamp in seconds
func Now() int64 {
	return time.Now().Unix()
}

// FileExist returns true if the file exists
func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil || !os.IsNotExist(err)
}
