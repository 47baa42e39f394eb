package log

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

var (
	now = time.Now().Unix()
	err = fmt.Errorf("error message")
)

// Fatal Fatalf is not test
func TestLogger(t *testing.T) {
	SetLogger(6, false, true)

	WithFields("timestamp", now, "err", err).Tracef("test WithFields Tracef at %v", now)
	WithFields("timestamp", now, "err", err).Infof("test WithFields Infof at %v", now)
	WithFields("timestamp", now, "err", err).Errorf("test WithFields Errorf at %v", now)
	assert.Panics(t, func() { WithFields("timestamp", now, "err", err).Panicf("test WithFields Panicf at %v", now) }, "not panic")

	Trace("test Trace", "timestamp", now, "err", err)
	Debug("test Debug", "timestamp", now, "err", err)
	Info("test Info", "timestamp", now, "err", err)
	Warn("test Warn", "timestamp", now, "err", err)
	Error("test Error", "timestamp", now, "err", err)
	Printf("test Printf, timestamp=%v err=%v", now, err)

	assert.Panics(t, func() { Panic("test Panic", "timestamp", now, "err", err) }, "not panic")
	assert.Panics(t, func() { Panicf("test Panicf, timestamp=%v err=%v", now, err) }, "not panic")
}

func TestSensitiveFieldsAreRedacted(t *testing.T) {
	SetLogger(4, true, false)
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	defer SetLogger(4, false, false)

	Info("share secret", "orderID", "0x01", "secret", "0xdeadbeef", "Password", "hunter2")

	out := buf.String()
	assert.Contains(t, out, "0x01")
	assert.NotContains(t, out, "0xdeadbeef")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, redacted)
}
