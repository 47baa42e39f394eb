package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/types"
)

type mailbox struct {
	subjects []string
	fail     bool
}

func (m *mailbox) send(subject, content string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.subjects = append(m.subjects, subject)
	return nil
}

func TestAlertMailerMinInterval(t *testing.T) {
	box := &mailbox{}
	c := &clock{t: testStart}
	mailer := NewAlertMailer("relayer-test", box.send, 1800)
	mailer.SetClock(c.now)

	passed := &types.TimeoutAlert{OrderID: "o1", Kind: types.AlertDeadlinePassed, Deadline: testStart - 60, TimeRemaining: -60}

	sent, err := mailer.HandleAlert(passed)
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, box.subjects, 1)
	assert.Contains(t, box.subjects[0], "o1")
	assert.Contains(t, box.subjects[0], "relayer-test")

	c.t += 1799
	sent, _ = mailer.HandleAlert(passed)
	assert.False(t, sent)

	// other orders are not throttled by o1
	sent, _ = mailer.HandleAlert(&types.TimeoutAlert{OrderID: "o2", Kind: types.AlertDeadlinePassed})
	assert.True(t, sent)

	c.t++
	sent, _ = mailer.HandleAlert(passed)
	assert.True(t, sent)
	assert.Len(t, box.subjects, 3)

	// approaching alerts are not mailed
	sent, _ = mailer.HandleAlert(&types.TimeoutAlert{OrderID: "o3", Kind: types.AlertUserDeadlineApproaching})
	assert.False(t, sent)
}

func TestAlertMailerRetriesAfterFailure(t *testing.T) {
	box := &mailbox{fail: true}
	mailer := NewAlertMailer("relayer-test", box.send, 1800)
	mailer.SetClock(func() int64 { return testStart })
	alert := &types.TimeoutAlert{OrderID: "o1", Kind: types.AlertDeadlinePassed}

	_, err := mailer.HandleAlert(alert)
	assert.Error(t, err)

	box.fail = false
	sent, err := mailer.HandleAlert(alert)
	require.NoError(t, err)
	assert.True(t, sent)
}
