package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeadHostStatusFormat(t *testing.T) {
	assert.Equal(t, "DEADHOST||| ||| ||| |||7", DeadHostStatus(7))
}

func TestErrMsgStatusFormat(t *testing.T) {
	assert.Equal(t, "ERRMSG||| ||| ||| |||max_alive_hosts reached", ErrMsgStatus("max_alive_hosts reached"))
}
