package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/creditverify/testutil"
)

func TestReporter_Lines(t *testing.T) {
	buf := &testutil.SyncBuffer{}
	r := NewReporter(buf)
	r.Step("Logging in...")
	r.Stepf("Entering OTP: %s", mask("123456"))

	assert.Equal(t, []string{"Logging in...", "Entering OTP: ******"}, buf.Lines())
}

func TestReporter_NilSafe(t *testing.T) {
	var r *Reporter
	assert.NotPanics(t, func() { r.Step("x") })
	assert.NotPanics(t, func() { NewReporter(nil).Step("discarded") })
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(empty)", mask(""))
	assert.Equal(t, "****", mask("1234"))
	assert.NotContains(t, mask("482913"), "4")
}
