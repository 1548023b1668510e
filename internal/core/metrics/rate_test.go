package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestRateMeter_Window(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeter(clk)

	r.Mark(30)
	clk.Add(10 * time.Second)
	r.Mark(30)

	assert.EqualValues(t, 60, r.Total())
	assert.InDelta(t, 1.0, r.Rate(), 1e-9)

	// 第一个桶滑出窗口
	clk.Add(55 * time.Second)
	assert.EqualValues(t, 30, r.Total())

	clk.Add(2 * time.Minute)
	assert.Zero(t, r.Total())
}

func TestRateMeter_Reset(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeter(clk)

	r.Mark(5)
	r.Reset()
	assert.Zero(t, r.Total())
}
