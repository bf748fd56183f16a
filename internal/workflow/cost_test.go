package workflow_test

import (
	"testing"

	"github.com/mautops/meeting-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
)

// TestRate 测试各出行方式的每公里费率
func TestRate(t *testing.T) {
	assert.Equal(t, 10.0, workflow.Rate(workflow.TravelCar))
	assert.Equal(t, 5.0, workflow.Rate(workflow.TravelBike))
	assert.Equal(t, 15.0, workflow.Rate(workflow.TravelCab))
	assert.Equal(t, 3.0, workflow.Rate(workflow.TravelPublicTransport))
	assert.Equal(t, 0.0, workflow.Rate(workflow.TravelWalk))
}

// TestRate_UnknownMode 测试未知出行方式费率为 0
func TestRate_UnknownMode(t *testing.T) {
	assert.Equal(t, 0.0, workflow.Rate("Helicopter"))
	assert.Equal(t, 0.0, workflow.Rate(""))
}

// TestExpense 测试费用计算
func TestExpense(t *testing.T) {
	assert.Equal(t, 125.0, workflow.Expense(12.5, workflow.TravelCar))
	assert.Equal(t, 62.5, workflow.Expense(12.5, workflow.TravelBike))
	assert.Equal(t, 0.0, workflow.Expense(100, workflow.TravelWalk))
	assert.Equal(t, 0.0, workflow.Expense(0, workflow.TravelCab))
}

// TestExpense_Rounding 测试保留两位小数
func TestExpense_Rounding(t *testing.T) {
	// 3.333 * 3 = 9.999 -> 10.00
	assert.Equal(t, 10.0, workflow.Expense(3.333, workflow.TravelPublicTransport))
	// 1.2345 * 10 = 12.345 -> 12.35 (银行家舍入不适用,使用四舍五入)
	assert.Equal(t, 12.35, workflow.Expense(1.2345, workflow.TravelCar))
}

// TestExpense_UnknownModeIsZero 测试未知出行方式费用为 0
func TestExpense_UnknownModeIsZero(t *testing.T) {
	assert.Equal(t, 0.0, workflow.Expense(42, "Teleport"))
}
