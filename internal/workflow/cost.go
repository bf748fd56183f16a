package workflow

import "math"

// 出行方式
const (
	TravelCar             = "Car"
	TravelBike            = "Bike"
	TravelCab             = "Cab"
	TravelPublicTransport = "Public Transport"
	TravelWalk            = "Walk"
)

// ratePerKM 每公里费率表
var ratePerKM = map[string]float64{
	TravelCar:             10,
	TravelBike:            5,
	TravelCab:             15,
	TravelPublicTransport: 3,
	TravelWalk:            0,
}

// Rate 返回出行方式的每公里费率,未知方式费率为 0
func Rate(pathOfTravel string) float64 {
	return ratePerKM[pathOfTravel]
}

// Expense 计算差旅费用,保留两位小数
// 对任意输入都有定义,未知出行方式的费用为 0
func Expense(distanceKM float64, pathOfTravel string) float64 {
	return math.Round(distanceKM*Rate(pathOfTravel)*100) / 100
}
