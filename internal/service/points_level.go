package service

// pointsLevelThresholds 等级阈值，下标 i 对应等级 i+1
var pointsLevelThresholds = []int64{0, 100, 300, 600, 1000, 2000}

// LevelForPoints 按积分计算等级
func LevelForPoints(total int64) int {
	level := 1
	for i, threshold := range pointsLevelThresholds {
		if total >= threshold {
			level = i + 1
		}
	}
	return level
}

// NextLevelThreshold 返回下一等级所需积分，已满级时返回 0
func NextLevelThreshold(total int64) int64 {
	for _, threshold := range pointsLevelThresholds {
		if total < threshold {
			return threshold
		}
	}
	return 0
}
