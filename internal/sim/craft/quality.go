package craft

// hqTable maps quality percent (0..100) to the chance of a high-quality
// result.
var hqTable = [101]int{
	1, 1, 1, 1, 1, 2, 2, 2, 2, 3,
	3, 3, 3, 4, 4, 4, 4, 5, 5, 5,
	5, 6, 6, 6, 6, 7, 7, 7, 7, 8,
	8, 8, 9, 9, 9, 10, 10, 10, 11, 11,
	11, 12, 12, 12, 13, 13, 13, 14, 14, 14,
	15, 15, 15, 16, 16, 17, 17, 17, 18, 18,
	18, 19, 19, 20, 20, 21, 22, 23, 24, 26,
	28, 31, 34, 38, 42, 47, 52, 58, 64, 68,
	71, 74, 76, 78, 80, 81, 82, 83, 84, 85,
	86, 87, 88, 89, 90, 91, 92, 94, 96, 98,
	100,
}

// QualityPercent is quality as a share of the maximum, rounded half up.
func QualityPercent(quality, maxQuality int) int {
	if maxQuality <= 0 || quality <= 0 {
		return 0
	}
	if quality >= maxQuality {
		return 100
	}
	return (quality*200 + maxQuality) / (maxQuality * 2)
}

// HQChance is the percent chance of a high-quality item at the given quality.
func HQChance(quality, maxQuality int) int {
	if maxQuality <= 0 {
		return 0
	}
	return hqTable[QualityPercent(quality, maxQuality)]
}

// Collectability is the collectable rating for the given quality.
func Collectability(quality, maxQuality int) int {
	if quality > maxQuality {
		quality = maxQuality
	}
	if quality < 0 {
		return 0
	}
	return quality / 10
}
