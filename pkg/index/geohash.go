package index

// geohashEncode computes a base32 geohash for (lat, lng) at the given
// character precision. Standard interleaved-bit algorithm; precision
// 6 (~1.2km x 0.6km cells) is graphd's default.
const geohashBase32 = "0123456789bcdefghjkmnpqrstuvwxyz"

func geohashEncode(lat, lng float64, precision int) string {
	latRange := [2]float64{-90, 90}
	lngRange := [2]float64{-180, 180}

	var out []byte
	bit, ch := 0, 0
	evenBit := true

	for len(out) < precision {
		if evenBit {
			mid := (lngRange[0] + lngRange[1]) / 2
			if lng >= mid {
				ch |= 1 << (4 - bit)
				lngRange[0] = mid
			} else {
				lngRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}
		evenBit = !evenBit
		if bit < 4 {
			bit++
		} else {
			out = append(out, geohashBase32[ch])
			bit, ch = 0, 0
		}
	}
	return string(out)
}

// geohashNeighbors returns prefix itself plus its 8 surrounding cells
// at the same precision, used to avoid edge misses in radius/bbox
// queries. Computed by nudging the cell's decoded center by one cell
// width/height in each of the 8 compass directions and re-encoding.
func geohashNeighbors(prefix string) []string {
	lat, lng, latErr, lngErr := geohashDecode(prefix)
	seen := map[string]bool{prefix: true}
	out := []string{prefix}
	for _, d := range [][2]float64{
		{1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
	} {
		nLat := clampLat(lat + d[0]*latErr*2)
		nLng := wrapLng(lng + d[1]*lngErr*2)
		n := geohashEncode(nLat, nLng, len(prefix))
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func geohashDecode(hash string) (lat, lng, latErr, lngErr float64) {
	latRange := [2]float64{-90, 90}
	lngRange := [2]float64{-180, 180}
	evenBit := true

	for i := 0; i < len(hash); i++ {
		idx := indexOf(geohashBase32, hash[i])
		for n := 4; n >= 0; n-- {
			bit := (idx >> uint(n)) & 1
			if evenBit {
				mid := (lngRange[0] + lngRange[1]) / 2
				if bit == 1 {
					lngRange[0] = mid
				} else {
					lngRange[1] = mid
				}
			} else {
				mid := (latRange[0] + latRange[1]) / 2
				if bit == 1 {
					latRange[0] = mid
				} else {
					latRange[1] = mid
				}
			}
			evenBit = !evenBit
		}
	}
	lat = (latRange[0] + latRange[1]) / 2
	lng = (lngRange[0] + lngRange[1]) / 2
	return lat, lng, (latRange[1] - latRange[0]) / 2, (lngRange[1] - lngRange[0]) / 2
}

func indexOf(alphabet string, b byte) int {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == b {
			return i
		}
	}
	return 0
}

func clampLat(lat float64) float64 {
	if lat > 90 {
		return 90
	}
	if lat < -90 {
		return -90
	}
	return lat
}

func wrapLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
