package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sizeUnits = map[string]float64{
	"":    1,
	"B":   1,
	"KB":  1000,
	"MB":  1000 * 1000,
	"GB":  1000 * 1000 * 1000,
	"K":   1 << 10,
	"KIB": 1 << 10,
	"M":   1 << 20,
	"MIB": 1 << 20,
	"G":   1 << 30,
	"GIB": 1 << 30,
}

// ParseDataSize parses sizes like "512", "64KiB", "4MB" or "1.5M" into bytes.
// KB/MB/GB are decimal; K/M/G and KiB/MiB/GiB are binary.
func ParseDataSize(sizeStr string) (int64, error) {
	s := strings.TrimSpace(sizeStr)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	number, unit := s, ""
	if split >= 0 {
		number, unit = s[:split], strings.TrimSpace(s[split:])
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid size format: %s (expected format like '4MB', '512KiB')", sizeStr)
	}

	multiplier, ok := sizeUnits[strings.ToUpper(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown unit: %s (supported: B, KB, MB, GB, K, M, G, KiB, MiB, GiB)", unit)
	}

	bytes := value * multiplier
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("size overflow: %s", sizeStr)
	}
	return int64(bytes), nil
}

// ParseMessageSize parses a gRPC message size limit. Empty selects def.
func ParseMessageSize(sizeStr string, def int) (int, error) {
	if strings.TrimSpace(sizeStr) == "" {
		return def, nil
	}
	n, err := ParseDataSize(sizeStr)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("message size %s out of range", sizeStr)
	}
	return int(n), nil
}
