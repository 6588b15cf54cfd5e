package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

func FormatUnix(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).Format("2006-01-02 15:04:05")
}
