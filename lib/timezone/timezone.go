package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Jakarta")
	if err != nil {
		panic(err)
	}
}

// force timezone to WIB because SIPD reporting periods and the dated
// download directories are Jakarta-local no matter where the machine
// running the bot ends up
func Now() time.Time {
	return time.Now().In(Location)
}

func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// DateStamp renders t the way output directories are stamped, e.g.
// "Laporan Realisasi 2024-03-08".
func DateStamp(t time.Time) string {
	return t.In(Location).Format("2006-01-02")
}
