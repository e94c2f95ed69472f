package sipd

import "fmt"

// the report form's month selector is Indonesian
var monthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var ErrInvalidMonth = fmt.Errorf("month out of range, there are only 12 months")

func MonthName(month int) (string, error) {
	if month < 1 || month > 12 {
		return "", ErrInvalidMonth
	}
	return monthNames[month-1], nil
}
