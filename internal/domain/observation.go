package domain

import "time"

// MissingValueSentinel is the NWIS marker for "no measurement".
const MissingValueSentinel = "-999999.00"

// ObservationRow is one flattened instantaneous-value reading, the unit of
// the Parquet output. All eight columns are strings; Value is "" when the
// reading was missing.
type ObservationRow struct {
	SiteNo    string `parquet:"name=site_no, type=BYTE_ARRAY, convertedtype=UTF8" json:"site_no"`
	State     string `parquet:"name=state, type=BYTE_ARRAY, convertedtype=UTF8" json:"state"`
	DateTime  string `parquet:"name=datetime, type=BYTE_ARRAY, convertedtype=UTF8" json:"datetime"`
	Date      string `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8" json:"date"`
	ParamCode string `parquet:"name=param_code, type=BYTE_ARRAY, convertedtype=UTF8" json:"param_code"`
	ParamName string `parquet:"name=param_name, type=BYTE_ARRAY, convertedtype=UTF8" json:"param_name"`
	Unit      string `parquet:"name=unit, type=BYTE_ARRAY, convertedtype=UTF8" json:"unit"`
	Value     string `parquet:"name=value, type=BYTE_ARRAY, convertedtype=UTF8" json:"value"`
}

// TimeWindow is a closed interval: both endpoints are inside the window.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window, boundaries included.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// StartDT and EndDT render the window bounds the way the IV endpoint
// expects them: UTC with a trailing Z.
func (w TimeWindow) StartDT() string { return w.Start.UTC().Format("2006-01-02T15:04:05Z") }

func (w TimeWindow) EndDT() string { return w.End.UTC().Format("2006-01-02T15:04:05Z") }
