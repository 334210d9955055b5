package domain

import (
	"strings"
	"time"
)

// TimeSeries is one per-parameter series from the IV response, found under
// value.timeSeries. Only the fields the flattener reads are declared.
type TimeSeries struct {
	Variable Variable     `json:"variable"`
	Values   []ValueBlock `json:"values"`
}

// Variable describes the measured parameter.
type Variable struct {
	VariableCode []VariableCode `json:"variableCode"`
	VariableName string         `json:"variableName"`
	Unit         Unit           `json:"unit"`
}

type VariableCode struct {
	Value string `json:"value"`
}

type Unit struct {
	UnitCode string `json:"unitCode"`
}

// ValueBlock wraps the actual readings. NWIS nests them one level deeper
// than the series itself; in practice only the first block carries data.
type ValueBlock struct {
	Value []Reading `json:"value"`
}

// Reading is a single (timestamp, value) pair.
type Reading struct {
	Value    string `json:"value"`
	DateTime string `json:"dateTime"`
}

// Flatten converts one site's nested IV payload into flat observation rows,
// keeping only readings inside the window and normalizing missing values.
//
// Readings with an empty or unparseable dateTime are dropped silently; a
// bad row never fails the site. The date column is the dateTime string
// truncated at 'T' so the two can never disagree.
func Flatten(siteNo, state string, series []TimeSeries, window TimeWindow) []ObservationRow {
	var rows []ObservationRow
	for _, ts := range series {
		paramCode := ""
		if len(ts.Variable.VariableCode) > 0 {
			paramCode = ts.Variable.VariableCode[0].Value
		}
		paramName := ts.Variable.VariableName
		unit := ts.Variable.Unit.UnitCode

		for _, block := range ts.Values {
			for _, r := range block.Value {
				if r.DateTime == "" {
					continue
				}
				t, err := parseISO(r.DateTime)
				if err != nil {
					continue
				}
				if !window.Contains(t) {
					continue
				}

				date, _, _ := strings.Cut(r.DateTime, "T")
				rows = append(rows, ObservationRow{
					SiteNo:    siteNo,
					State:     state,
					DateTime:  r.DateTime,
					Date:      date,
					ParamCode: paramCode,
					ParamName: paramName,
					Unit:      unit,
					Value:     normalizeValue(r.Value),
				})
			}
		}
	}
	return rows
}

// normalizeValue maps the NWIS missing-value sentinel and empty values to
// "". Everything else passes through verbatim, including "0" and negative
// readings.
func normalizeValue(v string) string {
	if v == "" || v == MissingValueSentinel {
		return ""
	}
	return v
}

// parseISO parses an NWIS dateTime, which is RFC 3339 with an optional
// fractional-second part and either a zone offset or a literal Z.
func parseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
