// Package domain models USGS National Water Information System (NWIS) data.
//
// # Data Sources
//
// Two NWIS endpoints feed this system:
//
//	https://waterservices.usgs.gov/nwis/site/?format=rdb&stateCd=XX
//	https://waterservices.usgs.gov/nwis/iv/?format=json&sites=...&startDT=...&endDT=...&parameterCd=...
//
// The site endpoint returns an RDB file (USGS "relational data base", a
// tab-separated text format) listing every monitoring site in a state. The
// IV endpoint returns instantaneous-values time series for one site as
// nested JSON under value.timeSeries.
//
// # RDB Conventions
//
// Comment and header lines begin with '#'. The first non-comment line is the
// tab-separated column header. The line immediately after the header is a
// format-description row whose fields are column widths ("5s", "15s", "50s")
// rather than data; it must be discarded. Every field is kept as a string —
// site numbers have leading zeros and mixed widths, so numeric coercion
// corrupts them.
//
// Site type codes ("site_tp_cd"): the ingester only fetches "ST" (stream)
// sites. See https://help.waterdata.usgs.gov/site_tp_cd for the full list.
//
// # IV Parameter Codes
//
// The fixed parameter set requested for every site:
//
//	00010 – Temperature, water (°C)
//	00095 – Specific conductance (µS/cm at 25°C)
//	00300 – Dissolved oxygen (mg/L)
//	00400 – pH (standard units)
//
// # Missing Values
//
// NWIS reports "no measurement" with the sentinel "-999999.00". Flattening
// normalizes the sentinel, empty strings, and absent values to the empty
// string. All other values pass through verbatim with no numeric parsing —
// keeping every column a string avoids dtype ambiguity in the Parquet
// output and lets DuckDB/Polars readers decide their own coercion.
//
// # Timestamps
//
// IV dateTime values are ISO-8601 with a zone offset, e.g.
// "2024-03-01T14:30:00.000-05:00". The derived date column is the raw
// string truncated at the 'T' separator, never re-parsed, so date and
// datetime can never disagree.
package domain
