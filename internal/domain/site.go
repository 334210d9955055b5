package domain

// SiteTypeStream is the NWIS site_tp_cd for stream gages, the only site
// type the ingester fetches.
const SiteTypeStream = "ST"

// Site is one row of the master site index. Every field is a string by
// design: site numbers carry leading zeros and the descriptive columns are
// pass-through metadata the ingester never interprets.
type Site struct {
	AgencyCd    string `parquet:"name=agency_cd, type=BYTE_ARRAY, convertedtype=UTF8" json:"agency_cd"`
	SiteNo      string `parquet:"name=site_no, type=BYTE_ARRAY, convertedtype=UTF8" json:"site_no"`
	StationNm   string `parquet:"name=station_nm, type=BYTE_ARRAY, convertedtype=UTF8" json:"station_nm"`
	SiteTpCd    string `parquet:"name=site_tp_cd, type=BYTE_ARRAY, convertedtype=UTF8" json:"site_tp_cd"`
	DecLatVa    string `parquet:"name=dec_lat_va, type=BYTE_ARRAY, convertedtype=UTF8" json:"dec_lat_va"`
	DecLongVa   string `parquet:"name=dec_long_va, type=BYTE_ARRAY, convertedtype=UTF8" json:"dec_long_va"`
	AltVa       string `parquet:"name=alt_va, type=BYTE_ARRAY, convertedtype=UTF8" json:"alt_va"`
	HUCCd       string `parquet:"name=huc_cd, type=BYTE_ARRAY, convertedtype=UTF8" json:"huc_cd"`
	SourceState string `parquet:"name=source_state, type=BYTE_ARRAY, convertedtype=UTF8" json:"source_state"`
}

// USStates lists the 50 states plus DC, the partition keys of the system.
var USStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DC", "DE", "FL",
	"GA", "HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME",
	"MD", "MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH",
	"NJ", "NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI",
	"SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}
