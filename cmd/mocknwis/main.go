// Command mocknwis serves a deterministic fake of the two NWIS endpoints
// used by this system, for local runs and demos without hammering the real
// water services.
//
// Usage:
//
//	go run ./cmd/mocknwis -addr :9191 -states VA,MD -sites 25
//	NWIS_BASE_URL=http://localhost:9191 go run ./cmd/siteindex
//	NWIS_BASE_URL=http://localhost:9191 go run ./cmd/ingest
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/riverspeak/nwis-ingest/internal/domain"
)

var mockParams = []struct {
	code, name, unit string
	min, max         float64
}{
	{"00010", "Temperature, water, °C", "deg C", -1, 30},
	{"00095", "Specific cond at 25C", "uS/cm @25C", 50, 1200},
	{"00300", "Dissolved oxygen", "mg/l", 2, 14},
	{"00400", "pH", "std units", 5.5, 9},
}

func main() {
	addr := flag.String("addr", ":9191", "listen address")
	states := flag.String("states", "VA,MD", "comma-separated states to serve")
	sitesPerState := flag.Int("sites", 25, "stream sites generated per state")
	seed := flag.Int64("seed", 1, "rng seed for reproducible data")
	flag.Parse()

	srv := &server{
		sites:         map[string][]domain.Site{},
		sitesPerState: *sitesPerState,
		seed:          *seed,
	}
	for _, s := range strings.Split(*states, ",") {
		state := strings.TrimSpace(strings.ToUpper(s))
		if state != "" {
			srv.sites[state] = srv.generateSites(state)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /nwis/site/", srv.handleSiteListing)
	mux.HandleFunc("GET /nwis/iv/", srv.handleIV)

	log.Printf("mock NWIS listening on %s (%d states, %d sites each)", *addr, len(srv.sites), *sitesPerState)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

type server struct {
	sites         map[string][]domain.Site
	sitesPerState int
	seed          int64
}

// generateSites builds a stable per-state site inventory. One in five
// sites is a groundwater well so the type filter has something to drop.
func (s *server) generateSites(state string) []domain.Site {
	rng := rand.New(rand.NewSource(s.seed + int64(crc(state))))
	sites := make([]domain.Site, 0, s.sitesPerState)
	for i := 0; i < s.sitesPerState; i++ {
		tp := domain.SiteTypeStream
		if i%5 == 4 {
			tp = "GW"
		}
		sites = append(sites, domain.Site{
			AgencyCd:    "USGS",
			SiteNo:      fmt.Sprintf("%02d%06d", crc(state)%90+10, i+100000),
			StationNm:   fmt.Sprintf("MOCK RIVER %d NEAR %s", i+1, state),
			SiteTpCd:    tp,
			DecLatVa:    fmt.Sprintf("%.7f", 30+rng.Float64()*15),
			DecLongVa:   fmt.Sprintf("%.7f", -120+rng.Float64()*40),
			AltVa:       fmt.Sprintf("%.1f", rng.Float64()*2000),
			HUCCd:       fmt.Sprintf("%08d", rng.Intn(99999999)),
			SourceState: state,
		})
	}
	return sites
}

func (s *server) handleSiteListing(w http.ResponseWriter, r *http.Request) {
	state := strings.ToUpper(r.URL.Query().Get("stateCd"))
	sites, ok := s.sites[state]
	if !ok {
		http.Error(w, "no sites for state", http.StatusNotFound)
		return
	}

	var b strings.Builder
	b.WriteString("# US Geological Survey (mock)\n#\n")
	b.WriteString("agency_cd\tsite_no\tstation_nm\tsite_tp_cd\tdec_lat_va\tdec_long_va\talt_va\thuc_cd\n")
	b.WriteString("5s\t15s\t50s\t7s\t16s\t16s\t8s\t16s\n")
	for _, site := range sites {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			site.AgencyCd, site.SiteNo, site.StationNm, site.SiteTpCd,
			site.DecLatVa, site.DecLongVa, site.AltVa, site.HUCCd)
	}
	_, _ = w.Write([]byte(b.String()))
}

func (s *server) handleIV(w http.ResponseWriter, r *http.Request) {
	siteNo := r.URL.Query().Get("sites")
	start, err := time.Parse("2006-01-02T15:04:05Z", r.URL.Query().Get("startDT"))
	if err != nil {
		http.Error(w, "bad startDT", http.StatusBadRequest)
		return
	}

	rng := rand.New(rand.NewSource(s.seed + int64(crc(siteNo))))
	var series []domain.TimeSeries
	for _, p := range mockParams {
		readings := make([]domain.Reading, 0, 12)
		for i := 0; i < 12; i++ {
			v := fmt.Sprintf("%.2f", p.min+rng.Float64()*(p.max-p.min))
			if rng.Intn(20) == 0 {
				v = domain.MissingValueSentinel
			}
			readings = append(readings, domain.Reading{
				Value:    v,
				DateTime: start.Add(time.Duration(i) * 6 * time.Hour).Format("2006-01-02T15:04:05.000-05:00"),
			})
		}
		series = append(series, domain.TimeSeries{
			Variable: domain.Variable{
				VariableCode: []domain.VariableCode{{Value: p.code}},
				VariableName: p.name,
				Unit:         domain.Unit{UnitCode: p.unit},
			},
			Values: []domain.ValueBlock{{Value: readings}},
		})
	}

	resp := map[string]any{"value": map[string]any{"timeSeries": series}}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// crc folds a string into a small stable integer for seeding.
func crc(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = h*31 + uint32(c)
	}
	return h % 1000
}
