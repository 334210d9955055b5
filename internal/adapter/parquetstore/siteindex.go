package parquetstore

import (
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/riverspeak/nwis-ingest/internal/domain"
)

// SiteIndex is the in-memory master site table, loaded once per run and
// read-only afterwards.
type SiteIndex struct {
	sites []domain.Site
}

// LoadSiteIndex reads the master site index Parquet file. A missing or
// unreadable index is fatal to the whole run; no partition can be resolved
// without it.
func LoadSiteIndex(path string) (*SiteIndex, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open site index %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(domain.Site), encoderParallelism)
	if err != nil {
		return nil, fmt.Errorf("create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	sites := make([]domain.Site, pr.GetNumRows())
	if len(sites) > 0 {
		if err := pr.Read(&sites); err != nil {
			return nil, fmt.Errorf("read site index: %w", err)
		}
	}
	return &SiteIndex{sites: sites}, nil
}

// NewSiteIndex builds an index directly from sites. Test seam.
func NewSiteIndex(sites []domain.Site) *SiteIndex {
	return &SiteIndex{sites: sites}
}

// Len returns the number of indexed sites.
func (x *SiteIndex) Len() int { return len(x.sites) }

// Lookup returns the indexed site with the given site number.
func (x *SiteIndex) Lookup(siteNo string) (domain.Site, bool) {
	for _, s := range x.sites {
		if s.SiteNo == siteNo {
			return s, true
		}
	}
	return domain.Site{}, false
}

// Select returns the sites in a state with the given site type.
func (x *SiteIndex) Select(state, siteType string) []domain.Site {
	var out []domain.Site
	for _, s := range x.sites {
		if s.SourceState == state && s.SiteTpCd == siteType {
			out = append(out, s)
		}
	}
	return out
}

// WriteSiteIndex persists the master site index with the same temp-then-
// rename commit as partition outputs.
func WriteSiteIndex(path string, sites []domain.Site) error {
	tmp := path + ".tmp"

	err := func() error {
		fw, err := local.NewLocalFileWriter(tmp)
		if err != nil {
			return fmt.Errorf("open %s: %w", tmp, err)
		}

		pw, err := writer.NewParquetWriter(fw, new(domain.Site), encoderParallelism)
		if err != nil {
			_ = fw.Close()
			return fmt.Errorf("create parquet writer: %w", err)
		}
		pw.CompressionType = parquet.CompressionCodec_SNAPPY

		for i := range sites {
			if err := pw.Write(sites[i]); err != nil {
				_ = fw.Close()
				return fmt.Errorf("write site: %w", err)
			}
		}
		if err := pw.WriteStop(); err != nil {
			_ = fw.Close()
			return fmt.Errorf("finalize site index: %w", err)
		}
		return fw.Close()
	}()
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit site index: %w", err)
	}
	return nil
}
