// Package storage persists simulation snapshots on disk: one directory per
// snapshot holding JSON metadata, the configuration and CSV radial profiles.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chengchen0102/dustpy/internal/cgs"
	"github.com/chengchen0102/dustpy/internal/config"
	"github.com/chengchen0102/dustpy/internal/disk"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type SnapshotMetadata struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	TimeYr    float64            `json:"time_yr"`
	Steps     int                `json:"steps"`
	NR        int                `json:"n_r"`
	NM        int                `json:"n_m"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one snapshot of the current state. An empty id derives one from
// the snapshot index and simulated time.
func (s *Store) Save(id string, d *disk.Simulation, steps int, summary map[string]float64) (string, error) {
	if id == "" {
		id = fmt.Sprintf("snap_%012.0fyr", d.TimeYr())
	}
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta := SnapshotMetadata{
		ID:        id,
		Timestamp: time.Now(),
		TimeYr:    d.TimeYr(),
		Steps:     steps,
		NR:        d.Grid.N(),
		NM:        d.Masses.N(),
		Metrics:   summary,
	}
	metaFile, err := os.Create(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := config.Save(filepath.Join(dir, "config.yaml"), d.Cfg); err != nil {
		return "", err
	}
	if err := s.writeGas(dir, d); err != nil {
		return "", err
	}
	if err := s.writeDust(dir, d); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) writeGas(dir string, d *disk.Simulation) error {
	f, err := os.Create(filepath.Join(dir, "gas.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"radius_au", "sigma_gas", "v_rad"}); err != nil {
		return err
	}
	for i := 0; i < d.Grid.N(); i++ {
		row := []string{
			formatFloat(d.Grid.R[i] / cgs.AU),
			formatFloat(d.GasField.Data[i]),
			formatFloat(d.Diag.GasVRad[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeDust(dir string, d *disk.Simulation) error {
	f, err := os.Create(filepath.Join(dir, "dust.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	nm := d.Masses.N()
	header := []string{"radius_au"}
	for k := 0; k < nm; k++ {
		header = append(header, fmt.Sprintf("sigma_m%d", k))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < d.Grid.N(); i++ {
		row := make([]string, 0, nm+1)
		row = append(row, formatFloat(d.Grid.R[i]/cgs.AU))
		for k := 0; k < nm; k++ {
			row = append(row, formatFloat(d.DustField.Data[i*nm+k]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'e', 8, 64)
}

// List returns the metadata of every snapshot under the base directory,
// skipping entries it cannot parse.
func (s *Store) List() ([]SnapshotMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SnapshotMetadata{}, nil
		}
		return nil, err
	}

	snaps := make([]SnapshotMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta SnapshotMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		snaps = append(snaps, meta)
	}
	return snaps, nil
}

// Load reads one snapshot's metadata.
func (s *Store) Load(id string) (*SnapshotMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta SnapshotMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadGas reads the gas profile of a snapshot: radii [au], surface densities
// and radial velocities.
func (s *Store) LoadGas(id string) (r, sigma, vRad []float64, err error) {
	records, err := s.readCSV(filepath.Join(s.baseDir, id, "gas.csv"))
	if err != nil {
		return nil, nil, nil, err
	}
	for _, rec := range records[1:] {
		if len(rec) < 3 {
			continue
		}
		rv, err0 := strconv.ParseFloat(rec[0], 64)
		sv, err1 := strconv.ParseFloat(rec[1], 64)
		vv, err2 := strconv.ParseFloat(rec[2], 64)
		if err0 != nil || err1 != nil || err2 != nil {
			continue
		}
		r = append(r, rv)
		sigma = append(sigma, sv)
		vRad = append(vRad, vv)
	}
	return r, sigma, vRad, nil
}

// LoadDust reads the dust profile of a snapshot: radii [au] and the per-bin
// surface densities flattened with stride nm.
func (s *Store) LoadDust(id string) (r, sigma []float64, nm int, err error) {
	records, err := s.readCSV(filepath.Join(s.baseDir, id, "dust.csv"))
	if err != nil {
		return nil, nil, 0, err
	}
	if len(records) < 2 {
		return nil, nil, 0, nil
	}
	nm = len(records[0]) - 1
	for _, rec := range records[1:] {
		if len(rec) != nm+1 {
			continue
		}
		rv, err0 := strconv.ParseFloat(rec[0], 64)
		if err0 != nil {
			continue
		}
		r = append(r, rv)
		for k := 1; k <= nm; k++ {
			v, errk := strconv.ParseFloat(rec[k], 64)
			if errk != nil {
				v = 0
			}
			sigma = append(sigma, v)
		}
	}
	return r, sigma, nm, nil
}

func (s *Store) readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	records, err := rd.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("storage: %s is empty", path)
	}
	return records, nil
}
