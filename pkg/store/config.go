package store

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/itohio/picolog/pkg/config"
)

// ConfigName is the file holding the logger configuration record.
const ConfigName = "config.bin"

// LoadConfig reads the configuration record. ErrFile is returned when the
// file is missing, has the wrong size or holds an invalid record.
func (s *Store) LoadConfig() (config.Record, error) {
	release, err := s.mount("load config")
	if err != nil {
		return config.Record{}, err
	}
	defer release()

	f, err := s.vol.OpenFile(ConfigName, os.O_RDONLY)
	if err != nil {
		return config.Record{}, fail("load config", KindFile, err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return config.Record{}, fail("load config", KindFile, err)
	}
	if size != config.RecordSize {
		return config.Record{}, fail("load config", KindFile, fmt.Errorf("unexpected size %d", size))
	}

	buf := make([]byte, config.RecordSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return config.Record{}, fail("load config", KindFile, err)
	}

	var rec config.Record
	if err := rec.UnmarshalBinary(buf); err != nil {
		return config.Record{}, fail("load config", KindFile, err)
	}
	if err := rec.Validate(); err != nil {
		return config.Record{}, fail("load config", KindFile, err)
	}

	return rec, nil
}

// SaveConfig replaces the configuration record. Like Append it refuses to
// write when the reserved blocks are not free.
func (s *Store) SaveConfig(rec config.Record) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return fail("save config", KindFile, err)
	}

	release, err := s.mount("save config")
	if err != nil {
		return err
	}
	defer release()

	if err := s.ensureFree("save config"); err != nil {
		return err
	}

	f, err := s.vol.OpenFile(ConfigName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fail("save config", KindFile, err)
	}

	n, err := f.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail("save config", KindFile, err)
	}

	return nil
}

// InitConfig loads the configuration record, writing the defaults when none
// is stored yet. It returns the effective record.
func (s *Store) InitConfig() (config.Record, error) {
	rec, err := s.LoadConfig()
	if err == nil {
		return rec, nil
	}
	if KindOf(err) == KindMount {
		return config.Record{}, err
	}

	log.Printf("No valid configuration stored, writing defaults: %v", err)
	rec = config.DefaultRecord()
	return rec, s.SaveConfig(rec)
}
