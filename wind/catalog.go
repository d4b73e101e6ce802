package wind

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jasonlvhit/gocron"
	log "github.com/sirupsen/logrus"
)

// Catalog is the ordered stream of wind descriptors found in a directory.
// Files are named `<run YYYYMMDDHH>.f<forecast hour>[.ext][.zst]`; when two
// runs cover the same valid time the most recent run wins.
type Catalog struct {
	dir         string
	descriptors []Descriptor
	lock        sync.RWMutex
	stop        chan bool
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// ParseName extracts the run time and the valid time from a wind file name.
func ParseName(name string) (time.Time, time.Time, error) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 || len(parts[1]) < 2 || parts[1][0] != 'f' {
		return time.Time{}, time.Time{}, fmt.Errorf("unexpected wind file name '%s'", name)
	}

	run, err := time.Parse("2006010215", parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing date of '%s': %w", name, err)
	}

	h, err := strconv.Atoi(parts[1][1:])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("getting hour from file '%s': %w", name, err)
	}

	return run, run.Add(time.Hour * time.Duration(h)), nil
}

// Refresh rescans the directory.
func (c *Catalog) Refresh() error {
	var files []string
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.WithError(err).Errorf("Error walking file '%s'", path)
		} else if info.Mode().IsRegular() && !strings.HasSuffix(info.Name(), ".tmp") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking wind files: %w", err)
	}

	sort.Strings(files)

	type candidate struct {
		run time.Time
		d   Descriptor
	}
	byTime := make(map[time.Time]candidate)

	for _, f := range files {
		run, valid, err := ParseName(filepath.Base(f))
		if err != nil {
			log.WithError(err).Warn("Skipping wind file")
			continue
		}

		if c, found := byTime[valid]; found && !run.After(c.run) {
			continue
		}
		byTime[valid] = candidate{run: run, d: Descriptor{Time: valid, Locator: f}}
	}

	descriptors := make([]Descriptor, 0, len(byTime))
	for _, c := range byTime {
		descriptors = append(descriptors, c.d)
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Time.Before(descriptors[j].Time)
	})

	c.lock.Lock()
	changed := !sameDescriptors(descriptors, c.descriptors)
	c.descriptors = descriptors
	c.lock.Unlock()

	if changed {
		log.Infof("Wind catalog '%s' holds %d sources", c.dir, len(descriptors))
	}

	return nil
}

func sameDescriptors(a, b []Descriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Schedule rescans the directory every `every` seconds until Close.
func (c *Catalog) Schedule(every uint64) error {
	s := gocron.NewScheduler()
	err := s.Every(every).Seconds().Do(func() {
		if err := c.Refresh(); err != nil {
			log.WithError(err).Error("Error refreshing wind catalog")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling wind refresh: %w", err)
	}

	c.stop = s.Start()
	return nil
}

func (c *Catalog) Close() {
	if c.stop != nil {
		c.stop <- true
		c.stop = nil
	}
}

func (c *Catalog) Descriptors() []Descriptor {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return append([]Descriptor(nil), c.descriptors...)
}

// Window returns the source in effect at t (the latest one not after t, or
// the first one when t precedes them all) and the sources that follow it.
func (c *Catalog) Window(t time.Time) (Descriptor, []Descriptor, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return window(c.descriptors, t)
}

func window(descriptors []Descriptor, t time.Time) (Descriptor, []Descriptor, error) {
	if len(descriptors) == 0 {
		return Descriptor{}, nil, ErrNoWindData
	}

	i := sort.Search(len(descriptors), func(i int) bool {
		return descriptors[i].Time.After(t)
	})
	if i > 0 {
		i--
	}

	return descriptors[i], append([]Descriptor(nil), descriptors[i+1:]...), nil
}
