package acconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"acmanager/internal/common/fsutil"
)

const (
	entrySlotPrefix = "CAR_"
	entryKeyModel   = "MODEL"
)

// PropagateCars rewrites the MODEL of every CAR_n slot in the entry list at
// path, assigning cars round-robin in slot order. Slots are never added or
// removed. An empty car list leaves the file untouched.
func PropagateCars(path string, cars []string) error {
	if len(cars) == 0 {
		return nil
	}
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return fmt.Errorf("load entry list: %w", err)
	}
	for i, sec := range entrySlots(f) {
		sec.Key(entryKeyModel).SetValue(cars[i%len(cars)])
	}
	b, err := writeRaw(f)
	if err != nil {
		return fmt.Errorf("encode entry list: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("write entry list: %w", err)
	}
	return nil
}

// NewEntryList renders an entry list with slots CAR_0..CAR_{n-1}, models
// assigned round-robin from cars.
func NewEntryList(slots int, cars []string) ([]byte, error) {
	f := ini.Empty(loadOptions)
	for i := 0; i < slots; i++ {
		sec, err := f.NewSection(entrySlotPrefix + strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		model := ""
		if len(cars) > 0 {
			model = cars[i%len(cars)]
		}
		for _, kv := range [][2]string{{entryKeyModel, model}, {"SKIN", ""}, {"SPECTATOR_MODE", "0"}, {"DRIVERNAME", ""}, {"TEAM", ""}, {"GUID", ""}, {"BALLAST", "0"}, {"RESTRICTOR", "0"}} {
			if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
				return nil, err
			}
		}
	}
	return writeRaw(f)
}

// entrySlots returns the CAR_n sections ordered by n.
func entrySlots(f *ini.File) []*ini.Section {
	type slot struct {
		n   int
		sec *ini.Section
	}
	var slots []slot
	for _, sec := range f.Sections() {
		name := sec.Name()
		if !strings.HasPrefix(name, entrySlotPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, entrySlotPrefix))
		if err != nil {
			continue
		}
		slots = append(slots, slot{n: n, sec: sec})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].n < slots[j].n })
	out := make([]*ini.Section, len(slots))
	for i, s := range slots {
		out[i] = s.sec
	}
	return out
}
