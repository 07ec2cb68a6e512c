package requirements

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fdg312/nutriplan/internal/profiles"
)

//go:embed data/activities.yaml
var activitiesYAML []byte

var ErrInvalidActivities = errors.New("invalid activity catalog")

const customActivityKey = "custom"

type ActivityInfo struct {
	Key         string  `yaml:"key" json:"key"`
	Name        string  `yaml:"name" json:"name"`
	Category    string  `yaml:"category" json:"category"`
	KcalPerHour float64 `yaml:"kcal_per_hour" json:"kcal_per_hour"`
	Intensity   string  `yaml:"intensity" json:"intensity,omitempty"`
	MET         float64 `yaml:"met" json:"met,omitempty"`
}

// ActivityCatalog holds per-hour energy costs for a reference body weight.
type ActivityCatalog struct {
	referenceWeight float64
	fallback        string
	byKey           map[string]ActivityInfo
	order           []string
}

type activityFile struct {
	ReferenceWeightKg float64        `yaml:"reference_weight_kg"`
	Fallback          string         `yaml:"fallback"`
	Activities        []ActivityInfo `yaml:"activities"`
}

var (
	activitiesOnce    sync.Once
	defaultActivities *ActivityCatalog
	activitiesErr     error
)

func DefaultActivities() (*ActivityCatalog, error) {
	activitiesOnce.Do(func() {
		defaultActivities, activitiesErr = LoadActivities(bytes.NewReader(activitiesYAML))
	})
	return defaultActivities, activitiesErr
}

func LoadActivities(r io.Reader) (*ActivityCatalog, error) {
	var f activityFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivities, err)
	}
	if f.ReferenceWeightKg <= 0 {
		return nil, fmt.Errorf("%w: reference_weight_kg must be positive", ErrInvalidActivities)
	}
	c := &ActivityCatalog{
		referenceWeight: f.ReferenceWeightKg,
		fallback:        f.Fallback,
		byKey:           make(map[string]ActivityInfo, len(f.Activities)),
	}
	for _, a := range f.Activities {
		if a.Key == "" {
			return nil, fmt.Errorf("%w: activity with empty key", ErrInvalidActivities)
		}
		if a.KcalPerHour < 0 {
			return nil, fmt.Errorf("%w: %s: negative kcal_per_hour", ErrInvalidActivities, a.Key)
		}
		if _, dup := c.byKey[a.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidActivities, a.Key)
		}
		c.byKey[a.Key] = a
		c.order = append(c.order, a.Key)
	}
	if _, ok := c.byKey[c.fallback]; !ok {
		return nil, fmt.Errorf("%w: fallback %q not in catalog", ErrInvalidActivities, c.fallback)
	}
	return c, nil
}

func (c *ActivityCatalog) Get(key string) (ActivityInfo, bool) {
	a, ok := c.byKey[strings.ToLower(strings.TrimSpace(key))]
	return a, ok
}

func (c *ActivityCatalog) All() []ActivityInfo {
	out := make([]ActivityInfo, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.byKey[k])
	}
	return out
}

// KcalPerDay returns the average daily energy of one itemized activity.
// Unknown keys fall back to the catalog default activity.
func (c *ActivityCatalog) KcalPerDay(a profiles.Activity, weightKg float64) float64 {
	if a.KcalPerDay != nil {
		return *a.KcalPerDay
	}
	var perHour float64
	if a.Key == customActivityKey && a.CustomKcalPerHour != nil && *a.CustomKcalPerHour > 0 {
		perHour = *a.CustomKcalPerHour
	} else {
		info, ok := c.Get(a.Key)
		if !ok {
			info = c.byKey[c.fallback]
		}
		perHour = info.KcalPerHour * (weightKg / c.referenceWeight)
	}
	perSession := perHour / 60 * float64(a.MinutesPerSession)
	return perSession * float64(a.SessionsPerWeek) / 7
}
