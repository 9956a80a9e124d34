package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/lightsout/internal/models"
)

// Upgrade rewrites a record encoded at one schema version into the next.
type Upgrade func(data []byte) ([]byte, error)

// SchemaChain decodes a record, applying one Upgrade per version step until
// the current version is reached.
type SchemaChain struct {
	Record   string
	Current  int
	Upgrades map[int]Upgrade // keyed by the version being upgraded from
}

// Decode unmarshals data into out. It reports whether any upgrade ran, in
// which case the caller must persist the upgraded form. Records without a
// schema version, or that fail to decode, yield ErrCorrupt.
func (c SchemaChain) Decode(data []byte, out any) (upgraded []byte, migrated bool, err error) {
	var envelope struct {
		SchemaVersion *int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false, fmt.Errorf("%s: %w: %v", c.Record, ErrCorrupt, err)
	}
	if envelope.SchemaVersion == nil {
		return nil, false, fmt.Errorf("%s: %w: missing schema version", c.Record, ErrCorrupt)
	}

	version := *envelope.SchemaVersion
	for version < c.Current {
		up, ok := c.Upgrades[version]
		if !ok {
			return nil, false, fmt.Errorf("%s: %w: no upgrade from schema version %d", c.Record, ErrCorrupt, version)
		}
		data, err = up(data)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w: upgrading from version %d: %v", c.Record, ErrCorrupt, version, err)
		}
		version++
		migrated = true
	}

	if err := json.Unmarshal(data, out); err != nil {
		return nil, false, fmt.Errorf("%s: %w: %v", c.Record, ErrCorrupt, err)
	}
	return data, migrated, nil
}

// nightStateV1 is the first NightState format: warnings keyed by bare minutes
// and no override fields.
type nightStateV1 struct {
	SchemaVersion     int               `json:"schemaVersion"`
	NightID           string            `json:"nightId"`
	BaseDeadline      time.Time         `json:"baseDeadlineLocal"`
	EffectiveDeadline time.Time         `json:"effectiveDeadlineLocal"`
	SentWarnings      map[int]time.Time `json:"sentWarningsLocal"`
}

func upgradeNightV1(data []byte) ([]byte, error) {
	var v1 nightStateV1
	if err := json.Unmarshal(data, &v1); err != nil {
		return nil, err
	}

	v2 := models.NightState{
		SchemaVersion:     2,
		NightID:           v1.NightID,
		BaseDeadline:      v1.BaseDeadline,
		EffectiveDeadline: v1.EffectiveDeadline,
		SentWarnings:      make(map[string]time.Time, len(v1.SentWarnings)),
	}
	for minutes, sentAt := range v1.SentWarnings {
		v2.SentWarnings[models.WarningKey(v1.EffectiveDeadline, minutes)] = sentAt
	}
	return json.Marshal(v2)
}

var nightChain = SchemaChain{
	Record:  "night state",
	Current: models.NightSchemaVersion,
	Upgrades: map[int]Upgrade{
		1: upgradeNightV1,
	},
}

var weeklyChain = SchemaChain{
	Record:   "weekly state",
	Current:  models.WeeklySchemaVersion,
	Upgrades: map[int]Upgrade{},
}

var configMetaChain = SchemaChain{
	Record:   "config meta",
	Current:  models.ConfigMetaSchemaVersion,
	Upgrades: map[int]Upgrade{},
}
