package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"

	customError "github.com/segyhp/dues-engine/pkg/errors"
)

// Frequency is the billing cadence of an obligation.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiAnnual Frequency = "semi_annual"
	FrequencyYearly     Frequency = "yearly"
)

// Frequencies lists every supported frequency in cycle-length order.
var Frequencies = []Frequency{
	FrequencyDaily,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencySemiAnnual,
	FrequencyYearly,
}

// frequencyAliases maps normalized spellings found in legacy data onto
// canonical tokens. Keys are lower-cased with spaces, dashes and
// underscores removed.
var frequencyAliases = map[string]Frequency{
	"daily":      FrequencyDaily,
	"monthly":    FrequencyMonthly,
	"quarterly":  FrequencyQuarterly,
	"semiannual": FrequencySemiAnnual,
	"6months":    FrequencySemiAnnual,
	"halfyearly": FrequencySemiAnnual,
	"yearly":     FrequencyYearly,
	"annual":     FrequencyYearly,
	"annually":   FrequencyYearly,
}

// ParseFrequency converts a user or storage supplied token into a canonical
// Frequency. Unknown tokens fail with ErrInvalidFrequency.
func ParseFrequency(token string) (Frequency, error) {
	key := strings.ToLower(strings.TrimSpace(token))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	if f, ok := frequencyAliases[key]; ok {
		return f, nil
	}
	return "", customError.WrapInvalidFrequency(token)
}

// Valid reports whether f is one of the canonical tokens.
func (f Frequency) Valid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

func (f Frequency) String() string {
	return string(f)
}

// Scan implements sql.Scanner, normalizing legacy spellings on read.
// Unrecognized tokens are kept verbatim so a single bad row does not hide
// the rest of a listing; calendar arithmetic rejects them later.
func (f *Frequency) Scan(src interface{}) error {
	var token string
	switch v := src.(type) {
	case string:
		token = v
	case []byte:
		token = string(v)
	case nil:
		return fmt.Errorf("frequency: cannot scan NULL")
	default:
		return fmt.Errorf("frequency: cannot scan %T", src)
	}

	parsed, err := ParseFrequency(token)
	if err != nil {
		*f = Frequency(token)
		return nil
	}
	*f = parsed
	return nil
}

// Value implements driver.Valuer.
func (f Frequency) Value() (driver.Value, error) {
	if !f.Valid() {
		return nil, customError.WrapInvalidFrequency(string(f))
	}
	return string(f), nil
}

// UnmarshalText lets JSON request bodies carry any accepted spelling.
func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
